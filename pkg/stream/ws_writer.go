package stream

import (
	"time"

	"github.com/gorilla/websocket"
)

const wsReadLimit = 4096

// WSWriter writes frames as JSON text messages and heartbeats as pings.
type WSWriter struct {
	conn *websocket.Conn
}

func NewWSWriter(conn *websocket.Conn) *WSWriter {
	return &WSWriter{conn: conn}
}

func (w *WSWriter) WriteFrame(f Frame, deadline time.Time) error {
	if err := w.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return w.conn.WriteJSON(f.Data)
}

func (w *WSWriter) WriteHeartbeat(deadline time.Time) error {
	return w.conn.WriteControl(websocket.PingMessage, nil, deadline)
}

func (w *WSWriter) Close() error {
	_ = w.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return w.conn.Close()
}

// ReadUntilClosed discards inbound messages and returns once the peer goes
// away or the connection is closed. Pongs extend the read deadline to idle.
func (w *WSWriter) ReadUntilClosed(idle time.Duration) {
	w.conn.SetReadLimit(wsReadLimit)
	_ = w.conn.SetReadDeadline(time.Now().Add(idle))
	w.conn.SetPongHandler(func(string) error {
		return w.conn.SetReadDeadline(time.Now().Add(idle))
	})
	for {
		if _, _, err := w.conn.ReadMessage(); err != nil {
			return
		}
	}
}
