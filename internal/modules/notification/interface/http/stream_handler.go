package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"Herald/pkg/stream"
	"Herald/pkg/zlog"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// StreamHandler upgrades authenticated requests into live notification
// sessions over SSE or WebSocket.
type StreamHandler struct {
	manager   *stream.Manager
	heartbeat time.Duration
	upgrader  websocket.Upgrader
}

func NewStreamHandler(manager *stream.Manager, heartbeat time.Duration) *StreamHandler {
	if heartbeat <= 0 {
		heartbeat = stream.DefaultHeartbeat
	}
	return &StreamHandler{
		manager:   manager,
		heartbeat: heartbeat,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// 鉴权走 token，来源由 CORS 配置约束
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func identityOf(c *gin.Context) stream.Identity {
	return stream.Identity{
		UserID:   c.GetString("uuid"),
		Username: c.GetString("username"),
		Role:     c.GetString("role"),
	}
}

func (h *StreamHandler) SSE(c *gin.Context) {
	id := identityOf(c)
	w := stream.NewSSEWriter(c.Writer)
	err := h.manager.Serve(c.Request.Context(), id, w)
	logSessionEnd("sse", id, err)
}

func (h *StreamHandler) WS(c *gin.Context) {
	id := identityOf(c)
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade 已经写回了错误响应
		zlog.Warn("websocket upgrade failed", zap.String("user_id", id.UserID), zap.Error(err))
		return
	}

	w := stream.NewWSWriter(conn)
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()
	go func() {
		// 客户端断开时结束会话；pong 超过两个心跳周期视为断开
		w.ReadUntilClosed(2 * h.heartbeat)
		cancel()
	}()

	err = h.manager.Serve(ctx, id, w)
	logSessionEnd("ws", id, err)
}

func logSessionEnd(transport string, id stream.Identity, err error) {
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}
	zlog.Info("stream ended",
		zap.String("transport", transport),
		zap.String("user_id", id.UserID),
		zap.Error(err),
	)
}
