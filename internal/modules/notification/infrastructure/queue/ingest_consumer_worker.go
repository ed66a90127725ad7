package queue

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"Herald/internal/modules/notification/application/dto/request"
	"Herald/internal/modules/notification/application/dto/respond"
	"Herald/pkg/mq"
	"Herald/pkg/xerr"
	"Herald/pkg/zlog"

	"go.uber.org/zap"
)

const (
	HeaderError       = "x-herald-error"
	HeaderSourceTopic = "x-herald-source-topic"
)

// NotificationCreator is the producer entry point the worker feeds.
type NotificationCreator interface {
	Create(ctx context.Context, req request.CreateNotificationRequest) (*respond.NotificationItem, error)
}

// IngestConsumerWorker turns create-notification messages from the ingest
// topic into notifications. Messages that can never succeed are parked on the
// dead-letter topic and acknowledged; transient failures are left
// unacknowledged so the consumer redelivers them.
type IngestConsumerWorker struct {
	consumer mq.Consumer
	creator  NotificationCreator

	deadLetter      mq.Publisher
	deadLetterTopic string
}

func NewIngestConsumerWorker(consumer mq.Consumer, creator NotificationCreator, deadLetter mq.Publisher, deadLetterTopic string) *IngestConsumerWorker {
	return &IngestConsumerWorker{
		consumer:        consumer,
		creator:         creator,
		deadLetter:      deadLetter,
		deadLetterTopic: strings.TrimSpace(deadLetterTopic),
	}
}

func (w *IngestConsumerWorker) Run(ctx context.Context) error {
	if w == nil || w.consumer == nil {
		return errors.New("consumer is nil")
	}
	if w.creator == nil {
		return errors.New("creator is nil")
	}
	return w.consumer.Run(ctx, w)
}

func (w *IngestConsumerWorker) Handle(ctx context.Context, msg mq.Message) error {
	var req request.CreateNotificationRequest
	if err := json.Unmarshal(msg.Value, &req); err != nil {
		zlog.Warn("notification ingest invalid message", zap.String("topic", msg.Topic), zap.Error(err))
		return w.park(ctx, msg, err)
	}

	item, err := w.creator.Create(ctx, req)
	if err != nil {
		if xerr.CodeOf(err) == xerr.BadRequest {
			zlog.Warn("notification ingest rejected",
				zap.String("topic", msg.Topic),
				zap.String("recipient_id", req.RecipientId),
				zap.Error(err),
			)
			return w.park(ctx, msg, err)
		}
		zlog.Warn("notification ingest failed, will retry",
			zap.String("topic", msg.Topic),
			zap.String("recipient_id", req.RecipientId),
			zap.Error(err),
		)
		return err
	}

	zlog.Debug("notification ingested", zap.String("notification_id", item.Id), zap.String("topic", msg.Topic))
	return nil
}

// park copies msg to the dead-letter topic. Without one the message is
// dropped after logging.
func (w *IngestConsumerWorker) park(ctx context.Context, msg mq.Message, cause error) error {
	if w.deadLetter == nil || w.deadLetterTopic == "" {
		return nil
	}
	headers := make(map[string]string, len(msg.Headers)+2)
	for k, v := range msg.Headers {
		headers[k] = v
	}
	headers[HeaderError] = scrubErrMsg(cause.Error())
	headers[HeaderSourceTopic] = msg.Topic

	_, err := w.deadLetter.Publish(ctx, mq.Message{
		Topic:   w.deadLetterTopic,
		Key:     msg.Key,
		Value:   msg.Value,
		Headers: headers,
	})
	if err != nil {
		// 死信写入失败时不提交位点，等待重投
		zlog.Error("notification ingest dead-letter publish failed", zap.String("topic", w.deadLetterTopic), zap.Error(err))
		return err
	}
	return nil
}

func scrubErrMsg(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 255 {
		return s[:255]
	}
	return s
}
