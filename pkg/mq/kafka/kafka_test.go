package kafka

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"Herald/pkg/mq"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublisher_SendsKeyValueAndHeaders(t *testing.T) {
	mp := mocks.NewSyncProducer(t, nil)
	mp.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(pm *sarama.ProducerMessage) error {
		if pm.Topic != "herald.notifications.dlq" {
			return errors.New("wrong topic " + pm.Topic)
		}
		key, _ := pm.Key.Encode()
		if string(key) != "u1" {
			return errors.New("wrong key")
		}
		if len(pm.Headers) != 2 || string(pm.Headers[0].Key) != "a-reason" {
			return errors.New("headers not sorted")
		}
		return nil
	})

	p := newPublisher(mp)
	defer p.Close()

	_, err := p.Publish(context.Background(), mq.Message{
		Topic:   "herald.notifications.dlq",
		Key:     []byte("u1"),
		Value:   []byte(`{}`),
		Headers: map[string]string{"b-source": "ingest", "a-reason": "bad json", " ": "skipped"},
	})
	require.NoError(t, err)
}

func TestPublisher_RejectsEmptyTopicAndCancelledContext(t *testing.T) {
	p := newPublisher(mocks.NewSyncProducer(t, nil))
	defer p.Close()

	_, err := p.Publish(context.Background(), mq.Message{Value: []byte("x")})
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Publish(ctx, mq.Message{Topic: "t", Value: []byte("x")})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHandleWithRetry_RetriesUntilSuccess(t *testing.T) {
	var calls atomic.Int32
	h := mq.HandlerFunc(func(context.Context, mq.Message) error {
		if calls.Add(1) < 3 {
			return errors.New("store unavailable")
		}
		return nil
	})

	ok := handleWithRetry(context.Background(), h, mq.Message{Topic: "t"})
	assert.True(t, ok)
	assert.Equal(t, int32(3), calls.Load())
}

func TestHandleWithRetry_StopsWhenSessionEnds(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	h := mq.HandlerFunc(func(context.Context, mq.Message) error { return errors.New("down") })

	assert.False(t, handleWithRetry(ctx, h, mq.Message{Topic: "t"}))
}

func TestToMessage_CopiesHeaders(t *testing.T) {
	m := toMessage(&sarama.ConsumerMessage{
		Topic: "t",
		Key:   []byte("k"),
		Value: []byte("v"),
		Headers: []*sarama.RecordHeader{
			{Key: []byte("trace"), Value: []byte("abc")},
			nil,
			{Key: nil, Value: []byte("ignored")},
		},
	})
	assert.Equal(t, "t", m.Topic)
	assert.Equal(t, map[string]string{"trace": "abc"}, m.Headers)
}

func TestConsumerConfig_Validate(t *testing.T) {
	assert.Error(t, ConsumerConfig{}.validate())
	assert.Error(t, ConsumerConfig{Brokers: []string{"b:9092"}}.validate())
	assert.Error(t, ConsumerConfig{Brokers: []string{"b:9092"}, GroupID: "g"}.validate())
	assert.NoError(t, ConsumerConfig{Brokers: []string{"b:9092"}, GroupID: "g", Topics: []string{"t"}}.validate())
}

func TestTopicSpec_Defaults(t *testing.T) {
	d := TopicSpec{Name: "t"}.detail()
	assert.Equal(t, int32(1), d.NumPartitions)
	assert.Equal(t, int16(1), d.ReplicationFactor)
	require.NotNil(t, d.ConfigEntries["retention.ms"])
	assert.Equal(t, "604800000", *d.ConfigEntries["retention.ms"])
}
