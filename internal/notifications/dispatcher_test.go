package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type blockingResult struct {
	release chan struct{}
	err     error
}

func (r *blockingResult) Get(ctx context.Context) (string, error) {
	select {
	case <-r.release:
		return "server-id", r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

type fakePublisher struct {
	mu       sync.Mutex
	messages []*pubsub.Message
	result   *blockingResult
}

func (p *fakePublisher) Publish(_ context.Context, msg *pubsub.Message) Result {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, msg)
	return p.result
}

func TestPubSubDispatcherDoesNotWaitForDelivery(t *testing.T) {
	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "test", Level: zerolog.InfoLevel, Output: &buf})
	pub := &fakePublisher{result: &blockingResult{release: make(chan struct{}), err: errors.New("topic unavailable")}}
	dispatcher, err := NewPubSubDispatcher(pub, logg)
	require.NoError(t, err)

	returned := make(chan struct{})
	go func() {
		dispatcher.Notify(context.Background(), Notification{
			Channel:   enums.NotificationChannelOrder,
			Event:     EventOrderPlaced,
			Recipient: "7",
			Data:      map[string]any{"order_id": "abc"},
		})
		close(returned)
	}()

	select {
	case <-returned:
	case <-time.After(2 * time.Second):
		t.Fatal("Notify blocked on publish result")
	}

	close(pub.result.release)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, dispatcher.Drain(ctx))

	require.Len(t, pub.messages, 1)
	msg := pub.messages[0]
	assert.Equal(t, "order", msg.Attributes["channel"])
	assert.Equal(t, EventOrderPlaced, msg.Attributes["event"])

	var envelope Envelope
	require.NoError(t, json.Unmarshal(msg.Data, &envelope))
	assert.NotEmpty(t, envelope.ID)
	assert.Equal(t, enums.NotificationChannelOrder, envelope.Channel)
	assert.Equal(t, "abc", envelope.Data["order_id"])

	assert.Contains(t, buf.String(), "notification.publish_failed")
}

func TestPubSubDispatcherRequiresDeps(t *testing.T) {
	_, err := NewPubSubDispatcher(nil, logger.Nop())
	assert.Error(t, err)
	_, err = NewPubSubDispatcher(&fakePublisher{}, nil)
	assert.Error(t, err)
}

func TestLogDispatcherWritesEnvelope(t *testing.T) {
	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "test", Level: zerolog.InfoLevel, Output: &buf})

	NewLogDispatcher(logg).Notify(context.Background(), Notification{
		Channel:   enums.NotificationChannelSMS,
		Event:     EventSMSCode,
		Recipient: "13800138000",
		Data:      map[string]any{"code": "123456", "ttl_minutes": 5},
	})

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "notification.dispatched", line["message"])
	assert.Equal(t, "sms", line["channel"])
	assert.Equal(t, "13800138000", line["recipient"])
	assert.Equal(t, "[redacted]", line["data_code"])
	assert.EqualValues(t, 5, line["data_ttl_minutes"])
	assert.NotContains(t, buf.String(), "123456")
}

func TestLogDispatcherRedactsLinks(t *testing.T) {
	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "test", Level: zerolog.InfoLevel, Output: &buf})

	NewLogDispatcher(logg).Notify(context.Background(), Notification{
		Channel:   enums.NotificationChannelEmail,
		Event:     EventEmailVerification,
		Recipient: "a@b.c",
		Data: map[string]any{
			"verify_url":   "https://shop.example/verify?token=abc.def",
			"access_token": "abc.def",
			"order_id":     "o-1",
		},
	})

	assert.NotContains(t, buf.String(), "abc.def")
	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "[redacted]", line["data_verify_url"])
	assert.Equal(t, "[redacted]", line["data_access_token"])
	assert.Equal(t, "o-1", line["data_order_id"])
}

func TestPubSubDispatcherDropsAfterDrain(t *testing.T) {
	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "test", Level: zerolog.InfoLevel, Output: &buf})
	release := make(chan struct{})
	close(release)
	pub := &fakePublisher{result: &blockingResult{release: release}}
	dispatcher, err := NewPubSubDispatcher(pub, logg)
	require.NoError(t, err)

	require.NoError(t, dispatcher.Drain(context.Background()))

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			dispatcher.Notify(context.Background(), Notification{Channel: enums.NotificationChannelOrder, Event: EventOrderPlaced})
		}()
	}
	wg.Wait()

	assert.Empty(t, pub.messages)
	assert.Contains(t, buf.String(), "notification.dropped_after_drain")
	require.NoError(t, dispatcher.Drain(context.Background()))
}
