package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/google/uuid"
)

// Event names carried in the envelope.
const (
	EventSMSCode           = "sms.code"
	EventEmailVerification = "email.verification"
	EventOrderPlaced       = "order.placed"
	EventOrderCanceled     = "order.canceled"
)

const defaultPublishWait = 30 * time.Second

// Notification is a side-channel message. Delivery is best effort.
type Notification struct {
	Channel   enums.NotificationChannel
	Event     string
	Recipient string
	Data      map[string]any
}

// Envelope is the JSON body published for each notification.
type Envelope struct {
	ID         string                    `json:"id"`
	Channel    enums.NotificationChannel `json:"channel"`
	Event      string                    `json:"event"`
	Recipient  string                    `json:"recipient,omitempty"`
	Data       map[string]any            `json:"data,omitempty"`
	OccurredAt time.Time                 `json:"occurred_at"`
}

// Dispatcher hands notifications off without waiting for delivery.
type Dispatcher interface {
	Notify(ctx context.Context, n Notification)
}

// Result is the pending outcome of one publish.
type Result interface {
	Get(ctx context.Context) (string, error)
}

// Publisher abstracts the topic so tests can stand in for Pub/Sub.
type Publisher interface {
	Publish(ctx context.Context, msg *pubsub.Message) Result
}

type topicPublisher struct {
	publisher *pubsub.Publisher
}

// NewTopicPublisher adapts a Pub/Sub publisher.
func NewTopicPublisher(publisher *pubsub.Publisher) Publisher {
	return topicPublisher{publisher: publisher}
}

func (t topicPublisher) Publish(ctx context.Context, msg *pubsub.Message) Result {
	return t.publisher.Publish(ctx, msg)
}

// PubSubDispatcher publishes envelopes to the notifications topic. Publish
// results are awaited in the background purely to log failures.
type PubSubDispatcher struct {
	publisher Publisher
	logg      *logger.Logger
	wait      time.Duration
	now       func() time.Time

	mu       sync.Mutex
	closed   bool
	inflight sync.WaitGroup
}

// NewPubSubDispatcher builds a dispatcher on publisher.
func NewPubSubDispatcher(publisher Publisher, logg *logger.Logger) (*PubSubDispatcher, error) {
	if publisher == nil {
		return nil, fmt.Errorf("publisher required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &PubSubDispatcher{publisher: publisher, logg: logg, wait: defaultPublishWait, now: time.Now}, nil
}

// Notify drops the notification once Drain has started.
func (d *PubSubDispatcher) Notify(ctx context.Context, n Notification) {
	envelope := newEnvelope(n, d.now())
	ctx = d.logg.WithFields(ctx, map[string]any{
		"notification_id": envelope.ID,
		"channel":         string(envelope.Channel),
		"event":           envelope.Event,
	})

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		d.logg.Warn(ctx, "notification.dropped_after_drain")
		return
	}
	d.inflight.Add(1)
	d.mu.Unlock()

	body, err := json.Marshal(envelope)
	if err != nil {
		d.inflight.Done()
		d.logg.Error(ctx, "notification.encode_failed", err)
		return
	}

	// The request may finish before the publish does.
	publishCtx := context.WithoutCancel(ctx)
	result := d.publisher.Publish(publishCtx, &pubsub.Message{
		Data: body,
		Attributes: map[string]string{
			"channel": string(envelope.Channel),
			"event":   envelope.Event,
		},
	})

	go func() {
		defer d.inflight.Done()
		waitCtx, cancel := context.WithTimeout(publishCtx, d.wait)
		defer cancel()
		if _, err := result.Get(waitCtx); err != nil {
			d.logg.WarnErr(publishCtx, "notification.publish_failed", err)
		}
	}()
}

// Drain stops accepting notifications and blocks until background publish
// results are collected or ctx ends.
func (d *PubSubDispatcher) Drain(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// LogDispatcher writes notifications to the log. Used when no topic is configured.
type LogDispatcher struct {
	logg *logger.Logger
	now  func() time.Time
}

func NewLogDispatcher(logg *logger.Logger) *LogDispatcher {
	return &LogDispatcher{logg: logg, now: time.Now}
}

func (d *LogDispatcher) Notify(ctx context.Context, n Notification) {
	envelope := newEnvelope(n, d.now())
	fields := map[string]any{
		"notification_id": envelope.ID,
		"channel":         string(envelope.Channel),
		"event":           envelope.Event,
		"recipient":       envelope.Recipient,
	}
	for k, v := range envelope.Data {
		if sensitiveField(k) {
			v = redactedValue
		}
		fields["data_"+k] = v
	}
	d.logg.Info(d.logg.WithFields(ctx, fields), "notification.dispatched")
}

const redactedValue = "[redacted]"

// sensitiveField reports whether a data key carries a one-time code or a
// credential-bearing link.
func sensitiveField(key string) bool {
	key = strings.ToLower(key)
	if key == "code" {
		return true
	}
	for _, marker := range []string{"token", "secret", "password", "url", "link"} {
		if strings.Contains(key, marker) {
			return true
		}
	}
	return false
}

func newEnvelope(n Notification, now time.Time) Envelope {
	return Envelope{
		ID:         uuid.NewString(),
		Channel:    n.Channel,
		Event:      n.Event,
		Recipient:  n.Recipient,
		Data:       n.Data,
		OccurredAt: now.UTC(),
	}
}
