package events

import (
	"context"

	"github.com/sirupsen/logrus"

	interfaces "github.com/sheikh-saqib/ngo-bookkeeping-ledger/internal/interfaces"
	"github.com/sheikh-saqib/ngo-bookkeeping-ledger/internal/metrics"
)

// Notifier emits events for committed operations. It never reports an
// error to the caller: a failed delivery is logged and counted only.
type Notifier struct {
	publisher interfaces.EventPublisher
	prefix    string
	log       *logrus.Logger
}

func NewNotifier(publisher interfaces.EventPublisher, topicPrefix string, log *logrus.Logger) *Notifier {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Notifier{publisher: publisher, prefix: topicPrefix, log: log}
}

// Emit publishes event under topic. A nil Notifier drops the event.
func (n *Notifier) Emit(ctx context.Context, topic, key string, event any) {
	if n == nil || n.publisher == nil {
		return
	}
	topic = n.prefix + topic

	// the operation has already committed; its request may be cancelled
	ctx = context.WithoutCancel(ctx)
	if err := n.publisher.Publish(ctx, topic, key, event); err != nil {
		metrics.NotificationFailed(topic)
		n.log.WithFields(logrus.Fields{
			"topic": topic,
			"key":   key,
		}).WithError(err).Warn("notification not delivered")
	}
}

// LogPublisher writes events to the logger. It is used when no broker is
// configured.
type LogPublisher struct {
	log *logrus.Logger
}

func NewLogPublisher(log *logrus.Logger) *LogPublisher {
	return &LogPublisher{log: log}
}

func (p *LogPublisher) Publish(_ context.Context, topic string, key string, event any) error {
	p.log.WithFields(logrus.Fields{
		"topic": topic,
		"key":   key,
		"event": event,
	}).Info("event")
	return nil
}

var _ interfaces.EventPublisher = (*LogPublisher)(nil)
