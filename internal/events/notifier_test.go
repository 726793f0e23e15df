package events

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	topics []string
	keys   []string
	ctxErr error
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, topic, key string, _ any) error {
	p.topics = append(p.topics, topic)
	p.keys = append(p.keys, key)
	p.ctxErr = ctx.Err()
	return p.err
}

func TestEmitPrefixesTopic(t *testing.T) {
	pub := &recordingPublisher{}
	n := NewNotifier(pub, "bookkeeping.", nil)

	n.Emit(context.Background(), "sale.recorded", "s1", struct{}{})

	assert.Equal(t, []string{"bookkeeping.sale.recorded"}, pub.topics)
	assert.Equal(t, []string{"s1"}, pub.keys)
}

func TestEmitIgnoresCallerCancellation(t *testing.T) {
	pub := &recordingPublisher{}
	n := NewNotifier(pub, "", nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	n.Emit(ctx, "sale.recorded", "s1", struct{}{})

	assert.NoError(t, pub.ctxErr)
}

func TestEmitLogsFailure(t *testing.T) {
	logger, hook := test.NewNullLogger()
	n := NewNotifier(&recordingPublisher{err: errors.New("broker down")}, "", logger)

	n.Emit(context.Background(), "expense.recorded", "e1", struct{}{})

	require.Len(t, hook.Entries, 1)
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.Equal(t, "e1", hook.LastEntry().Data["key"])
}

func TestNilNotifierIsSilent(t *testing.T) {
	var n *Notifier
	assert.NotPanics(t, func() { n.Emit(context.Background(), "x", "y", nil) })
}

func TestLogPublisher(t *testing.T) {
	logger, hook := test.NewNullLogger()
	require.NoError(t, NewLogPublisher(logger).Publish(context.Background(), "t", "k", map[string]int{"n": 1}))
	require.Len(t, hook.Entries, 1)
	assert.Equal(t, "t", hook.LastEntry().Data["topic"])
}
