package bus

import (
	"context"
	"testing"
	"time"

	"github.com/anthonycursewl/wheek-fulfillment/internal/domain/event"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testEvent struct{ name string }

func (e testEvent) EventName() string { return e.name }

func newStartedBus(t *testing.T) *Bus {
	t.Helper()
	b := New(zap.NewNop())
	b.Start(context.Background())
	t.Cleanup(func() { b.Stop(context.Background()) })
	return b
}

func TestPublishDeliversToSubscribers(t *testing.T) {
	b := newStartedBus(t)

	got := make(chan event.Event, 2)
	handler := func(_ context.Context, e event.Event) error {
		got <- e
		return nil
	}
	b.Subscribe("order.approved", handler)
	b.Subscribe("order.approved", handler)
	b.Subscribe("order.rejected", handler)

	require.NoError(t, b.Publish(context.Background(), testEvent{name: "order.approved"}))

	for i := 0; i < 2; i++ {
		select {
		case e := <-got:
			require.Equal(t, "order.approved", e.EventName())
		case <-time.After(time.Second):
			t.Fatal("handler was not invoked")
		}
	}
	// the order.rejected subscriber must not see the event
	select {
	case <-got:
		t.Fatal("unexpected delivery")
	case <-time.After(20 * time.Millisecond):
	}
}

func TestPanickingHandlerDoesNotStopOthers(t *testing.T) {
	b := newStartedBus(t)

	got := make(chan struct{}, 1)
	b.Subscribe("order.approved", func(context.Context, event.Event) error {
		panic("handler bug")
	})
	b.Subscribe("order.approved", func(context.Context, event.Event) error {
		got <- struct{}{}
		return nil
	})

	require.NoError(t, b.Publish(context.Background(), testEvent{name: "order.approved"}))

	select {
	case <-got:
	case <-time.After(time.Second):
		t.Fatal("second handler was not invoked after panic")
	}
}

func TestPublishNilAndUnsubscribedEvents(t *testing.T) {
	b := newStartedBus(t)

	require.NoError(t, b.Publish(context.Background(), nil))
	require.NoError(t, b.Publish(context.Background(), testEvent{name: "nobody.listens"}))
}
