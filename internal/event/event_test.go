package event_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victornm/quizluv/internal/event"
)

func TestBus_PublishSubscribe(t *testing.T) {
	type (
		inputs struct {
			published   []event.Event
			subscribers []subscriber
		}

		outputs struct {
			received map[string][]event.Event
		}
	)

	tests := map[string]struct {
		arrange func() inputs
		assert  func(t *testing.T, out outputs)
	}{
		"a subscriber only receives events it subscribed to": {
			arrange: func() inputs {
				return inputs{
					published: []event.Event{
						named("quiz.submitted"),
						named("leaderboard.recorded"),
					},
					subscribers: []subscriber{
						{name: "metrics", subscribeTo: []string{"quiz.submitted"}},
					},
				}
			},

			assert: func(t *testing.T, out outputs) {
				assert.ElementsMatch(t, []event.Event{named("quiz.submitted")}, out.received["metrics"])
			},
		},

		"an event is fanned out to every subscriber": {
			arrange: func() inputs {
				return inputs{
					published: []event.Event{
						named("leaderboard.recorded"),
					},
					subscribers: []subscriber{
						{name: "notifier", subscribeTo: []string{"leaderboard.recorded"}},
						{name: "metrics", subscribeTo: []string{"leaderboard.recorded"}},
					},
				}
			},

			assert: func(t *testing.T, out outputs) {
				assert.ElementsMatch(t, []event.Event{named("leaderboard.recorded")}, out.received["notifier"])
				assert.ElementsMatch(t, []event.Event{named("leaderboard.recorded")}, out.received["metrics"])
			},
		},

		"repeated events are all delivered": {
			arrange: func() inputs {
				return inputs{
					published: []event.Event{
						named("quiz.submitted"),
						named("leaderboard.recorded"),
						named("quiz.submitted"),
					},
					subscribers: []subscriber{
						{name: "metrics", subscribeTo: []string{"quiz.submitted", "leaderboard.recorded"}},
					},
				}
			},

			assert: func(t *testing.T, out outputs) {
				assert.ElementsMatch(t, []event.Event{
					named("quiz.submitted"),
					named("quiz.submitted"),
					named("leaderboard.recorded"),
				}, out.received["metrics"])
			},
		},

		"an event without subscribers is a no-op": {
			arrange: func() inputs {
				return inputs{
					published: []event.Event{named("quiz.submitted")},
				}
			},

			assert: func(t *testing.T, out outputs) {
				assert.Empty(t, out.received)
			},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			in := tt.arrange()
			mu := sync.Mutex{}
			out := outputs{received: make(map[string][]event.Event)}

			b := event.NewBus()
			for _, s := range in.subscribers {
				for _, e := range s.subscribeTo {
					b.Subscribe(e, func(ctx context.Context, e event.Event) error {
						mu.Lock()
						out.received[s.name] = append(out.received[s.name], e)
						mu.Unlock()
						return nil
					})
				}
			}

			for _, e := range in.published {
				b.Publish(context.Background(), e)
			}
			b.Stop()

			tt.assert(t, out)
		})
	}
}

func TestBus_HandlerFailuresDoNotStopOthers(t *testing.T) {
	b := event.NewBus()

	var delivered atomic.Int32
	b.Subscribe("e", func(context.Context, event.Event) error { panic("boom") })
	b.Subscribe("e", func(context.Context, event.Event) error { return errors.New("failed") })
	b.Subscribe("e", func(context.Context, event.Event) error {
		delivered.Add(1)
		return nil
	})

	b.Publish(context.Background(), named("e"))
	b.Stop()

	assert.Equal(t, int32(1), delivered.Load())
}

func TestBus_HandlerOutlivesPublisherContext(t *testing.T) {
	b := event.NewBus()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	b.Subscribe("e", func(ctx context.Context, _ event.Event) error {
		time.Sleep(20 * time.Millisecond)
		done <- ctx.Err()
		return nil
	})

	b.Publish(ctx, named("e"))
	cancel()
	b.Stop()

	require.NoError(t, <-done)
}

func TestBus_DropsEventsAfterStop(t *testing.T) {
	b := event.NewBus()

	var delivered atomic.Int32
	b.Subscribe("e", func(context.Context, event.Event) error {
		delivered.Add(1)
		return nil
	})

	b.Stop()
	b.Publish(context.Background(), named("e"))

	assert.Equal(t, int32(0), delivered.Load())
}

func TestBus_StopWhilePublishing(t *testing.T) {
	b := event.NewBus()

	var running, delivered atomic.Int32
	b.Subscribe("e", func(context.Context, event.Event) error {
		running.Add(1)
		defer running.Add(-1)

		time.Sleep(time.Millisecond)
		delivered.Add(1)
		return nil
	})

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				b.Publish(context.Background(), named("e"))
			}
		}()
	}

	time.Sleep(5 * time.Millisecond)
	b.Stop()

	assert.Equal(t, int32(0), running.Load(), "no handler may run after Stop returns")
	afterStop := delivered.Load()

	wg.Wait()
	time.Sleep(5 * time.Millisecond)
	assert.Equal(t, afterStop, delivered.Load(), "events published after Stop are dropped")
}

func TestBus_BoundsConcurrency(t *testing.T) {
	b := event.NewBus(event.WithConcurrency(2))

	var running, peak atomic.Int32
	b.Subscribe("e", func(context.Context, event.Event) error {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		running.Add(-1)
		return nil
	})

	for i := 0; i < 10; i++ {
		b.Publish(context.Background(), named("e"))
	}
	b.Stop()

	assert.LessOrEqual(t, peak.Load(), int32(2))
}

type named string

func (e named) Name() string {
	return string(e)
}

type subscriber struct {
	name        string
	subscribeTo []string
}
