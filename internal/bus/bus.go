// Package bus is an in-process publish/subscribe system. Each topic name is
// bound to exactly one payload type; publishing or subscribing to an
// existing topic under a different type panics, the same contract the
// reference pub/sub module enforces with a runtime type-id assertion.
//
// Unlike a direct fan-out (write straight to every subscriber channel on
// Publish), messages are queued per-topic and only delivered when Tick runs.
// This mirrors the reference implementation's two-stage design and lets a
// single background ticker drive delivery for an entire graph of publishers
// and subscribers at a bounded cadence.
package bus

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/banshee-data/slamcore/internal/telemetry"
	"github.com/google/uuid"
)

// ErrTopicType wraps the panic value raised when a topic already bound to
// one payload type is claimed again under a different type. It is not
// returned from any function; it is the sentinel errors.Is callers match
// against after recovering from topicFor's panic.
var ErrTopicType = errors.New("bus: topic already claimed by a different type")

// Bus routes typed messages between publishers and subscribers grouped by
// topic name.
type Bus struct {
	mu     sync.Mutex
	topics map[string]*topic

	// signal is pinged (non-blocking) on every Publish so a ticker can wake
	// up promptly instead of waiting out its full timeout.
	signal chan struct{}
}

type topic struct {
	valueType reflect.Type
	incoming  chan any
	// incomingDropped counts values dropped by Publisher.Send because
	// incoming was full: spec.md §4.1's "implementers may impose a
	// high-water mark, returning a dropped-count metric" option.
	incomingDropped atomic.Uint64

	subMu       sync.Mutex
	subscribers map[string]*subscriberChan
}

// subscriberChan is a single subscriber's fan-out queue plus its own
// dropped-message counter, incremented when Tick finds the queue full.
type subscriberChan struct {
	ch      chan any
	dropped atomic.Uint64
}

// New returns an empty Bus.
func New() *Bus {
	return &Bus{
		topics: make(map[string]*topic),
		signal: make(chan struct{}, 1),
	}
}

func (b *Bus) topicFor(name string, t reflect.Type) *topic {
	b.mu.Lock()
	defer b.mu.Unlock()

	tp, ok := b.topics[name]
	if !ok {
		tp = &topic{
			valueType:   t,
			incoming:    make(chan any, 64),
			subscribers: make(map[string]*subscriberChan),
		}
		b.topics[name] = tp
		return tp
	}
	if tp.valueType != t {
		err := fmt.Errorf("bus: topic %q already claimed by type %s, but requested type is %s: %w",
			name, tp.valueType, t, ErrTopicType)
		telemetry.Logf("%v", err)
		panic(err)
	}
	return tp
}

// Publisher sends values of type T to a single topic.
type Publisher[T any] struct {
	topicName string
	tp        *topic
	b         *Bus
}

// Publish registers the caller as a publisher of T on the given topic.
func Publish[T any](b *Bus, topicName string) *Publisher[T] {
	var zero T
	tp := b.topicFor(topicName, reflect.TypeOf(zero))
	return &Publisher[T]{topicName: topicName, tp: tp, b: b}
}

// Topic returns the name of the topic this publisher sends to.
func (p *Publisher[T]) Topic() string { return p.topicName }

// Send queues value for delivery to every current subscriber on the next
// Tick. value is shared by reference with every subscriber; callers should
// treat it as immutable once sent.
func (p *Publisher[T]) Send(value *T) {
	select {
	case p.tp.incoming <- value:
	default:
		// topic buffer full; drop rather than block the publisher.
		p.tp.incomingDropped.Add(1)
	}
	select {
	case p.b.signal <- struct{}{}:
	default:
	}
}

// DroppedCount returns the number of values dropped because this topic's
// incoming queue was full when Send was called.
func (p *Publisher[T]) DroppedCount() uint64 { return p.tp.incomingDropped.Load() }

// Subscription receives values of type T published to a single topic.
type Subscription[T any] struct {
	topicName string
	id        string
	sc        *subscriberChan
	tp        *topic
	b         *Bus
}

// Subscribe registers the caller as a subscriber of T on the given topic.
func Subscribe[T any](b *Bus, topicName string) *Subscription[T] {
	var zero T
	tp := b.topicFor(topicName, reflect.TypeOf(zero))

	id := uuid.NewString()
	sc := &subscriberChan{ch: make(chan any, 16)}

	tp.subMu.Lock()
	tp.subscribers[id] = sc
	tp.subMu.Unlock()

	return &Subscription[T]{topicName: topicName, id: id, sc: sc, tp: tp, b: b}
}

// Topic returns the name of the topic this subscription is bound to.
func (s *Subscription[T]) Topic() string { return s.topicName }

// TryRecv returns the next queued value without blocking, or ok=false if
// none is available.
func (s *Subscription[T]) TryRecv() (*T, bool) {
	select {
	case v := <-s.sc.ch:
		return v.(*T), true
	default:
		return nil, false
	}
}

// Recv blocks until a value is available or ctx is done.
func (s *Subscription[T]) Recv(ctx context.Context) (*T, error) {
	select {
	case v := <-s.sc.ch:
		return v.(*T), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// DroppedCount returns the number of values dropped for this subscription
// because its fan-out queue was full when Tick attempted delivery.
func (s *Subscription[T]) DroppedCount() uint64 { return s.sc.dropped.Load() }

// Unsubscribe removes this subscription from its topic. It is safe to call
// more than once.
func (s *Subscription[T]) Unsubscribe() {
	s.tp.subMu.Lock()
	defer s.tp.subMu.Unlock()
	if sc, ok := s.tp.subscribers[s.id]; ok {
		delete(s.tp.subscribers, s.id)
		close(sc.ch)
	}
}

// Tick drains every topic's incoming queue and fans each message out to all
// current subscribers of that topic. A subscriber whose buffer is full has
// the message dropped rather than the Tick call blocking.
func (b *Bus) Tick() {
	b.mu.Lock()
	topics := make([]*topic, 0, len(b.topics))
	for _, tp := range b.topics {
		topics = append(topics, tp)
	}
	b.mu.Unlock()

	for _, tp := range topics {
		for {
			var v any
			select {
			case v = <-tp.incoming:
			default:
			}
			if v == nil {
				break
			}
			tp.subMu.Lock()
			for _, sc := range tp.subscribers {
				select {
				case sc.ch <- v:
				default:
					// subscriber buffer full; drop rather than block the tick.
					sc.dropped.Add(1)
				}
			}
			tp.subMu.Unlock()
		}
	}

	// drain any coalesced signals left over from publishes processed above.
	select {
	case <-b.signal:
	default:
	}
}
