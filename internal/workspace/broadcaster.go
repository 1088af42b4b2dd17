package workspace

import (
	"context"
	"io"
	"log/slog"
	"sync"
)

// MessageType identifies the kind of message in a global broadcast.
type MessageType string

const (
	// MessageInput announces an external stimulus entering the system.
	MessageInput MessageType = "input"
	// MessageThought carries a thought, typically the round's winner.
	MessageThought MessageType = "thought"
)

// Message is a single broadcast delivered to every subscriber.
// Data and Metadata are owned by the producing and consuming modules;
// the broadcaster never inspects them.
type Message struct {
	Type     MessageType
	Data     map[string]any
	Metadata map[string]any
}

// SubscriberFunc receives broadcast messages. Errors (and panics) are
// logged and isolated; they never reach other subscribers or the caller
// of Broadcast.
type SubscriberFunc func(ctx context.Context, msg Message) error

// Broadcaster fans messages out to a named set of subscribers in
// registration order. One broken module must never stop the others.
type Broadcaster struct {
	logger  *slog.Logger
	metrics *Metrics

	mu      sync.Mutex
	order   []string // Registration order for deterministic delivery.
	subs    map[string]SubscriberFunc
	history []Message // Bounded ring, oldest first.
	cap     int
}

// NewBroadcaster creates a broadcaster with an empty registry.
func NewBroadcaster(logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = discardLogger()
	}
	return &Broadcaster{
		logger: logger,
		subs:   make(map[string]SubscriberFunc),
		cap:    DefaultHistoryCap,
	}
}

// WithMetrics attaches Prometheus metrics. Nil-safe.
func (b *Broadcaster) WithMetrics(m *Metrics) *Broadcaster {
	b.metrics = m
	return b
}

// Subscribe registers a callback under the given module name.
// Re-subscribing an existing name replaces the callback in place and keeps
// its original position in the delivery order — no duplicate fan-out.
func (b *Broadcaster) Subscribe(name string, fn SubscriberFunc) {
	b.mu.Lock()
	if _, exists := b.subs[name]; !exists {
		b.order = append(b.order, name)
	}
	b.subs[name] = fn
	b.mu.Unlock()
	b.logger.Debug("module subscribed", slog.String("module", name))
}

// Unsubscribe removes a registration. No-op if the name is unknown.
func (b *Broadcaster) Unsubscribe(name string) {
	b.mu.Lock()
	if _, exists := b.subs[name]; exists {
		delete(b.subs, name)
		for i, n := range b.order {
			if n == name {
				b.order = append(b.order[:i], b.order[i+1:]...)
				break
			}
		}
	}
	b.mu.Unlock()
	b.logger.Debug("module unsubscribed", slog.String("module", name))
}

// SubscriberCount returns the number of registered modules.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Broadcast delivers a message to every registered subscriber in
// registration order. The subscriber list is snapshotted first, so
// Subscribe/Unsubscribe during an in-flight broadcast affects only later
// broadcasts. Failures in one subscriber are logged and do not prevent
// delivery to the rest; Broadcast itself never returns an error.
func (b *Broadcaster) Broadcast(ctx context.Context, msgType MessageType, data, metadata map[string]any) {
	msg := Message{Type: msgType, Data: data, Metadata: metadata}
	if msg.Metadata == nil {
		msg.Metadata = map[string]any{}
	}

	b.mu.Lock()
	names := make([]string, len(b.order))
	copy(names, b.order)
	fns := make([]SubscriberFunc, len(names))
	for i, n := range names {
		fns[i] = b.subs[n]
	}
	b.mu.Unlock()

	b.logger.Debug("broadcasting",
		slog.String("type", string(msgType)),
		slog.Int("subscribers", len(names)),
	)

	for i, fn := range fns {
		b.deliver(ctx, names[i], fn, msg)
	}

	b.mu.Lock()
	b.history = append(b.history, msg)
	if len(b.history) > b.cap {
		b.history = b.history[len(b.history)-b.cap:]
	}
	b.mu.Unlock()
}

// deliver invokes a single subscriber, containing both errors and panics.
func (b *Broadcaster) deliver(ctx context.Context, name string, fn SubscriberFunc, msg Message) {
	defer func() {
		if r := recover(); r != nil {
			b.metrics.subscriberFailure(name)
			b.logger.Error("broadcast delivery panicked",
				slog.String("module", name),
				slog.Any("panic", r),
			)
		}
	}()
	if err := fn(ctx, msg); err != nil {
		b.metrics.subscriberFailure(name)
		b.logger.Error("broadcast delivery failed",
			slog.String("module", name),
			slog.String("type", string(msg.Type)),
			slog.String("error", err.Error()),
		)
	}
}

// BroadcastThought emits a thought message, typically the round's winner.
func (b *Broadcaster) BroadcastThought(ctx context.Context, t Thought, wonCompetition bool) {
	b.Broadcast(ctx, MessageThought, t.Payload(), map[string]any{
		"won_competition": wonCompetition,
	})
}

// BroadcastInput emits an external-input message. This is how modules learn
// that a round has started.
func (b *Broadcaster) BroadcastInput(ctx context.Context, content string, privileged bool, extra map[string]any) {
	data := map[string]any{
		"content":    content,
		"privileged": privileged,
	}
	for k, v := range extra {
		data[k] = v
	}
	b.Broadcast(ctx, MessageInput, data, map[string]any{"source": "external"})
}

// RecentBroadcasts returns copies of the last n messages, most recent last.
func (b *Broadcaster) RecentBroadcasts(n int) []Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	if n <= 0 || len(b.history) == 0 {
		return nil
	}
	if n > len(b.history) {
		n = len(b.history)
	}
	out := make([]Message, n)
	copy(out, b.history[len(b.history)-n:])
	return out
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
