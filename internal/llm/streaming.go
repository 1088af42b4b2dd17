package llm

import "context"

// StreamEvent is a single event in a streaming response.
type StreamEvent struct {
	Type    string // "text", "done", "error"
	Content string // Text content for "text" events.
	Error   error  // Error for "error" events.
}

// StreamingProvider extends Provider with streaming support. Providers
// without native streaming can be wrapped with NonStreamingAdapter.
type StreamingProvider interface {
	Provider
	// StreamMessage sends a request and streams events to the channel.
	// The channel is closed when the response completes or fails.
	StreamMessage(ctx context.Context, req *Request, events chan<- StreamEvent) error
}

// NonStreamingAdapter implements StreamingProvider over a buffered
// SendMessage call, delivering the reply as a single event.
type NonStreamingAdapter struct {
	Provider
}

// StreamMessage calls SendMessage and sends the result as buffered events.
func (a *NonStreamingAdapter) StreamMessage(ctx context.Context, req *Request, events chan<- StreamEvent) error {
	defer close(events)

	resp, err := a.SendMessage(ctx, req)
	if err != nil {
		events <- StreamEvent{Type: "error", Error: err}
		return err
	}
	if resp.Content != "" {
		events <- StreamEvent{Type: "text", Content: resp.Content}
	}
	events <- StreamEvent{Type: "done"}
	return nil
}
