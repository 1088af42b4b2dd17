package llm

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
)

type stubProvider struct {
	name string
	resp *Response
	err  error
}

func (s *stubProvider) SendMessage(context.Context, *Request) (*Response, error) {
	return s.resp, s.err
}

func (s *stubProvider) Name() string { return s.name }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFallbackProvider_PrimarySucceeds(t *testing.T) {
	f := NewFallbackProvider([]Provider{
		&stubProvider{name: "openai", resp: &Response{Content: "hi"}},
		&stubProvider{name: "simple", err: errors.New("must not be called")},
	}, discardLogger())

	resp, err := f.SendMessage(context.Background(), &Request{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "hi" {
		t.Errorf("content = %q", resp.Content)
	}
	if f.Name() != "openai+fallback" {
		t.Errorf("name = %q", f.Name())
	}
}

func TestFallbackProvider_FallsThrough(t *testing.T) {
	f := NewFallbackProvider([]Provider{
		&stubProvider{name: "openai", err: errors.New("down")},
		&stubProvider{name: "simple", resp: &Response{Content: "baba"}},
	}, discardLogger())

	resp, err := f.SendMessage(context.Background(), &Request{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "baba" {
		t.Errorf("content = %q", resp.Content)
	}
}

func TestFallbackProvider_AllFail(t *testing.T) {
	f := NewFallbackProvider([]Provider{
		&stubProvider{name: "a", err: errors.New("down")},
		&stubProvider{name: "b", err: errors.New("also down")},
	}, discardLogger())

	if _, err := f.SendMessage(context.Background(), &Request{}); err == nil {
		t.Fatal("expected error when every provider fails")
	}
}

func TestLastUserMessage(t *testing.T) {
	req := &Request{Messages: []Message{
		{Role: RoleUser, Content: "first"},
		{Role: RoleAssistant, Content: "reply"},
		{Role: RoleUser, Content: "second"},
	}}
	if got := req.LastUserMessage(); got != "second" {
		t.Errorf("LastUserMessage = %q", got)
	}
	if got := (&Request{}).LastUserMessage(); got != "" {
		t.Errorf("empty request returned %q", got)
	}
}
