package ws

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/ckaya/ali/internal/config"
	"github.com/ckaya/ali/internal/llm/simple"
	"github.com/ckaya/ali/internal/mind"
	"github.com/ckaya/ali/internal/protocol"
	"github.com/ckaya/ali/internal/storage/sqlite"
)

func newTestServer(t *testing.T, cfg *config.WSGatewayConfig) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dataDir := t.TempDir()

	store, err := sqlite.Open(sqlite.Config{Path: filepath.Join(dataDir, "ali.db")}, logger)
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("migrating: %v", err)
	}

	m, err := mind.New(&config.Config{DataDir: dataDir}, store, simple.NewClient(1), logger)
	if err != nil {
		t.Fatalf("building mind: %v", err)
	}

	srv := httptest.NewServer(NewServer(m, cfg, logger).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := strings.Replace(srv.URL, "http", "ws", 1)
	if token != "" {
		url += "?token=" + token
	}
	conn, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{
		Subprotocols: []string{"ali-chat-v1"},
	})
	if err != nil {
		t.Fatalf("dialing: %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "test done") })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, msgType protocol.MessageType, payload any) {
	t.Helper()
	env, err := protocol.NewEnvelope(msgType, payload)
	if err != nil {
		t.Fatal(err)
	}
	data, _ := json.Marshal(env)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		t.Fatalf("writing: %v", err)
	}
}

func read(t *testing.T, conn *websocket.Conn) protocol.Envelope {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("reading: %v", err)
	}
	var env protocol.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("decoding envelope: %v", err)
	}
	return env
}

func TestAuth_RejectsMissingToken(t *testing.T) {
	srv := newTestServer(t, &config.WSGatewayConfig{Token: "secret"})

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}

func TestChat_PrivilegedReply(t *testing.T) {
	srv := newTestServer(t, &config.WSGatewayConfig{Token: "secret"})
	conn := dial(t, srv, "secret")

	send(t, conn, protocol.MsgChat, protocol.ChatPayload{Content: "Merhaba Ali"})

	env := read(t, conn)
	if env.Type != protocol.MsgReply {
		t.Fatalf("type = %s, want %s", env.Type, protocol.MsgReply)
	}
	var reply protocol.ReplyPayload
	if err := env.Decode(&reply); err != nil {
		t.Fatal(err)
	}
	if reply.Content == "" {
		t.Error("empty reply content")
	}
	if reply.Emotion == "" {
		t.Error("reply carries no emotion")
	}
}

func TestChat_NameAloneGrantsNoPrivilege(t *testing.T) {
	// No token configured: connections are open but unprivileged.
	srv := newTestServer(t, &config.WSGatewayConfig{})
	conn := dial(t, srv, "")

	send(t, conn, protocol.MsgChat, protocol.ChatPayload{Content: "Aferin!", From: "Cihan"})

	env := read(t, conn)
	if env.Type != protocol.MsgReply {
		t.Fatalf("type = %s, want %s", env.Type, protocol.MsgReply)
	}
	// The reward phrasing from a non-privileged speaker must not land as
	// a creator reward; the reply still comes back normally.
	var reply protocol.ReplyPayload
	if err := env.Decode(&reply); err != nil {
		t.Fatal(err)
	}
	if reply.Content == "" {
		t.Error("empty reply content")
	}
}

func TestPingPong(t *testing.T) {
	srv := newTestServer(t, &config.WSGatewayConfig{})
	conn := dial(t, srv, "")

	send(t, conn, protocol.MsgPing, nil)
	if env := read(t, conn); env.Type != protocol.MsgPong {
		t.Errorf("type = %s, want %s", env.Type, protocol.MsgPong)
	}
}

func TestUnknownType(t *testing.T) {
	srv := newTestServer(t, &config.WSGatewayConfig{})
	conn := dial(t, srv, "")

	send(t, conn, protocol.MessageType("no.such.type"), nil)
	env := read(t, conn)
	if env.Type != protocol.MsgError {
		t.Fatalf("type = %s, want %s", env.Type, protocol.MsgError)
	}
	var perr protocol.ErrorPayload
	if err := env.Decode(&perr); err != nil {
		t.Fatal(err)
	}
	if perr.Code != "unknown_type" {
		t.Errorf("code = %s", perr.Code)
	}
}

func TestSubscribe_StreamsThoughts(t *testing.T) {
	srv := newTestServer(t, &config.WSGatewayConfig{Token: "secret", StreamThoughts: true})
	conn := dial(t, srv, "secret")

	send(t, conn, protocol.MsgSubscribe, protocol.SubscribePayload{Thoughts: true})
	send(t, conn, protocol.MsgChat, protocol.ChatPayload{Content: "Merhaba"})

	sawThought := false
	sawReply := false
	for i := 0; i < 10 && !(sawThought && sawReply); i++ {
		env := read(t, conn)
		switch env.Type {
		case protocol.MsgThought:
			var th protocol.ThoughtPayload
			if err := env.Decode(&th); err != nil {
				t.Fatal(err)
			}
			if th.Source == "" {
				t.Error("thought has no source")
			}
			sawThought = true
		case protocol.MsgReply:
			sawReply = true
		}
	}
	if !sawThought {
		t.Error("no thought broadcast received")
	}
	if !sawReply {
		t.Error("no reply received")
	}
}

func TestSubscribe_DisabledStream(t *testing.T) {
	srv := newTestServer(t, &config.WSGatewayConfig{})
	conn := dial(t, srv, "")

	send(t, conn, protocol.MsgSubscribe, protocol.SubscribePayload{Thoughts: true})
	env := read(t, conn)
	if env.Type != protocol.MsgError {
		t.Fatalf("type = %s, want %s", env.Type, protocol.MsgError)
	}
	var perr protocol.ErrorPayload
	if err := env.Decode(&perr); err != nil {
		t.Fatal(err)
	}
	if perr.Code != "stream_disabled" {
		t.Errorf("code = %s", perr.Code)
	}
}
