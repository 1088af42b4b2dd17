// Package ws implements the WebSocket chat channel. A client connects,
// authenticates with the shared token, and speaks to the mind in
// protocol envelopes. Clients may additionally subscribe to the thought
// stream and watch the workspace competition live.
package ws

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/ckaya/ali/internal/config"
	"github.com/ckaya/ali/internal/mind"
	"github.com/ckaya/ali/internal/protocol"
	"github.com/ckaya/ali/internal/workspace"
)

const replyTimeout = 30 * time.Second

// Server upgrades HTTP connections and runs the chat message loop.
// It is mounted as a handler on the HTTP gateway.
type Server struct {
	mind   *mind.Mind
	cfg    *config.WSGatewayConfig
	logger *slog.Logger
}

// NewServer creates the WebSocket chat server.
func NewServer(m *mind.Mind, cfg *config.WSGatewayConfig, logger *slog.Logger) *Server {
	return &Server{mind: m, cfg: cfg, logger: logger}
}

// Handler returns an http.Handler that upgrades connections to WebSocket.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(s.handleUpgrade)
}

func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	// A configured token gates the channel; presenting it makes the
	// connection privileged. Without a configured token anyone may
	// connect, but nobody is the creator.
	privileged := false
	if s.cfg != nil && s.cfg.Token != "" {
		token := r.URL.Query().Get("token")
		if token == "" {
			token = r.Header.Get("Authorization")
			if len(token) > 7 && token[:7] == "Bearer " {
				token = token[7:]
			}
		}
		if subtle.ConstantTimeCompare([]byte(token), []byte(s.cfg.Token)) != 1 {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		privileged = true
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols: []string{"ali-chat-v1"},
	})
	if err != nil {
		s.logger.Error("websocket accept failed", slog.String("error", err.Error()))
		return
	}

	s.handleConnection(r.Context(), conn, privileged)
}

// conn wraps one client connection. Writes are serialized: the thought
// stream and the reply path share the socket.
type clientConn struct {
	id         string
	privileged bool

	mu   sync.Mutex
	sock *websocket.Conn
}

func (c *clientConn) write(ctx context.Context, env *protocol.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sock.Write(ctx, websocket.MessageText, data)
}

func (s *Server) handleConnection(ctx context.Context, sock *websocket.Conn, privileged bool) {
	client := &clientConn{
		id:         uuid.New().String(),
		privileged: privileged,
		sock:       sock,
	}
	subName := "ws:" + client.id
	subscribed := false
	defer func() {
		if subscribed {
			s.mind.Unsubscribe(subName)
		}
		sock.Close(websocket.StatusNormalClosure, "connection closed")
	}()

	s.logger.Info("chat client connected",
		slog.String("conn_id", client.id),
		slog.Bool("privileged", privileged),
	)

	for {
		_, data, err := sock.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				s.logger.Info("chat client disconnected", slog.String("conn_id", client.id))
			} else {
				s.logger.Warn("chat connection error",
					slog.String("conn_id", client.id),
					slog.String("error", err.Error()),
				)
			}
			return
		}

		var env protocol.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			s.sendError(ctx, client, "bad_envelope", "message is not a valid envelope")
			continue
		}

		switch env.Type {
		case protocol.MsgPing:
			s.send(ctx, client, protocol.MsgPong, nil)

		case protocol.MsgChat:
			s.handleChat(ctx, client, &env)

		case protocol.MsgSubscribe:
			subscribed = s.handleSubscribe(ctx, client, &env, subName, subscribed)

		default:
			s.sendError(ctx, client, "unknown_type", fmt.Sprintf("unknown message type %q", env.Type))
		}
	}
}

// handleChat runs one utterance through the mind and replies.
func (s *Server) handleChat(ctx context.Context, client *clientConn, env *protocol.Envelope) {
	var chat protocol.ChatPayload
	if err := env.Decode(&chat); err != nil {
		s.sendError(ctx, client, "bad_payload", "chat payload is invalid")
		return
	}

	speaker := strings.TrimSpace(chat.From)
	if client.privileged && speaker == "" {
		speaker = s.mind.Creator()
	}
	// The token decides privilege; a name alone never does.
	if !client.privileged && s.mind.IsCreator(speaker) {
		speaker = "visitor"
	}

	procCtx, cancel := context.WithTimeout(ctx, replyTimeout)
	defer cancel()

	resp, err := s.mind.Process(procCtx, &mind.Input{Content: chat.Content, Speaker: speaker})
	if err != nil {
		s.logger.Error("processing chat message",
			slog.String("conn_id", client.id),
			slog.String("error", err.Error()),
		)
		s.sendError(ctx, client, "process_failed", "the mind could not process that")
		return
	}

	reply := protocol.ReplyPayload{
		Content:          resp.Content,
		Emotion:          resp.Emotion,
		EmotionIntensity: resp.EmotionIntensity,
		Phi:              float64(resp.Phi),
	}
	if resp.ConsciousThought != nil {
		reply.ConsciousThought = resp.ConsciousThought.Content
		reply.Salience = resp.ConsciousThought.Salience
		reply.Confidence = resp.ConsciousThought.Confidence
	}
	s.send(ctx, client, protocol.MsgReply, reply)
}

// handleSubscribe toggles the thought stream for this connection.
func (s *Server) handleSubscribe(ctx context.Context, client *clientConn, env *protocol.Envelope, subName string, subscribed bool) bool {
	var sub protocol.SubscribePayload
	if err := env.Decode(&sub); err != nil {
		s.sendError(ctx, client, "bad_payload", "subscribe payload is invalid")
		return subscribed
	}

	streaming := s.cfg != nil && s.cfg.StreamThoughts
	if sub.Thoughts && !streaming {
		s.sendError(ctx, client, "stream_disabled", "thought streaming is not enabled")
		return subscribed
	}

	if sub.Thoughts && !subscribed {
		s.mind.Subscribe(subName, s.thoughtForwarder(client))
		return true
	}
	if !sub.Thoughts && subscribed {
		s.mind.Unsubscribe(subName)
		return false
	}
	return subscribed
}

// thoughtForwarder adapts workspace broadcasts into protocol envelopes.
func (s *Server) thoughtForwarder(client *clientConn) workspace.SubscriberFunc {
	return func(ctx context.Context, msg workspace.Message) error {
		if msg.Type != workspace.MessageThought {
			return nil
		}
		payload := protocol.ThoughtPayload{}
		payload.Source, _ = msg.Data["source"].(string)
		payload.Content, _ = msg.Data["content"].(string)
		payload.Salience, _ = msg.Data["salience"].(float64)
		payload.Confidence, _ = msg.Data["confidence"].(float64)
		payload.Emotion, _ = msg.Data["emotion"].(string)
		payload.Won, _ = msg.Metadata["won_competition"].(bool)

		env, err := protocol.NewEnvelope(protocol.MsgThought, payload)
		if err != nil {
			return err
		}
		return client.write(ctx, env)
	}
}

func (s *Server) send(ctx context.Context, client *clientConn, msgType protocol.MessageType, payload any) {
	env, err := protocol.NewEnvelope(msgType, payload)
	if err != nil {
		s.logger.Error("encoding envelope", slog.String("error", err.Error()))
		return
	}
	if err := client.write(ctx, env); err != nil {
		s.logger.Debug("writing to client",
			slog.String("conn_id", client.id),
			slog.String("error", err.Error()),
		)
	}
}

func (s *Server) sendError(ctx context.Context, client *clientConn, code, message string) {
	s.send(ctx, client, protocol.MsgError, protocol.ErrorPayload{Code: code, Message: message})
}
