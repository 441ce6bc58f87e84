package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/okian/bodytrack/internal/domain/model"
	"github.com/okian/bodytrack/pkg/logger"
	"github.com/okian/bodytrack/pkg/metrics"
)

const writeWait = 5 * time.Second

// StreamHandler accepts a websocket of pose updates, one JSON PoseUpdate per
// text message, and answers each with a PoseAck or an error object.
type StreamHandler struct {
	deps         PoseDependencies
	maxBodyBytes int64
	idle         time.Duration
	logger       logger.Logger
	upgrader     websocket.Upgrader
}

// NewStreamHandler creates a new pose stream handler.
func NewStreamHandler(deps PoseDependencies, maxBodyBytes int64, idle time.Duration, l logger.Logger) *StreamHandler {
	return &StreamHandler{
		deps:         deps,
		maxBodyBytes: maxBodyBytes,
		idle:         idle,
		logger:       l,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Pose sources run on other devices on the local network.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// HandleStream handles GET /poses/stream requests.
func (h *StreamHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied with an HTTP error.
		h.logger.Warn(r.Context(), "pose stream upgrade failed", logger.Error(err))
		return
	}
	metrics.UpdateStreamConnections(1)
	defer metrics.UpdateStreamConnections(-1)
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	s := &stream{conn: conn}
	conn.SetReadLimit(h.maxBodyBytes)
	_ = conn.SetReadDeadline(time.Now().Add(h.idle))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(h.idle))
	})
	go s.ping(ctx, h.idle/2)

	h.logger.Info(ctx, "pose stream opened", logger.String("remote", r.RemoteAddr))
	received := 0
	defer func() {
		h.logger.Info(ctx, "pose stream closed",
			logger.String("remote", r.RemoteAddr), logger.Int("messages", received))
	}()

	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) &&
				!errors.Is(err, context.Canceled) {
				h.logger.Debug(ctx, "pose stream read ended", logger.Error(err))
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(h.idle))
		received++

		if mt != websocket.TextMessage {
			if s.writeJSON(errorResponse{Code: "bad_request", Message: "expected a text message"}) != nil {
				return
			}
			continue
		}

		var u model.PoseUpdate
		if err := json.Unmarshal(data, &u); err != nil {
			err = WrapKind("api.stream", ErrBadRequest, err)
			if s.writeError(err) != nil {
				return
			}
			continue
		}
		ack, err := h.deps.SubmitPose(ctx, u)
		if err != nil {
			if s.writeError(Wrap("api.stream", err)) != nil {
				return
			}
			continue
		}
		if s.writeJSON(ack) != nil {
			return
		}
	}
}

// stream serializes writes; gorilla allows one concurrent writer.
type stream struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *stream) writeJSON(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteJSON(v)
}

func (s *stream) writeError(err error) error {
	_, code := classify(err)
	return s.writeJSON(errorResponse{Code: code, Message: err.Error()})
}

func (s *stream) ping(ctx context.Context, every time.Duration) {
	if every <= 0 {
		return
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.mu.Lock()
			err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			s.mu.Unlock()
			if err != nil {
				return
			}
		}
	}
}
