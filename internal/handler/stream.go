package handler

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"trockle-api/internal/service"
	"trockle-api/internal/swipe"
)

const (
	streamWriteWait  = 10 * time.Second
	streamPongWait   = 60 * time.Second
	streamPingPeriod = (streamPongWait * 9) / 10
	streamMaxMessage = 4096
)

// Stream message types.
const (
	StreamDrag    = "drag"
	StreamRelease = "release"
	StreamLike    = "like"
	StreamSkip    = "skip"
	StreamFrame   = "frame"
	StreamView    = "view"
	StreamError   = "error"
)

// StreamMessage is a gesture sent by the client over a deck stream.
type StreamMessage struct {
	Type string  `json:"type"`
	DX   float64 `json:"dx"`
	DY   float64 `json:"dy"`
}

// StreamEvent is sent by the server over a deck stream. Drags answer with a
// frame, every other message with a view. Errors do not close the stream.
type StreamEvent struct {
	Type  string            `json:"type"`
	Frame *swipe.Frame      `json:"frame,omitempty"`
	View  *service.DeckView `json:"view,omitempty"`
	Error string            `json:"error,omitempty"`
}

// StreamDeck handles GET /decks/{deck_id}/stream. The connection carries
// drag deltas at gesture rate without a request per move.
func (h *Handler) StreamDeck(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	deckID := chi.URLParam(r, "deck_id")
	ctx := r.Context()

	view, err := h.service.Decks.Get(ctx, userID, deckID)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client.
		h.logger.Warn("websocket upgrade failed", slog.String("deck_id", deckID), slog.Any("error", err))
		return
	}
	defer conn.Close()

	s := &deckStream{conn: conn}
	done := make(chan struct{})
	defer close(done)
	go s.keepalive(done)

	conn.SetReadLimit(streamMaxMessage)
	conn.SetReadDeadline(time.Now().Add(streamPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(streamPongWait))
	})

	if err := s.send(StreamEvent{Type: StreamView, View: &view}); err != nil {
		return
	}

	for {
		var msg StreamMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Warn("deck stream closed", slog.String("deck_id", deckID), slog.Any("error", err))
			}
			return
		}

		var ev StreamEvent
		err = nil
		switch msg.Type {
		case StreamDrag:
			var frame swipe.Frame
			frame, err = h.service.Decks.Drag(ctx, userID, deckID, msg.DX, msg.DY)
			ev = StreamEvent{Type: StreamFrame, Frame: &frame}
		case StreamRelease:
			view, err = h.service.Decks.Release(ctx, userID, deckID, msg.DX, msg.DY)
			ev = StreamEvent{Type: StreamView, View: &view}
		case StreamLike:
			view, err = h.service.Decks.Like(ctx, userID, deckID)
			ev = StreamEvent{Type: StreamView, View: &view}
		case StreamSkip:
			view, err = h.service.Decks.Skip(ctx, userID, deckID)
			ev = StreamEvent{Type: StreamView, View: &view}
		default:
			ev = StreamEvent{Type: StreamError, Error: "unknown message type: " + msg.Type}
		}

		if err != nil {
			status, message := statusOf(err)
			if status == http.StatusInternalServerError {
				h.logger.Error("deck stream failed", slog.String("deck_id", deckID), slog.Any("error", err))
			}
			ev = StreamEvent{Type: StreamError, Error: message}
		}

		if err := s.send(ev); err != nil {
			return
		}
	}
}

// deckStream serializes writes; gorilla connections allow one writer.
type deckStream struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *deckStream) send(ev StreamEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
	return s.conn.WriteJSON(ev)
}

func (s *deckStream) keepalive(done <-chan struct{}) {
	ticker := time.NewTicker(streamPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.mu.Lock()
			err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(streamWriteWait))
			s.mu.Unlock()
			if err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

// checkOrigin allows same-origin requests, requests without an Origin
// header, and the configured origins.
func checkOrigin(allowed []string) func(r *http.Request) bool {
	allowAll := false
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		o = strings.TrimSpace(o)
		if o == "*" {
			allowAll = true
		}
		set[strings.ToLower(o)] = true
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || allowAll {
			return true
		}
		if set[strings.ToLower(origin)] {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return strings.EqualFold(u.Host, r.Host)
	}
}
