package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"quizroom-service/internal/app"
	"quizroom-service/internal/domain"
	"quizroom-service/internal/metrics"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

type WSHandler struct {
	service  *app.RoomService
	upgrader websocket.Upgrader
	limit    rate.Limit
	burst    int
	log      logrus.FieldLogger
}

type Option func(*WSHandler)

// WithRateLimit caps inbound commands per connection.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(h *WSHandler) {
		h.limit = rate.Limit(perSecond)
		h.burst = burst
	}
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(h *WSHandler) { h.log = log }
}

func NewWSHandler(service *app.RoomService, opts ...Option) *WSHandler {
	h := &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		limit: rate.Limit(10),
		burst: 20,
		log:   logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ServeWS authorizes the caller against the room, upgrades the connection
// and pumps commands into the room service until either side goes away.
// userId is trusted as given: the handler must sit behind an auth proxy
// that authenticates the caller and sets it.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["roomID"]
	key := app.GroupName(roomID)
	userID := r.URL.Query().Get("userId")
	displayName := r.URL.Query().Get("name")
	if displayName == "" {
		displayName = userID
	}
	if roomID == "" || userID == "" {
		metrics.ConnectRejections.WithLabelValues("bad_request").Inc()
		http.Error(w, "missing room or userId", http.StatusBadRequest)
		return
	}

	room, role, err := h.service.Authorize(r.Context(), roomID, userID)
	if err != nil {
		status, reason := rejection(err)
		metrics.ConnectRejections.WithLabelValues(reason).Inc()
		if status == http.StatusInternalServerError {
			h.log.WithField("room", key).Errorf("[%s]Connect: %v", key, err)
		} else {
			h.log.WithFields(logrus.Fields{"room": key, "user": userID, "reason": reason}).Info("connection refused")
		}
		http.Error(w, http.StatusText(status), status)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithField("room", key).Errorf("[%s]Connect: %v", key, err)
		return
	}
	defer conn.Close()

	sub, err := h.service.Join(r.Context(), room, domain.Participant{UserID: userID, DisplayName: displayName}, role)
	if err != nil {
		h.log.WithField("room", key).Errorf("[%s]Connect: %v", key, err)
		return
	}

	writerDone := make(chan struct{})
	defer func() {
		// Leave closes the event stream, which stops the writer.
		h.service.Leave(context.Background(), sub)
		<-writerDone
	}()

	go h.writePump(conn, sub, writerDone)
	h.readPump(r.Context(), conn, sub)
}

func (h *WSHandler) readPump(ctx context.Context, conn *websocket.Conn, sub *app.Subscription) {
	key := sub.RoomKey()
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	limiter := rate.NewLimiter(h.limit, h.burst)

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.WithField("room", key).WithError(err).Warn("ws read error")
			}
			return
		}
		var cmd app.Command
		if err := json.Unmarshal(payload, &cmd); err != nil {
			h.log.WithFields(logrus.Fields{"room": key, "user": sub.Participant.UserID}).
				Errorf("[%s] %v", key, err)
			continue
		}
		if !limiter.Allow() {
			metrics.Commands.WithLabelValues(app.CommandLabel(cmd.Name), metrics.OutcomeThrottled).Inc()
			h.log.WithFields(logrus.Fields{
				"room":    key,
				"user":    sub.Participant.UserID,
				"command": cmd.Name,
			}).Warn("command rate exceeded, dropped")
			continue
		}
		h.service.Handle(ctx, sub, cmd)
	}
}

// writePump is the only writer on conn. It exits when the event stream is
// closed (leave or eviction) or a write fails, closing the connection so the
// reader unblocks too.
func (h *WSHandler) writePump(conn *websocket.Conn, sub *app.Subscription, done chan<- struct{}) {
	key := sub.RoomKey()
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
		close(done)
	}()

	for {
		select {
		case ev, ok := <-sub.Events():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			payload, err := json.Marshal(ev)
			if err != nil {
				h.log.WithField("room", key).Errorf("[%s]Send group message: %v", key, err)
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				h.log.WithField("room", key).WithError(err).Debug("ws write error")
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func rejection(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrRoomNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrRoomDisabled):
		return http.StatusForbidden, "disabled"
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	default:
		return http.StatusInternalServerError, "error"
	}
}
