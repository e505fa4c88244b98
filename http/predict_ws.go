package http

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"housing/service"
)

const streamWriteWait = 10 * time.Second

// streamReply is one websocket answer. Successful predictions carry only
// predicted_price; failures carry the HTTP status they would have had.
type streamReply struct {
	PredictedPrice *float64 `json:"predicted_price,omitempty"`
	Status         int      `json:"status,omitempty"`
	Detail         any      `json:"detail,omitempty"`
}

// streamRegistry tracks open prediction streams so shutdown can close them
// before the model cache is torn down.
type streamRegistry struct {
	mu       sync.Mutex
	conns    map[*websocket.Conn]struct{}
	closed   bool
	wg       sync.WaitGroup
	upgrader websocket.Upgrader
}

func newStreamRegistry() *streamRegistry {
	return &streamRegistry{
		conns: make(map[*websocket.Conn]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

func (s *streamRegistry) add(conn *websocket.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.conns[conn] = struct{}{}
	s.wg.Add(1)
	return true
}

func (s *streamRegistry) remove(conn *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.conns[conn]; ok {
		delete(s.conns, conn)
		s.wg.Done()
	}
}

// closeAll closes every open stream and waits for their handlers to return.
func (s *streamRegistry) closeAll() {
	s.mu.Lock()
	s.closed = true
	for conn := range s.conns {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(time.Second))
		conn.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (h *handlers) handlePredictStream(w http.ResponseWriter, r *http.Request) {
	conn, err := h.streams.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()
	if !h.streams.add(conn) {
		return
	}
	defer h.streams.remove(conn)

	conn.SetReadLimit(h.maxBodyBytes)
	requestID := GetRequestID(r.Context())
	h.logger.Debug("prediction stream opened", zap.String("request_id", requestID))

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Warn("prediction stream closed", zap.String("request_id", requestID), zap.Error(err))
			}
			return
		}

		var reply streamReply
		status, payload := h.predict(r, message)
		switch p := payload.(type) {
		case service.PredictionResult:
			reply.PredictedPrice = &p.PredictedPrice
		case errorBody:
			reply.Status = status
			reply.Detail = p.Detail
		}

		conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
		if err := conn.WriteJSON(reply); err != nil {
			h.logger.Warn("prediction stream write failed", zap.String("request_id", requestID), zap.Error(err))
			return
		}
	}
}
