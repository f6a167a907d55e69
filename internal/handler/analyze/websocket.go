package analyze

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	mw "github.com/zhouzirui/moodart/backend/internal/middleware"
	"github.com/zhouzirui/moodart/backend/internal/service/emotion"
)

const (
	readTimeout    = 60 * time.Second
	writeTimeout   = 10 * time.Second
	pingInterval   = 54 * time.Second
	maxMessageSize = 64 * 1024
)

// WebSocketHandler 在长连接上逐条分析文本
type WebSocketHandler struct {
	svc      Analyzer
	logger   logrus.FieldLogger
	upgrader websocket.Upgrader
}

// NewWebSocketHandler 创建WebSocket处理器，checkOrigin 为 nil 时允许所有来源
func NewWebSocketHandler(svc Analyzer, checkOrigin func(*http.Request) bool, logger logrus.FieldLogger) *WebSocketHandler {
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	return &WebSocketHandler{
		svc:    svc,
		logger: logger.WithField("component", "analyze_ws"),
		upgrader: websocket.Upgrader{
			CheckOrigin:     checkOrigin,
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes 注册WebSocket路由
func (h *WebSocketHandler) RegisterRoutes(r chi.Router) {
	r.Get("/ws/analyze", h.handleWebSocket)
}

type inboundMessage struct {
	Text string `json:"text"`
}

type outgoingMessage struct {
	Type  string          `json:"type"`
	Data  *emotion.Result `json:"data,omitempty"`
	Error string          `json:"error,omitempty"`
}

func (h *WebSocketHandler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("upgrade failed")
		return
	}
	defer conn.Close()

	logger := h.logger
	if id, ok := mw.IdentityFromContext(r.Context()); ok {
		logger = logger.WithField("user_id", id.UserID)
	}
	logger.Debug("connection opened")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	go h.pingLoop(ctx, conn)

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.WithError(err).Debug("read failed")
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(readTimeout))

		var msg inboundMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			h.send(conn, outgoingMessage{Type: "error", Error: "invalid message"})
			continue
		}

		result, err := h.svc.Analyze(ctx, msg.Text)
		switch {
		case errors.Is(err, emotion.ErrEmptyInput):
			h.send(conn, outgoingMessage{Type: "error", Error: "text is required"})
		case err != nil:
			logger.WithError(err).Error("analyze failed")
			h.send(conn, outgoingMessage{Type: "error", Error: "internal server error"})
		default:
			h.send(conn, outgoingMessage{Type: "result", Data: &result})
		}
	}
}

func (h *WebSocketHandler) send(conn *websocket.Conn, msg outgoingMessage) {
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteJSON(msg); err != nil {
		h.logger.WithError(err).Debug("write failed")
	}
}

// pingLoop 定期发送ping消息
func (h *WebSocketHandler) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		}
	}
}
