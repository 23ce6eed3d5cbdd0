// Package hub keeps the live websocket connections and pushes server events
// to them by user or role.
package hub

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"Soundbay/logger"
	"Soundbay/model"

	"github.com/gorilla/websocket"
)

// TypeNotification is the only envelope type pushed today.
const TypeNotification = "notification"

// Envelope 推送给客户端的消息
type Envelope struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// ErrUnauthorized rejects a connection that carries no token. Authenticator
// implementations may return it or any other error; every error closes the
// connection with "Unauthorized".
var ErrUnauthorized = errors.New("unauthorized")

// Authenticator resolves a token to an active (existing, not blocked) user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (userID string, role model.Role, err error)
}

// Hub 管理全部推送连接
type Hub struct {
	registry *Registry
	auth     Authenticator
	upgrader websocket.Upgrader
}

// New 创建 Hub
func New(auth Authenticator) *Hub {
	return &Hub{
		registry: NewRegistry(),
		auth:     auth,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// 令牌校验代替来源校验
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Registry exposes the connection index.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// ServeHTTP upgrades /ws?token=... ; the token travels in the query because
// browsers cannot set headers on websocket requests.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", logger.ErrorField(err))
		return
	}

	token := r.URL.Query().Get("token")
	var (
		userID string
		role   model.Role
	)
	if token == "" {
		err = ErrUnauthorized
	} else {
		userID, role, err = h.auth.Authenticate(r.Context(), token)
	}
	if err != nil {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "Unauthorized"),
			time.Now().Add(writeWait))
		conn.Close()
		return
	}

	c := newClient(userID, role, conn)
	h.registry.Insert(c)
	logger.Info("websocket client connected", logger.String("user", userID), logger.String("role", string(role)))

	go c.writePump()
	go c.readPump(h)
}

func (h *Hub) remove(c *Client) {
	if h.registry.Remove(c) {
		logger.Info("websocket client disconnected", logger.String("user", c.UserID))
	}
	c.close()
}

// SendToUser 推送到该用户的所有连接，返回成功入队的数量
func (h *Hub) SendToUser(userID string, env Envelope) int {
	return h.deliver(h.registry.ForUser(userID), env)
}

// SendToRole 推送到该角色的所有连接
func (h *Hub) SendToRole(role model.Role, env Envelope) int {
	return h.deliver(h.registry.ForRole(role), env)
}

func (h *Hub) deliver(clients []*Client, env Envelope) int {
	if len(clients) == 0 {
		return 0
	}
	data, err := json.Marshal(env)
	if err != nil {
		logger.Error("failed to marshal websocket envelope", logger.ErrorField(err))
		return 0
	}
	sent := 0
	for _, c := range clients {
		if c.enqueue(data) {
			sent++
		}
	}
	return sent
}

// Shutdown closes every connection.
func (h *Hub) Shutdown() {
	for _, c := range h.registry.All() {
		h.remove(c)
	}
}
