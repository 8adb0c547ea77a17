package realtime

import (
	"log/slog"
	"net/http"

	"github.com/anonto42/inkpress/backend/internal/middleware"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

// Handler upgrades authenticated requests to live connections.
type Handler struct {
	hub      *Hub
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// NewHandler creates a Handler. An empty allowedOrigins accepts any origin.
func NewHandler(hub *Hub, logger *slog.Logger, allowedOrigins []string) *Handler {
	origins := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = true
	}
	return &Handler{
		hub:    hub,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return len(origins) == 0 || origins["*"] || origin == "" || origins[origin]
			},
		},
	}
}

// RegisterRoutes mounts the upgrade endpoint behind auth.
func (h *Handler) RegisterRoutes(e *echo.Echo, auth echo.MiddlewareFunc) {
	e.GET("/ws", h.ServeWS, auth)
}

// ServeWS upgrades the connection and starts its pumps. The connection
// stays unsubscribed until the client sends join-room.
func (h *Handler) ServeWS(c echo.Context) error {
	userID := middleware.UserIDFromContext(c)
	if userID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "user_id", userID, "error", err)
		return nil
	}

	client := newClient(h.hub, conn, userID, h.logger)
	h.logger.Info("live connection opened", "client_id", client.ID(), "user_id", userID)
	go client.writePump()
	go client.readPump()
	return nil
}
