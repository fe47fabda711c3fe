package websocket

import (
	"net/http"
	"slices"

	"github.com/gorilla/websocket"

	"klv-monitor/internal/auth"
	"klv-monitor/internal/config"
	"klv-monitor/internal/logger"
)

type Handler struct {
	hub      *Hub
	upgrader websocket.Upgrader
	authSvc  *auth.Service
	log      logger.Logger
}

func NewHandler(hub *Hub, authSvc *auth.Service, cfg *config.Config, log logger.Logger) *Handler {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			allowed := slices.Contains(cfg.AllowedOrigins, origin)
			if !allowed {
				log.Warn("ws: origin rejected", "origin", origin)
			}
			return allowed
		},
	}

	return &Handler{
		hub:      hub,
		upgrader: upgrader,
		authSvc:  authSvc,
		log:      log,
	}
}

func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		// Browsers cannot set headers on websocket dials.
		token = r.URL.Query().Get("token")
	}
	if err := h.authSvc.VerifyToken(token); err != nil {
		h.log.Warn("ws: jwt verification failed", "error", err)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("ws: upgrade failed", "error", err)
		return
	}

	client := NewClient(h.hub, conn, h.log)
	h.hub.register <- client
	go client.writePump()
	go client.readPump()

	h.log.Info("ws: client connected", "id", client.ID, "remote_addr", conn.RemoteAddr())
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if len(header) > 7 && header[:7] == "Bearer " {
		return header[7:]
	}
	return ""
}
