package rest

import (
	"net/http"

	"klv-monitor/internal/auth"
	"klv-monitor/internal/config"
	"klv-monitor/internal/logger"
	"klv-monitor/internal/transport/websocket"
)

type RouterDeps struct {
	WS      *websocket.Handler
	Metrics *MetricsHandler
	Prefs   *PrefsHandler
	Auth    *AuthHandler

	AuthSvc *auth.Service
}

func NewRouter(cfg *config.Config, log logger.Logger, deps *RouterDeps) http.Handler {
	mux := http.NewServeMux()

	authed := requireAuth(deps.AuthSvc, log)

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	mux.HandleFunc("GET /ws", deps.WS.Serve)

	mux.HandleFunc("POST /auth/login", deps.Auth.Login)

	mux.Handle("GET /metrics/latest", authed(http.HandlerFunc(deps.Metrics.Latest)))
	mux.Handle("GET /metrics/history", authed(http.HandlerFunc(deps.Metrics.History)))

	mux.Handle("GET /prefs", authed(http.HandlerFunc(deps.Prefs.Show)))
	mux.Handle("PUT /prefs", authed(http.HandlerFunc(deps.Prefs.Update)))

	return applyCORS(cfg, mux)
}

func requireAuth(svc *auth.Service, log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ""
			header := r.Header.Get("Authorization")
			if len(header) > 7 && header[:7] == "Bearer " {
				token = header[7:]
			}

			if err := svc.VerifyToken(token); err != nil {
				log.Debug("rest: token rejected", "path", r.URL.Path, "error", err)
				JSONError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func applyCORS(cfg *config.Config, next http.Handler) http.Handler {
	allowed := make(map[string]bool, len(cfg.AllowedOrigins))
	for _, origin := range cfg.AllowedOrigins {
		allowed[origin] = true
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		if allowed[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
