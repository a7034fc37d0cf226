package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"contract-collab-service/internal/health"
	"contract-collab-service/internal/http/handler"
	"contract-collab-service/internal/http/middleware"
	"contract-collab-service/internal/http/response"
	"contract-collab-service/internal/security"
)

type Dependencies struct {
	CollabHandler      *handler.CollabHandler
	PortalHandler      *handler.PortalHandler
	JWTManager         *security.JWTManager
	CORSOrigins        []string
	APIRateLimitRPM    int
	InviteRateLimitRPM int
	Readiness          *health.ProbeRunner
	EnableOTelHTTP     bool
}

func NewRouter(dep Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.StructuredRequestLogger)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.CORS(dep.CORSOrigins))
	r.Use(middleware.BodyLimit(1 << 20))
	r.Use(middleware.NewRateLimiter(dep.APIRateLimitRPM, time.Minute, "api").Middleware())

	inviteLimiter := middleware.NewRateLimiter(dep.InviteRateLimitRPM, time.Minute, "invite").Middleware()

	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		if dep.Readiness == nil {
			response.JSON(w, r, http.StatusOK, map[string]any{"status": "ready", "checks": []any{}})
			return
		}
		ready, results := dep.Readiness.Ready(r.Context())
		if ready {
			response.JSON(w, r, http.StatusOK, map[string]any{"status": "ready", "checks": results})
			return
		}
		response.Error(w, r, http.StatusServiceUnavailable, "DEPENDENCY_UNREADY", "dependencies are not ready", map[string]any{"checks": results})
	})

	r.Route("/api/v1/collab", func(r chi.Router) {
		r.Use(middleware.AuthMiddleware(dep.JWTManager))
		r.Post("/sessions", dep.CollabHandler.StartOrJoin)
		r.Get("/sessions/{session_id}", dep.CollabHandler.Describe)
		r.Get("/documents/{document_ref}/sessions", dep.CollabHandler.ListDocumentSessions)
		r.With(inviteLimiter).Post("/sessions/{session_id}/invite", dep.CollabHandler.Invite)
		r.Post("/sessions/{session_id}/remove", dep.CollabHandler.Remove)
		r.Post("/sessions/{session_id}/end", dep.CollabHandler.End)
		r.Post("/sessions/{session_id}/presence", dep.CollabHandler.ReportPresence)
	})

	r.Route("/portal/collab", func(r chi.Router) {
		r.Get("/{token}", dep.PortalHandler.Open)
		r.Post("/{token}/presence", dep.PortalHandler.ReportPresence)
	})

	var h http.Handler = r
	if dep.EnableOTelHTTP {
		h = otelhttp.NewHandler(r, "http.server")
	}
	return h
}
