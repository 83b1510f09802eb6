// ============================================================================
// backend/internal/gateway/routes.go
// HTTP router: middleware stack, CORS, and route registration
// ============================================================================

package gateway

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"sgms_backend/backend/internal/gateway/auth"
	"sgms_backend/backend/internal/gateway/handlers"
	"sgms_backend/backend/internal/gateway/util"
	"sgms_backend/backend/internal/shared"
)

// NewRouter builds the HTTP router with the standard middleware stack and
// all grade routes registered.
func NewRouter(config *shared.ServiceConfig, gradeHandler *handlers.GradeHandler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(config.Security.RequestTimeout))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   config.CORS.AllowedOrigins,
		AllowedMethods:   config.CORS.AllowedMethods,
		AllowedHeaders:   config.CORS.AllowedHeaders,
		AllowCredentials: config.CORS.AllowCredentials,
		MaxAge:           config.CORS.MaxAge,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		util.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"status":    "healthy",
			"service":   config.ServiceName,
			"timestamp": time.Now().UTC(),
		})
	})

	r.Route("/api/grades", func(r chi.Router) {
		r.Use(auth.Authenticate(config.Security.JWTSecret))

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireRoles(shared.RoleTeacher, shared.RoleAdviser, shared.RoleAdmin))
			r.Post("/upload", gradeHandler.UploadGrades)
			r.Get("/uploads", gradeHandler.GetUploadedGrades)
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireRoles(shared.RoleAdviser, shared.RoleAdmin))
			r.Get("/consolidated", gradeHandler.GetConsolidatedGrades)
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireRoles(shared.RoleAdmin))
			r.Delete("/", gradeHandler.DeleteGrades)
			r.Delete("/students", gradeHandler.DeleteStudentGrades)
		})
	})

	return r
}
