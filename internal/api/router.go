package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/scribehq/scribe-be/internal/api/handlers"
	"github.com/scribehq/scribe-be/internal/auth"
	"github.com/scribehq/scribe-be/internal/services"
	"github.com/scribehq/scribe-be/internal/upload"
)

// NewRouter creates and configures a new Chi router.
func NewRouter(tokens *auth.Manager, userService services.UserServiceProvider, postService services.PostServiceProvider, categoryService services.CategoryServiceProvider, uploads *upload.Store, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(userService, tokens)
	postHandler := handlers.NewPostHandler(postService, uploads)
	categoryHandler := handlers.NewCategoryHandler(categoryService)

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("Scribe blog API is running"))
	})

	// Uploaded images are served from the public /uploads prefix.
	fileServer := http.FileServer(http.Dir(uploads.Dir()))
	r.Handle("/uploads/*", http.StripPrefix("/uploads/", fileServer))

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.With(tokens.Middleware()).Get("/me", authHandler.GetMe)
		})

		r.Route("/posts", func(r chi.Router) {
			r.Get("/", postHandler.List)
			r.Post("/", postHandler.Create)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", postHandler.Get)
				r.Put("/", postHandler.Update)
				r.Delete("/", postHandler.Delete)
			})
		})

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", categoryHandler.List)
			r.Post("/", categoryHandler.Create)
		})
	})

	return r
}
