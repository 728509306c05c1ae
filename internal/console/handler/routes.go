// Package handler exposes the console over HTTP. Responses use the
// {success, data, error} envelope of pkg/httputil.
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Handlers bundles the console's HTTP handlers
type Handlers struct {
	Auth        *AuthHandler
	Files       *FileHandler
	Comparisons *ComparisonHandler
	Reports     *ReportHandler
	Storage     http.Handler
}

// Mount registers the API under /api/v1. Everything except the auth
// endpoints requires a session.
func Mount(r chi.Router, h Handlers, requireSession func(http.Handler) http.Handler) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", h.Auth.Login)
			r.Post("/logout", h.Auth.Logout)
			r.Get("/session", h.Auth.Session)
		})

		r.Group(func(r chi.Router) {
			r.Use(requireSession)

			r.Route("/files", func(r chi.Router) {
				r.Get("/", h.Files.List)
				r.Post("/{kind}/{slot}", h.Files.Upload)
				r.Delete("/{kind}/{id}", h.Files.Delete)
			})

			r.Route("/comparisons/{kind}", func(r chi.Router) {
				r.Get("/", h.Comparisons.Get)
				r.Delete("/", h.Comparisons.Clear)
				r.Put("/reference", h.Comparisons.SelectReference)
				r.Put("/provided", h.Comparisons.ConfirmProvided)
				r.Post("/cursor", h.Comparisons.Cursor)
				r.Post("/compare", h.Comparisons.Compare)
				r.Delete("/error", h.Comparisons.DismissError)
				r.Get("/report.pdf", h.Comparisons.Report)
			})

			r.Route("/reports", func(r chi.Router) {
				r.Get("/", h.Reports.List)
				r.Get("/cost-summary", h.Reports.CostSummary)
				r.Get("/{id}/pdf", h.Reports.PDF)
			})

			if h.Storage != nil {
				r.Get("/storage/*", h.Storage.ServeHTTP)
			}
		})
	})
}
