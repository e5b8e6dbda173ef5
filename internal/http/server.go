// Package http exposes the ledger, query façade and catalog over a JSON API.
// Bucket documents are only ever read here; all writes go through the ledger.
package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matten-rd/finaid/internal/cache"
	"github.com/matten-rd/finaid/internal/catalog"
	"github.com/matten-rd/finaid/internal/core"
	"github.com/matten-rd/finaid/internal/docstore"
	"github.com/matten-rd/finaid/internal/ledger"
)

type Server struct {
	ledger  *ledger.Ledger
	catalog *catalog.Service
	store   docstore.Store

	summaryCache *cache.LRUCache[core.Summary]
	started      time.Time
}

func NewServer(led *ledger.Ledger, cat *catalog.Service, store docstore.Store, summaryTTL time.Duration) *Server {
	return &Server{
		ledger:       led,
		catalog:      cat,
		store:        store,
		summaryCache: cache.NewLRUCache[core.Summary](256, summaryTTL),
		started:      time.Now(),
	}
}

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", s.handleListTransactions)
			r.Post("/", s.handleCreateTransaction)
			r.Put("/{id}", s.handleUpsertTransaction)
			r.Post("/{id}/trash", s.handleTrashTransaction)
			r.Post("/{id}/restore", s.handleRestoreTransaction)
			r.Delete("/{id}", s.handleDeleteTransaction)
		})

		r.Get("/summary", s.handleSummary)

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", s.handleListCategories)
			r.Post("/", s.handleCreateCategory)
			r.Put("/{id}", s.handleUpdateCategory)
			r.Delete("/{id}", s.handleDeleteCategory)
		})

		r.Route("/savings", func(r chi.Router) {
			r.Get("/", s.handleListAccounts)
			r.Post("/", s.handleCreateAccount)
			r.Put("/{id}", s.handleUpdateAccount)
			r.Delete("/{id}", s.handleDeleteAccount)
		})
	})

	return r
}

// invalidateSummaries drops all cached summary reads after a committed
// ledger write. The cache is small; clearing is cheaper than tracking which
// month scopes the write touched.
func (s *Server) invalidateSummaries() {
	s.summaryCache.Clear()
}
