package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/simonvc/grandlivre/internal/config"
	"github.com/simonvc/grandlivre/internal/depreciation"
	"github.com/simonvc/grandlivre/internal/ledger"
	"github.com/simonvc/grandlivre/internal/lettrage"
	"github.com/simonvc/grandlivre/internal/store"
)

type Server struct {
	store  *store.Store
	router chi.Router
	addr   string

	siren        string
	posting      ledger.PostingPolicy
	depreciation depreciation.Policy
	engine       *depreciation.Engine
	lettrage     *lettrage.Service
	now          func() time.Time
}

func New(st *store.Store, cfg *config.Config) (*Server, error) {
	posting, err := cfg.PostingPolicy()
	if err != nil {
		return nil, err
	}
	policy, err := cfg.DepreciationPolicy()
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	s := &Server{
		store:        st,
		router:       r,
		addr:         cfg.Server.Addr,
		siren:        cfg.Company.SIREN,
		posting:      posting,
		depreciation: policy,
		engine:       depreciation.New(policy),
		lettrage:     cfg.LettrageService(),
		now:          time.Now,
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Route("/api/v1", func(r chi.Router) {
		// Accounts
		r.Get("/accounts", s.listAccounts)
		r.Get("/accounts/{code}", s.getAccount)
		r.Get("/accounts/{code}/balance", s.getAccountBalance)
		r.Get("/accounts/{code}/entries", s.listAccountEntries)

		// Entries
		r.Post("/entries", s.createEntry)
		r.Get("/entries", s.listEntries)
		r.Get("/entries/{id}", s.getEntry)
		r.Put("/entries/{id}", s.updateDraft)
		r.Post("/entries/{id}/validate", s.validateEntry)
		r.Post("/entries/{id}/reverse", s.reverseEntry)

		// Payment events
		r.Post("/events", s.postEvent)

		// Fixed assets
		r.Post("/assets", s.createAsset)
		r.Get("/assets", s.listAssets)
		r.Get("/assets/{id}", s.getAsset)
		r.Get("/assets/{id}/schedule", s.assetSchedule)
		r.Post("/assets/{id}/dispose", s.disposeAsset)
		r.Post("/depreciation/run", s.runDepreciation)

		// Lettrage
		r.Get("/lettrage/groups", s.listGroups)
		r.Get("/lettrage/groups/{id}", s.getGroup)
		r.Delete("/lettrage/groups/{id}", s.deleteGroup)
		r.Get("/lettrage/aged", s.agedBalance)
		r.Post("/lettrage/run", s.runLettrage)
		r.Post("/lettrage/manual", s.manualLettrage)

		// Reports
		r.Get("/ledger", s.grandLivre)
		r.Get("/reports/trial-balance", s.trialBalance)
		r.Get("/reports/bilan", s.bilan)
		r.Get("/reports/ratios", s.ratios)
		r.Get("/reports/vat", s.vatSummary)

		// Regulatory exports
		r.Get("/exports/fec/preview", s.fecPreview)
		r.Get("/exports/fec", s.fecExport)
		r.Get("/exports/ca3", s.ca3Export)
		r.Get("/exports/csv/{report}", s.csvExport)

		// Chart of accounts reference
		r.Get("/chart", s.getChart)
	})

	return s, nil
}

// Run serves until ctx is done, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.router}
	errc := make(chan error, 1)
	go func() {
		log.Printf("grandlivre server listening on %s", s.addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Handler() http.Handler {
	return s.router
}
