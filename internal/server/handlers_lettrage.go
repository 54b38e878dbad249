package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/simonvc/grandlivre/internal/ledger"
	"github.com/simonvc/grandlivre/internal/store"
)

func (s *Server) listGroups(w http.ResponseWriter, r *http.Request) {
	filter := store.GroupFilter{
		Account:      r.URL.Query().Get("account"),
		Counterparty: r.URL.Query().Get("counterparty"),
	}
	groups, err := s.store.ListGroups(r.Context(), filter)
	if err != nil {
		fail(w, err)
		return
	}
	if groups == nil {
		groups = []ledger.ReconciliationGroup{}
	}
	writeJSON(w, http.StatusOK, groups)
}

func (s *Server) getGroup(w http.ResponseWriter, r *http.Request) {
	g, err := s.store.GetGroup(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) deleteGroup(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteGroup(r.Context(), chi.URLParam(r, "id")); err != nil {
		fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) runLettrage(w http.ResponseWriter, r *http.Request) {
	res, err := s.lettrage.Run(r.Context(), s.store, s.now())
	if err != nil {
		fail(w, err)
		return
	}
	if res.Groups == nil {
		res.Groups = []ledger.ReconciliationGroup{}
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) manualLettrage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		LineIDs []int64 `json:"line_ids"`
	}
	if err := decode(r, &req); err != nil {
		fail(w, err)
		return
	}
	g, err := s.lettrage.Manual(r.Context(), s.store, req.LineIDs, s.now())
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, g)
}

// agedBalance ages the open items at ?as_of=, today by default.
func (s *Server) agedBalance(w http.ResponseWriter, r *http.Request) {
	asOf, err := optionalDay(r.URL.Query().Get("as_of"))
	if err != nil {
		fail(w, err)
		return
	}
	now := ledger.Day(s.now())
	if asOf != nil {
		now = *asOf
	}
	aged, buckets, err := s.lettrage.Aged(r.Context(), s.store, now)
	if err != nil {
		fail(w, err)
		return
	}
	if aged == nil {
		aged = []ledger.AgedBalance{}
	}
	if buckets == nil {
		buckets = []ledger.AgedBalanceBucket{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"as_of":    now,
		"balances": aged,
		"buckets":  buckets,
	})
}
