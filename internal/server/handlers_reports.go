package server

import (
	"net/http"

	"github.com/simonvc/grandlivre/internal/reporting"
)

func (s *Server) grandLivre(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := reporting.LedgerFilter{Account: q.Get("account")}
	var err error
	if f.From, err = optionalDay(q.Get("from")); err != nil {
		fail(w, err)
		return
	}
	if f.To, err = optionalDay(q.Get("to")); err != nil {
		fail(w, err)
		return
	}

	entries, err := s.store.ReportEntries(r.Context(), f.To)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reporting.GrandLivre(entries, f))
}

func (s *Server) trialBalance(w http.ResponseWriter, r *http.Request) {
	asOf, err := optionalDay(r.URL.Query().Get("as_of"))
	if err != nil {
		fail(w, err)
		return
	}
	entries, err := s.store.ReportEntries(r.Context(), asOf)
	if err != nil {
		fail(w, err)
		return
	}
	tb, err := reporting.TrialBalance(entries, asOf)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tb)
}

func (s *Server) bilan(w http.ResponseWriter, r *http.Request) {
	asOf, err := optionalDay(r.URL.Query().Get("as_of"))
	if err != nil {
		fail(w, err)
		return
	}
	entries, err := s.store.ReportEntries(r.Context(), asOf)
	if err != nil {
		fail(w, err)
		return
	}
	b, err := reporting.Bilan(entries, asOf)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) ratios(w http.ResponseWriter, r *http.Request) {
	asOf, err := optionalDay(r.URL.Query().Get("as_of"))
	if err != nil {
		fail(w, err)
		return
	}
	entries, err := s.store.ReportEntries(r.Context(), asOf)
	if err != nil {
		fail(w, err)
		return
	}
	b, err := reporting.Bilan(entries, asOf)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reporting.Ratios(b))
}

func (s *Server) vatSummary(w http.ResponseWriter, r *http.Request) {
	from, to, err := queryRange(r, s.store.Calendar())
	if err != nil {
		fail(w, err)
		return
	}
	entries, err := s.store.ReportEntries(r.Context(), &to)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reporting.VAT(entries, from, to))
}
