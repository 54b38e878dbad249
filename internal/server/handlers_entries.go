package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/simonvc/grandlivre/internal/ledger"
	"github.com/simonvc/grandlivre/internal/store"
)

type createEntryRequest struct {
	Journal        ledger.JournalCode `json:"journal"`
	EntryDate      string             `json:"entry_date"`
	AccountingDate string             `json:"accounting_date"`
	Label          string             `json:"label"`
	Reference      string             `json:"reference"`
	ReferenceDate  string             `json:"reference_date"`
	Validate       bool               `json:"validate"`
	Lines          []ledger.EntryLine `json:"lines"`
}

func (s *Server) createEntry(w http.ResponseWriter, r *http.Request) {
	var req createEntryRequest
	if err := decode(r, &req); err != nil {
		fail(w, err)
		return
	}

	e := &ledger.JournalEntry{
		Journal:   req.Journal,
		Label:     req.Label,
		Reference: req.Reference,
		Validated: req.Validate,
		Lines:     req.Lines,
	}
	var err error
	if e.AccountingDate, err = parseDay(req.AccountingDate); err != nil {
		fail(w, err)
		return
	}
	if req.EntryDate != "" {
		if e.EntryDate, err = parseDay(req.EntryDate); err != nil {
			fail(w, err)
			return
		}
	}
	if e.ReferenceDate, err = optionalDay(req.ReferenceDate); err != nil {
		fail(w, err)
		return
	}

	if err := s.store.CreateEntry(r.Context(), e); err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (s *Server) listEntries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.EntryFilter{
		Account: q.Get("account"),
		Journal: ledger.JournalCode(q.Get("journal")),
	}
	var err error
	if filter.From, err = optionalDay(q.Get("from")); err != nil {
		fail(w, err)
		return
	}
	if filter.To, err = optionalDay(q.Get("to")); err != nil {
		fail(w, err)
		return
	}
	if v := q.Get("validated"); v != "" {
		b := v == "true" || v == "1"
		filter.Validated = &b
	}
	if filter.Limit, err = queryInt(r, "limit"); err != nil {
		fail(w, err)
		return
	}
	if filter.Offset, err = queryInt(r, "offset"); err != nil {
		fail(w, err)
		return
	}

	entries, err := s.store.ListEntries(r.Context(), filter)
	if err != nil {
		fail(w, err)
		return
	}
	if entries == nil {
		entries = []ledger.JournalEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// getEntry accepts either the entry id or its sequence number.
func (s *Server) getEntry(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var e *ledger.JournalEntry
	var err error
	if _, perr := ledger.ParseSequence(id); perr == nil {
		e, err = s.store.GetEntryBySequence(r.Context(), id)
	} else {
		e, err = s.store.GetEntry(r.Context(), id)
	}
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) updateDraft(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Label string             `json:"label"`
		Lines []ledger.EntryLine `json:"lines"`
	}
	if err := decode(r, &req); err != nil {
		fail(w, err)
		return
	}
	e, err := s.store.UpdateDraft(r.Context(), chi.URLParam(r, "id"), req.Label, req.Lines)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) validateEntry(w http.ResponseWriter, r *http.Request) {
	e, err := s.store.ValidateEntry(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) reverseEntry(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Date string `json:"date"`
	}
	if r.ContentLength != 0 {
		if err := decode(r, &req); err != nil {
			fail(w, err)
			return
		}
	}
	date := s.now()
	if req.Date != "" {
		d, err := parseDay(req.Date)
		if err != nil {
			fail(w, err)
			return
		}
		date = d
	}

	rev, err := s.store.ReverseEntry(r.Context(), chi.URLParam(r, "id"), ledger.Day(date))
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rev)
}
