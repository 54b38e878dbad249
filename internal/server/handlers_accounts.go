package server

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/simonvc/grandlivre/internal/ledger"
	"github.com/simonvc/grandlivre/internal/store"
)

func (s *Server) listAccounts(w http.ResponseWriter, r *http.Request) {
	filter := store.AccountFilter{}

	if t := r.URL.Query().Get("type"); t != "" {
		if !ledger.ValidAccountType(ledger.AccountType(t)) {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown account type %q", t))
			return
		}
		filter.Type = ledger.AccountType(t)
	}
	if c := r.URL.Query().Get("class"); c != "" {
		n, err := strconv.Atoi(c)
		if err != nil || n < 1 || n > 7 {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("class must be 1 to 7, got %q", c))
			return
		}
		filter.Class = n
	}

	accounts, err := s.store.ListAccounts(r.Context(), filter)
	if err != nil {
		fail(w, err)
		return
	}
	if accounts == nil {
		accounts = []ledger.Account{}
	}
	writeJSON(w, http.StatusOK, accounts)
}

func (s *Server) getAccount(w http.ResponseWriter, r *http.Request) {
	acct, err := s.store.GetAccount(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, acct)
}

func (s *Server) getAccountBalance(w http.ResponseWriter, r *http.Request) {
	b, err := s.store.AccountBalance(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		fail(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"account":   b.Account,
		"debit":     b.Debit,
		"credit":    b.Credit,
		"balance":   b.Balance,
		"formatted": ledger.FormatAmount(b.Balance, ledger.BookCurrency),
	})
}

func (s *Server) listAccountEntries(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if _, err := s.store.GetAccount(r.Context(), code); err != nil {
		fail(w, err)
		return
	}
	entries, err := s.store.ListEntries(r.Context(), store.EntryFilter{Account: code, Limit: 100})
	if err != nil {
		fail(w, err)
		return
	}
	if entries == nil {
		entries = []ledger.JournalEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) getChart(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ledger.Chart)
}
