package server

import (
	"net/http"

	"github.com/simonvc/grandlivre/internal/ledger"
)

type eventRequest struct {
	ID           string           `json:"id"`
	Type         ledger.EventType `json:"type"`
	Amount       int64            `json:"amount"`
	Currency     string           `json:"currency"`
	Date         string           `json:"date"`
	Payer        string           `json:"payer"`
	PayerName    string           `json:"payer_name"`
	Creator      string           `json:"creator"`
	CreatorName  string           `json:"creator_name"`
	Counterparty string           `json:"counterparty"`
	Reference    string           `json:"reference"`
}

// postEvent books a payment event. Replaying an event returns the entry it
// produced the first time with 200 instead of 201.
func (s *Server) postEvent(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := decode(r, &req); err != nil {
		fail(w, err)
		return
	}
	date, err := parseDay(req.Date)
	if err != nil {
		fail(w, err)
		return
	}
	ev := &ledger.PaymentEvent{
		ID:           req.ID,
		Type:         req.Type,
		Amount:       req.Amount,
		Currency:     req.Currency,
		Date:         date,
		Payer:        req.Payer,
		PayerName:    req.PayerName,
		Creator:      req.Creator,
		CreatorName:  req.CreatorName,
		Counterparty: req.Counterparty,
		Reference:    req.Reference,
	}

	e, created, err := s.store.PostEvent(r.Context(), ev, s.posting)
	if err != nil {
		fail(w, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, e)
}
