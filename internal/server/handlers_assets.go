package server

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/simonvc/grandlivre/internal/ledger"
	"github.com/simonvc/grandlivre/internal/scheduler"
	"github.com/simonvc/grandlivre/internal/store"
)

type createAssetRequest struct {
	ID                      string                    `json:"id"`
	Category                ledger.AssetCategory      `json:"category"`
	Label                   string                    `json:"label"`
	AcquisitionDate         string                    `json:"acquisition_date"`
	AcquisitionValue        int64                     `json:"acquisition_value"`
	AssetAccount            string                    `json:"asset_account"`
	DepreciationAccount     string                    `json:"depreciation_account"`
	ExpenseAccount          string                    `json:"expense_account"`
	UsefulLife              int                       `json:"useful_life"`
	Method                  ledger.DepreciationMethod `json:"method"`
	AccumulatedDepreciation int64                     `json:"accumulated_depreciation"`
	PeriodsCharged          int                       `json:"periods_charged"`
}

func (s *Server) createAsset(w http.ResponseWriter, r *http.Request) {
	var req createAssetRequest
	if err := decode(r, &req); err != nil {
		fail(w, err)
		return
	}
	acquired, err := parseDay(req.AcquisitionDate)
	if err != nil {
		fail(w, err)
		return
	}

	a := &ledger.FixedAsset{
		ID:                      req.ID,
		Category:                req.Category,
		Label:                   req.Label,
		AcquisitionDate:         acquired,
		AcquisitionValue:        req.AcquisitionValue,
		AssetAccount:            req.AssetAccount,
		DepreciationAccount:     req.DepreciationAccount,
		ExpenseAccount:          req.ExpenseAccount,
		UsefulLife:              req.UsefulLife,
		Method:                  req.Method,
		AccumulatedDepreciation: req.AccumulatedDepreciation,
		PeriodsCharged:          req.PeriodsCharged,
	}
	if err := s.store.CreateAsset(r.Context(), a); err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (s *Server) listAssets(w http.ResponseWriter, r *http.Request) {
	filter := store.AssetFilter{Status: ledger.AssetStatus(r.URL.Query().Get("status"))}
	assets, err := s.store.ListAssets(r.Context(), filter)
	if err != nil {
		fail(w, err)
		return
	}
	if assets == nil {
		assets = []ledger.FixedAsset{}
	}
	writeJSON(w, http.StatusOK, assets)
}

func (s *Server) getAsset(w http.ResponseWriter, r *http.Request) {
	a, err := s.store.GetAsset(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) assetSchedule(w http.ResponseWriter, r *http.Request) {
	a, err := s.store.GetAsset(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		fail(w, err)
		return
	}
	lines, err := s.engine.Schedule(a)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"asset":    a,
		"schedule": lines,
	})
}

func (s *Server) disposeAsset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Date     string `json:"date"`
		Proceeds int64  `json:"proceeds"`
	}
	if err := decode(r, &req); err != nil {
		fail(w, err)
		return
	}
	date, err := parseDay(req.Date)
	if err != nil {
		fail(w, err)
		return
	}
	a, e, err := s.store.DisposeAsset(r.Context(), chi.URLParam(r, "id"), date, req.Proceeds)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"asset": a,
		"entry": e,
	})
}

// runDepreciation books charges up to ?period=, or up to the last closed
// period when it is absent.
func (s *Server) runDepreciation(w http.ResponseWriter, r *http.Request) {
	target := scheduler.LastClosedPeriod(s.now(), s.depreciation)
	if p := r.URL.Query().Get("period"); p != "" {
		var err error
		if target, err = ledger.ParsePeriod(p); err != nil {
			fail(w, err)
			return
		}
		if (target.Month != 0) != s.depreciation.Monthly {
			fail(w, fmt.Errorf("%w: period %s does not match the configured periodicity", ledger.ErrInvalidDate, p))
			return
		}
	}

	res, err := s.engine.Run(r.Context(), s.store, target)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
