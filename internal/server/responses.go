package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/simonvc/grandlivre/internal/ledger"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func fail(w http.ResponseWriter, err error) {
	writeError(w, mapError(err), err.Error())
}

func mapError(err error) int {
	switch {
	case errors.Is(err, ledger.ErrEntryImmutable),
		errors.Is(err, ledger.ErrAlreadyReversed),
		errors.Is(err, ledger.ErrLineAlreadyMatch),
		errors.Is(err, ledger.ErrAssetNotActive):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ledger.ErrExport):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid JSON: %v", ledger.ErrValidation, err)
	}
	return nil
}

// parseDay reads a YYYY-MM-DD date, or an RFC 3339 timestamp truncated to
// its day.
func parseDay(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return ledger.Day(t), nil
	}
	return ledger.ParseDate(s)
}

func optionalDay(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := parseDay(s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// queryRange reads from/to, or a fiscal year, from the query string.
func queryRange(r *http.Request, cal ledger.FiscalCalendar) (time.Time, time.Time, error) {
	q := r.URL.Query()
	if y := q.Get("year"); y != "" {
		fy, err := strconv.Atoi(y)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: year %q", ledger.ErrInvalidDate, y)
		}
		from, to := cal.Bounds(fy)
		return from, to, nil
	}
	if q.Get("from") == "" || q.Get("to") == "" {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: from and to (or year) are required", ledger.ErrInvalidDate)
	}
	from, err := parseDay(q.Get("from"))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err := parseDay(q.Get("to"))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: range ends before it starts", ledger.ErrInvalidDate)
	}
	return from, to, nil
}

func queryInt(r *http.Request, key string) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s %q", ledger.ErrValidation, key, v)
	}
	return n, nil
}
