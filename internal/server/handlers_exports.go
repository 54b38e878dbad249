package server

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/simonvc/grandlivre/internal/export"
	"github.com/simonvc/grandlivre/internal/export/ca3"
	"github.com/simonvc/grandlivre/internal/export/csvexport"
	"github.com/simonvc/grandlivre/internal/export/fec"
	"github.com/simonvc/grandlivre/internal/ledger"
	"github.com/simonvc/grandlivre/internal/reporting"
	"github.com/simonvc/grandlivre/internal/store"
)

// dataset loads the export range given by ?year= or ?from=&to=. ?siren=
// overrides the configured company number.
func (s *Server) dataset(r *http.Request) (*export.Dataset, error) {
	from, to, err := queryRange(r, s.store.Calendar())
	if err != nil {
		return nil, err
	}
	siren := s.siren
	if v := r.URL.Query().Get("siren"); v != "" {
		siren = v
	}
	return export.Load(r.Context(), s.store, siren, from, to, s.store.Calendar())
}

func (s *Server) fecPreview(w http.ResponseWriter, r *http.Request) {
	ds, err := s.dataset(r)
	if err != nil {
		fail(w, err)
		return
	}
	p, err := fec.New().Preview(r.Context(), ds)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) fecExport(w http.ResponseWriter, r *http.Request) {
	s.serveFile(w, r, fec.New())
}

// ca3Export returns the declarations as JSON, or the text file with
// ?format=text.
func (s *Server) ca3Export(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("format") == "text" {
		s.serveFile(w, r, ca3.New())
		return
	}
	ds, err := s.dataset(r)
	if err != nil {
		fail(w, err)
		return
	}
	decls := ca3.Build(ds)
	if decls == nil {
		decls = []ca3.Declaration{}
	}
	writeJSON(w, http.StatusOK, decls)
}

// serveFile renders the whole export before sending a header, so a refused
// export never yields a partial file.
func (s *Server) serveFile(w http.ResponseWriter, r *http.Request, x export.Exporter) {
	ds, err := s.dataset(r)
	if err != nil {
		fail(w, err)
		return
	}
	name, err := x.Filename(ds)
	if err != nil {
		fail(w, err)
		return
	}
	var buf bytes.Buffer
	if err := x.Export(r.Context(), &buf, ds); err != nil {
		fail(w, err)
		return
	}
	writeFile(w, name, "text/plain; charset=utf-8", buf.Bytes())
}

// csvExport writes one of the working reports as CSV. The query parameters
// are those of the matching JSON route.
func (s *Server) csvExport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	report := chi.URLParam(r, "report")
	var buf bytes.Buffer

	switch report {
	case "grand-livre":
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
		if err := csvexport.GrandLivre(&buf, reporting.GrandLivre(entries, f)); err != nil {
			fail(w, err)
			return
		}
	case "balance":
		asOf, err := optionalDay(q.Get("as_of"))
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
		if err := csvexport.Balance(&buf, tb); err != nil {
			fail(w, err)
			return
		}
	case "lettrage":
		groups, err := s.store.ListGroups(r.Context(), store.GroupFilter{Account: q.Get("account"), Counterparty: q.Get("counterparty")})
		if err != nil {
			fail(w, err)
			return
		}
		if err := csvexport.Lettrage(&buf, groups); err != nil {
			fail(w, err)
			return
		}
	case "immobilisations":
		assets, err := s.store.ListAssets(r.Context(), store.AssetFilter{Status: ledger.AssetStatus(q.Get("status"))})
		if err != nil {
			fail(w, err)
			return
		}
		if err := csvexport.Immobilisations(&buf, assets); err != nil {
			fail(w, err)
			return
		}
	default:
		fail(w, fmt.Errorf("%w: unknown csv report %q", ledger.ErrValidation, report))
		return
	}
	writeFile(w, report+".csv", "text/csv; charset=utf-8", buf.Bytes())
}

func writeFile(w http.ResponseWriter, name, contentType string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
