// Package ca3 builds the monthly CA3 VAT declarations of a range.
package ca3

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/simonvc/grandlivre/internal/export"
	"github.com/simonvc/grandlivre/internal/ledger"
	"github.com/simonvc/grandlivre/internal/reporting"
)

// Declaration line numbers.
const (
	Line20      = "01"
	Line10      = "02"
	Line55      = "03"
	Line21      = "06"
	LineDue     = "15"
	LineFixed   = "19"
	LineOther   = "20"
	LineCarried = "22"
	LineCredit  = "27"
	LineNet     = "28"
)

var rateLines = map[string]string{
	"20":  Line20,
	"10":  Line10,
	"5.5": Line55,
	"2.1": Line21,
}

var lineLabels = map[string]string{
	Line20:      "Opérations imposables au taux normal 20%",
	Line10:      "Opérations imposables au taux de 10%",
	Line55:      "Opérations imposables au taux de 5,5%",
	Line21:      "Opérations imposables au taux de 2,1%",
	LineDue:     "Total de la TVA brute due",
	LineFixed:   "TVA déductible sur immobilisations",
	LineOther:   "TVA déductible sur autres biens et services",
	LineCarried: "Report du crédit apparaissant ligne 27 de la précédente déclaration",
	LineCredit:  "Crédit de TVA",
	LineNet:     "TVA nette due",
}

var lineOrder = []string{Line20, Line10, Line55, Line21, LineDue, LineFixed, LineOther, LineCarried, LineCredit, LineNet}

type Line struct {
	Code  string `json:"code"`
	Label string `json:"label"`
	Base  int64  `json:"base,omitempty"`
	VAT   int64  `json:"vat"`
}

type Declaration struct {
	Month    time.Time `json:"month"`
	Lines    []Line    `json:"lines"`
	Net      int64     `json:"net"`
	Credit   int64     `json:"credit"`
	Warnings []string  `json:"warnings,omitempty"`
}

// Line returns the declaration line with the given code.
func (d *Declaration) Line(code string) (Line, bool) {
	for _, l := range d.Lines {
		if l.Code == code {
			return l, true
		}
	}
	return Line{}, false
}

// Build computes one declaration per month of the dataset range from its
// validated entries. A month ending in credit carries it to the next one.
func Build(ds *export.Dataset) []Declaration {
	entries := ds.Validated()
	var out []Declaration
	var carried int64
	for m := time.Date(ds.From.Year(), ds.From.Month(), 1, 0, 0, 0, 0, time.UTC); !m.After(ds.To); m = m.AddDate(0, 1, 0) {
		from, to := m, m.AddDate(0, 1, -1)
		if from.Before(ds.From) {
			from = ds.From
		}
		if to.After(ds.To) {
			to = ds.To
		}
		s := reporting.VAT(entries, from, to)
		d := Declaration{Month: m, Warnings: s.Warnings}
		for _, r := range s.ByRate {
			code, ok := rateLines[r.Rate]
			if !ok {
				d.Warnings = append(d.Warnings, fmt.Sprintf("account %s has no declaration line for rate %q", r.Account, r.Rate))
				continue
			}
			d.Lines = append(d.Lines, Line{Code: code, Label: lineLabels[code], Base: r.Base, VAT: r.Collected})
		}
		net := s.Collected - s.DeductibleFixed - s.DeductibleOther - carried
		d.Lines = append(d.Lines,
			Line{Code: LineDue, Label: lineLabels[LineDue], VAT: s.Collected},
			Line{Code: LineFixed, Label: lineLabels[LineFixed], VAT: s.DeductibleFixed},
			Line{Code: LineOther, Label: lineLabels[LineOther], VAT: s.DeductibleOther},
			Line{Code: LineCarried, Label: lineLabels[LineCarried], VAT: carried},
		)
		if net >= 0 {
			d.Net = net
			carried = 0
		} else {
			d.Credit = -net
			carried = -net
		}
		d.Lines = append(d.Lines,
			Line{Code: LineCredit, Label: lineLabels[LineCredit], VAT: d.Credit},
			Line{Code: LineNet, Label: lineLabels[LineNet], VAT: d.Net},
		)
		sortLines(d.Lines)
		out = append(out, d)
	}
	return out
}

func sortLines(lines []Line) {
	rank := map[string]int{}
	for i, c := range lineOrder {
		rank[c] = i
	}
	sort.SliceStable(lines, func(i, j int) bool { return rank[lines[i].Code] < rank[lines[j].Code] })
}

type Exporter struct{}

func New() *Exporter { return &Exporter{} }

func (*Exporter) Name() string { return "ca3" }

func (*Exporter) Filename(ds *export.Dataset) (string, error) {
	return fmt.Sprintf("CA3_%s_%s.txt", ds.From.Format("200601"), ds.To.Format("200601")), nil
}

func (x *Exporter) Preview(ctx context.Context, ds *export.Dataset) (*export.Preview, error) {
	name, _ := x.Filename(ds)
	p := &export.Preview{Exporter: x.Name(), Filename: name, From: ds.From, To: ds.To}
	for _, d := range Build(ds) {
		p.Rows += len(d.Lines)
		p.Entries++
		p.TotalDebit += d.Net
		p.TotalCredit += d.Credit
	}
	return p, nil
}

// Export writes the declarations as tab-separated text: month, line, label,
// base and VAT with comma decimals.
func (x *Exporter) Export(ctx context.Context, w io.Writer, ds *export.Dataset) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "Periode\tLigne\tLibelle\tBase\tTVA")
	for _, d := range Build(ds) {
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, l := range d.Lines {
			base := ""
			if l.Base != 0 {
				base = ledger.FormatDecimalComma(l.Base)
			}
			fmt.Fprintf(bw, "%s\t%s\t%s\t%s\t%s\n", d.Month.Format("2006-01"), l.Code, l.Label, base, ledger.FormatDecimalComma(l.VAT))
		}
	}
	return bw.Flush()
}
