// Package fec writes and reads the Fichier des Écritures Comptables, the
// tab-separated audit file of every validated entry line.
package fec

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/simonvc/grandlivre/internal/export"
	"github.com/simonvc/grandlivre/internal/ledger"
)

// Columns is the mandatory header, in order.
var Columns = []string{
	"JournalCode",
	"JournalLib",
	"EcritureNum",
	"EcritureDate",
	"CompteNum",
	"CompteLib",
	"CompAuxNum",
	"CompAuxLib",
	"PieceRef",
	"PieceDate",
	"EcritureLib",
	"Debit",
	"Credit",
	"EcritureLet",
	"DateLet",
	"ValidDate",
	"Montantdevise",
	"Idevise",
}

const dateLayout = "20060102"

var sirenPattern = regexp.MustCompile(`^[0-9]{9}$`)

type Exporter struct{}

func New() *Exporter { return &Exporter{} }

func (*Exporter) Name() string { return "fec" }

// Filename is {SIREN}FEC{YYYYMMDD}.txt, dated on the end of the range.
func (*Exporter) Filename(ds *export.Dataset) (string, error) {
	if !sirenPattern.MatchString(ds.SIREN) {
		return "", fmt.Errorf("%w: %q", ledger.ErrInvalidSIREN, ds.SIREN)
	}
	return ds.SIREN + "FEC" + ds.To.Format(dateLayout) + ".txt", nil
}

func (x *Exporter) Preview(ctx context.Context, ds *export.Dataset) (*export.Preview, error) {
	name, err := x.Filename(ds)
	if err != nil {
		return nil, err
	}
	if err := ds.CheckAuditable(); err != nil {
		return nil, err
	}
	p := &export.Preview{Exporter: x.Name(), Filename: name, From: ds.From, To: ds.To, Rows: ds.LineCount()}
	for _, e := range ds.Validated() {
		p.Entries++
		d, c := e.Totals()
		p.TotalDebit += d
		p.TotalCredit += c
	}
	return p, nil
}

// Export writes the whole file or nothing: every check runs before the first
// byte is written.
func (x *Exporter) Export(ctx context.Context, w io.Writer, ds *export.Dataset) error {
	if _, err := x.Filename(ds); err != nil {
		return err
	}
	if err := ds.CheckAuditable(); err != nil {
		return err
	}

	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(strings.Join(Columns, "\t") + "\n"); err != nil {
		return err
	}
	for _, e := range ds.Entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		for i := range e.Lines {
			if _, err := bw.WriteString(strings.Join(row(&e, &e.Lines[i]), "\t") + "\n"); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}

func row(e *ledger.JournalEntry, l *ledger.EntryLine) []string {
	pieceRef := e.Reference
	if pieceRef == "" {
		pieceRef = e.Sequence
	}
	pieceDate := e.EntryDate
	if e.ReferenceDate != nil {
		pieceDate = *e.ReferenceDate
	}
	label := l.Label
	if label == "" {
		label = e.Label
	}
	var foreign string
	if l.ForeignCurrency != "" {
		foreign = strings.Replace(ledger.FormatAmount(l.ForeignAmount, l.ForeignCurrency), ".", ",", 1)
	}
	return []string{
		e.Journal.ShortCode(),
		clean(e.Journal.Label()),
		e.Sequence,
		e.AccountingDate.Format(dateLayout),
		l.AccountCode,
		clean(ledger.AccountLabel(l.AccountCode)),
		clean(l.AuxAccount),
		clean(l.AuxLabel),
		clean(pieceRef),
		pieceDate.Format(dateLayout),
		clean(label),
		ledger.FormatDecimalComma(l.Debit),
		ledger.FormatDecimalComma(l.Credit),
		l.LettrageCode,
		formatDate(l.LettrageDate),
		formatDate(e.ValidatedAt),
		foreign,
		l.ForeignCurrency,
	}
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(dateLayout)
}

var separators = strings.NewReplacer("\t", " ", "\r", " ", "\n", " ")

// clean keeps free text from breaking the column layout.
func clean(s string) string {
	return separators.Replace(s)
}
