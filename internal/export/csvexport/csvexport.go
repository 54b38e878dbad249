// Package csvexport writes the working reports as semicolon-separated CSV
// with comma decimals, the layout French spreadsheets open directly.
package csvexport

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/simonvc/grandlivre/internal/ledger"
)

const dateLayout = "2006-01-02"

var (
	GrandLivreHeader      = []string{"Compte", "Libellé compte", "Date", "N° écriture", "Libellé", "Débit", "Crédit", "Solde", "Lettrage"}
	BalanceHeader         = []string{"Compte", "Libellé", "Débit", "Crédit", "Solde débiteur", "Solde créditeur"}
	LettrageHeader        = []string{"Code", "Compte", "Tiers", "Type", "Statut", "Montant", "Date lettrage", "Nb lignes"}
	ImmobilisationsHeader = []string{"ID", "Libellé", "Nature", "Date acquisition", "Valeur acquisition", "Méthode", "Durée", "VNC", "Amort. cumulés", "Statut"}
)

func newWriter(w io.Writer) *csv.Writer {
	cw := csv.NewWriter(w)
	cw.Comma = ';'
	return cw
}

func amount(v int64) string { return ledger.FormatDecimalComma(v) }

func writeAll(w io.Writer, header []string, rows [][]string) error {
	cw := newWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, row := range rows {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// GrandLivre writes an opening row, the movements and a totals row per account.
func GrandLivre(w io.Writer, gl *ledger.GrandLivre) error {
	var rows [][]string
	for _, a := range gl.Accounts {
		rows = append(rows, []string{a.Code, a.Label, "Solde initial", "", "", amount(0), amount(0), amount(a.OpeningBalance), ""})
		for _, m := range a.Movements {
			rows = append(rows, []string{
				a.Code, a.Label, m.AccountingDate.Format(dateLayout), m.Sequence, m.Label,
				amount(m.Debit), amount(m.Credit), amount(m.Balance), m.LettrageCode,
			})
		}
		rows = append(rows, []string{a.Code, a.Label, "Totaux", "", "", amount(a.TotalDebit), amount(a.TotalCredit), amount(a.ClosingBalance), ""})
	}
	return writeAll(w, GrandLivreHeader, rows)
}

// Balance writes the trial balance lines followed by a totals row.
func Balance(w io.Writer, tb *ledger.TrialBalance) error {
	rows := make([][]string, 0, len(tb.Lines)+1)
	for _, l := range tb.Lines {
		rows = append(rows, []string{
			l.Code, l.Label, amount(l.TotalDebit), amount(l.TotalCredit), amount(l.DebitBalance), amount(l.CreditBalance),
		})
	}
	rows = append(rows, []string{
		"TOTAUX", "", amount(tb.TotalDebit), amount(tb.TotalCredit), amount(tb.TotalDebitBalance), amount(tb.TotalCreditBalance),
	})
	return writeAll(w, BalanceHeader, rows)
}

func Lettrage(w io.Writer, groups []ledger.ReconciliationGroup) error {
	rows := make([][]string, 0, len(groups))
	for _, g := range groups {
		kind := "auto"
		if g.Manual {
			kind = "manuel"
		}
		rows = append(rows, []string{
			g.Code, g.Account, g.Counterparty, kind, string(g.Status), amount(g.Total),
			g.MatchDate.Format(dateLayout), strconv.Itoa(len(g.LineIDs)),
		})
	}
	return writeAll(w, LettrageHeader, rows)
}

func Immobilisations(w io.Writer, assets []ledger.FixedAsset) error {
	rows := make([][]string, 0, len(assets))
	for _, a := range assets {
		rows = append(rows, []string{
			a.ID, a.Label, string(a.Category), a.AcquisitionDate.Format(dateLayout), amount(a.AcquisitionValue),
			string(a.Method), strconv.Itoa(a.UsefulLife), amount(a.NetBookValue), amount(a.AccumulatedDepreciation),
			string(a.Status),
		})
	}
	return writeAll(w, ImmobilisationsHeader, rows)
}
