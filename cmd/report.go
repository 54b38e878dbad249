package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/simonvc/grandlivre/internal/client"
	"github.com/simonvc/grandlivre/internal/ledger"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Accounting reports from validated entries",
}

var (
	reportAsOf    string
	reportAccount string
	reportFrom    string
	reportTo      string
	reportYear    int
)

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Show the grand livre",
	RunE: func(cmd *cobra.Command, args []string) error {
		gl, err := newClient().GrandLivre(context.Background(), reportAccount, reportFrom, reportTo)
		if err != nil {
			return err
		}
		printGrandLivre(gl)
		return nil
	},
}

var trialBalanceCmd = &cobra.Command{
	Use:   "trial",
	Short: "Show the balance générale",
	RunE: func(cmd *cobra.Command, args []string) error {
		tb, err := newClient().TrialBalance(context.Background(), reportAsOf)
		if err != nil {
			return err
		}
		printTrialBalance(tb)
		return nil
	},
}

var bilanCmd = &cobra.Command{
	Use:   "bilan",
	Short: "Show the balance sheet",
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := newClient().Bilan(context.Background(), reportAsOf)
		if err != nil {
			return err
		}
		printBilan(b)
		return nil
	},
}

var ratiosCmd = &cobra.Command{
	Use:   "ratios",
	Short: "Show balance-sheet ratios",
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := newClient().Ratios(context.Background(), reportAsOf)
		if err != nil {
			return err
		}
		printRatios(r)
		return nil
	},
}

var vatCmd = &cobra.Command{
	Use:   "vat",
	Short: "Show collected and deductible VAT for a range",
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := newClient().VAT(context.Background(), client.Range{Year: reportYear, From: reportFrom, To: reportTo})
		if err != nil {
			return err
		}
		printVAT(v)
		return nil
	},
}

func printGrandLivre(gl *ledger.GrandLivre) {
	w := 96
	fmt.Println()
	fmt.Println(center("GRAND LIVRE", w))
	fmt.Println(center(strings.Repeat("=", 20), w))
	for _, a := range gl.Accounts {
		fmt.Println()
		fmt.Printf("  %s %s\n", a.Code, a.Label)
		fmt.Printf("  %s\n", strings.Repeat("─", w-4))
		fmt.Printf("  %-10s %-11s %-3s %-30s %12s %12s %12s\n", "", "", "", "Report à nouveau", "", "", formatSigned(a.OpeningBalance))
		for _, m := range a.Movements {
			fmt.Printf("  %-10s %-11s %-3s %-30s %12s %12s %12s %s\n", m.AccountingDate.Format("2006-01-02"), m.Sequence,
				m.Journal.ShortCode(), truncate(m.Label, 30), amountOrBlank(m.Debit), amountOrBlank(m.Credit),
				formatSigned(m.Balance), m.LettrageCode)
		}
		fmt.Printf("  %-57s %12s %12s %12s\n", "Total", amountOrBlank(a.TotalDebit), amountOrBlank(a.TotalCredit), formatSigned(a.ClosingBalance))
	}
	printWarnings(gl.Warnings)
}

func printTrialBalance(tb *ledger.TrialBalance) {
	w := 96
	fmt.Println()
	fmt.Println(center("BALANCE GÉNÉRALE", w))
	fmt.Println(center("au "+tb.AsOf.Format("2006-01-02"), w))
	fmt.Println()

	fmt.Printf("  %-8s %-30s %12s %12s %12s %12s\n", "COMPTE", "LIBELLÉ", "DÉBIT", "CRÉDIT", "SOLDE D", "SOLDE C")
	fmt.Printf("  %-8s %-30s %12s %12s %12s %12s\n", "------", "-------", "-----", "------", "-------", "-------")
	for _, l := range tb.Lines {
		fmt.Printf("  %-8s %-30s %12s %12s %12s %12s\n", l.Code, truncate(l.Label, 28), amountOrBlank(l.TotalDebit),
			amountOrBlank(l.TotalCredit), amountOrBlank(l.DebitBalance), amountOrBlank(l.CreditBalance))
	}
	fmt.Printf("  %s\n", strings.Repeat("─", w-4))
	fmt.Printf("  %-39s %12s %12s %12s %12s\n", "TOTAUX",
		amountOrBlank(tb.TotalDebit), amountOrBlank(tb.TotalCredit),
		amountOrBlank(tb.TotalDebitBalance), amountOrBlank(tb.TotalCreditBalance))

	printBalanced(tb.Balanced)
	printWarnings(tb.Warnings)
}

func printBilan(b *ledger.Bilan) {
	w := 60
	fmt.Println()
	fmt.Println(center("BILAN", w))
	fmt.Println(center("au "+b.AsOf.Format("2006-01-02"), w))
	fmt.Println()

	printBilanSide("ACTIF", b.Actif, w)
	fmt.Printf("%*s%s\n", w-15, "", "─────────────")
	fmt.Printf("%-*s%15s\n", w-15, "Total actif", formatSigned(b.TotalActif))
	fmt.Println()

	printBilanSide("PASSIF", b.Passif, w)
	fmt.Printf("%-*s%15s\n", w-15, "  dont résultat de l'exercice", formatSigned(b.Result))
	fmt.Printf("%*s%s\n", w-15, "", "─────────────")
	fmt.Printf("%-*s%15s\n", w-15, "Total passif", formatSigned(b.TotalPassif))

	printBalanced(b.TotalActif == b.TotalPassif)
	printWarnings(b.Warnings)
}

func printRatios(r *ledger.BilanRatios) {
	fmt.Printf("Ratios au %s\n\n", r.AsOf.Format("2006-01-02"))
	fmt.Printf("  %-30s %15s\n", "Fonds de roulement", formatSigned(r.WorkingCapital))
	fmt.Printf("  %-30s %15s\n", "Besoin en fonds de roulement", formatSigned(r.WorkingCapitalNeed))
	fmt.Printf("  %-30s %15s\n", "Trésorerie nette", formatSigned(r.NetCash))
	fmt.Println()
	fmt.Printf("  %-30s %15s\n", "Liquidité générale", r.Liquidity.StringFixed(2))
	fmt.Printf("  %-30s %14s%%\n", "Solvabilité", r.Solvency.Shift(2).StringFixed(1))
	fmt.Printf("  %-30s %15s\n", "Endettement", r.Gearing.StringFixed(2))
}

func printBilanSide(title string, lines []ledger.BilanLine, w int) {
	fmt.Printf("  %s\n", title)
	fmt.Printf("  %s\n", strings.Repeat("─", w-4))
	for _, l := range lines {
		fmt.Printf("  %-8s %-*s%15s\n", l.Code, w-26, truncate(l.Label, w-28), formatSigned(l.Amount))
	}
}

func printVAT(v *ledger.VATSummary) {
	fmt.Printf("TVA du %s au %s\n\n", v.From.Format("2006-01-02"), v.To.Format("2006-01-02"))
	fmt.Printf("  %-8s %6s %12s %12s\n", "COMPTE", "TAUX", "BASE", "TVA")
	for _, l := range v.ByRate {
		fmt.Printf("  %-8s %5s%% %12s %12s\n", l.Account, l.Rate, formatSigned(l.Base), formatSigned(l.Collected))
	}
	fmt.Println()
	fmt.Printf("  %-28s %12s\n", "TVA collectée", formatSigned(v.Collected))
	fmt.Printf("  %-28s %12s\n", "TVA déductible immobilisations", formatSigned(v.DeductibleFixed))
	fmt.Printf("  %-28s %12s\n", "TVA déductible autres", formatSigned(v.DeductibleOther))
	if v.Net >= 0 {
		fmt.Printf("  %-28s %12s\n", "TVA nette due", formatSigned(v.Net))
	} else {
		fmt.Printf("  %-28s %12s\n", "Crédit de TVA", formatSigned(-v.Net))
	}
	printWarnings(v.Warnings)
}

func printBalanced(ok bool) {
	if ok {
		fmt.Println("\n  [BALANCED]")
	} else {
		fmt.Println("\n  [UNBALANCED!]")
	}
}

func printWarnings(warnings []string) {
	for _, w := range warnings {
		fmt.Printf("  warning: %s\n", w)
	}
}

func center(s string, w int) string {
	n := len([]rune(s))
	if n >= w {
		return s
	}
	return strings.Repeat(" ", (w-n)/2) + s
}

func amountOrBlank(amount int64) string {
	if amount == 0 {
		return ""
	}
	return formatSigned(amount)
}

func formatSigned(amount int64) string {
	if amount < 0 {
		return "(" + ledger.FormatAmount(-amount, ledger.BookCurrency) + ")"
	}
	return ledger.FormatAmount(amount, ledger.BookCurrency)
}

func init() {
	ledgerCmd.Flags().StringVar(&reportAccount, "account", "", "Account code prefix")
	ledgerCmd.Flags().StringVar(&reportFrom, "from", "", "From date (YYYY-MM-DD)")
	ledgerCmd.Flags().StringVar(&reportTo, "to", "", "To date (YYYY-MM-DD)")
	trialBalanceCmd.Flags().StringVar(&reportAsOf, "as-of", "", "Report date (YYYY-MM-DD, default all entries)")
	bilanCmd.Flags().StringVar(&reportAsOf, "as-of", "", "Report date (YYYY-MM-DD, default all entries)")
	ratiosCmd.Flags().StringVar(&reportAsOf, "as-of", "", "Report date (YYYY-MM-DD, default all entries)")
	vatCmd.Flags().IntVar(&reportYear, "year", 0, "Fiscal year")
	vatCmd.Flags().StringVar(&reportFrom, "from", "", "From date (YYYY-MM-DD)")
	vatCmd.Flags().StringVar(&reportTo, "to", "", "To date (YYYY-MM-DD)")

	reportCmd.AddCommand(ledgerCmd)
	reportCmd.AddCommand(trialBalanceCmd)
	reportCmd.AddCommand(bilanCmd)
	reportCmd.AddCommand(ratiosCmd)
	reportCmd.AddCommand(vatCmd)
	rootCmd.AddCommand(reportCmd)
}
