package cmd

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/simonvc/grandlivre/internal/client"
	"github.com/simonvc/grandlivre/internal/export/fec"
	"github.com/simonvc/grandlivre/internal/ledger"
)

var (
	exportYear  int
	exportFrom  string
	exportTo    string
	exportSIREN string
	exportOut   string
	ca3Text     bool

	csvAccount      string
	csvCounterparty string
	csvAsOf         string
	csvStatus       string
)

func exportRange() client.Range {
	return client.Range{Year: exportYear, From: exportFrom, To: exportTo}
}

var fecCmd = &cobra.Command{
	Use:   "fec",
	Short: "Fichier des Écritures Comptables",
}

var fecPreviewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Check that a FEC can be produced and summarize it",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := newClient().FECPreview(context.Background(), exportRange(), exportSIREN)
		if err != nil {
			return err
		}
		fmt.Printf("File:    %s\n", p.Filename)
		fmt.Printf("Range:   %s to %s\n", p.From.Format("2006-01-02"), p.To.Format("2006-01-02"))
		fmt.Printf("Entries: %d\n", p.Entries)
		fmt.Printf("Rows:    %d\n", p.Rows)
		fmt.Printf("Debit:   %s\n", ledger.FormatAmount(p.TotalDebit, ledger.BookCurrency))
		fmt.Printf("Credit:  %s\n", ledger.FormatAmount(p.TotalCredit, ledger.BookCurrency))
		return nil
	},
}

var fecExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the FEC file",
	RunE: func(cmd *cobra.Command, args []string) error {
		var buf bytes.Buffer
		name, err := newClient().FEC(context.Background(), exportRange(), exportSIREN, &buf)
		if err != nil {
			return err
		}
		path, err := writeExport(name, buf.Bytes())
		if err != nil {
			return err
		}
		fmt.Printf("FEC written to %s\n", path)
		return nil
	},
}

var fecVerifyCmd = &cobra.Command{
	Use:   "verify [file]",
	Short: "Parse a FEC file and check that it balances",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		rows, err := fec.Parse(f)
		if err != nil {
			return err
		}
		s := fec.ComputeStats(rows)
		fmt.Printf("Rows:     %d\n", s.Rows)
		fmt.Printf("Entries:  %d\n", s.Entries)
		fmt.Printf("Journals: %s\n", strings.Join(s.Journals, ", "))
		fmt.Printf("Debit:    %s\n", ledger.FormatAmount(s.TotalDebit, ledger.BookCurrency))
		fmt.Printf("Credit:   %s\n", ledger.FormatAmount(s.TotalCredit, ledger.BookCurrency))
		for _, num := range s.Unbalanced {
			fmt.Printf("Unbalanced entry: %s\n", num)
		}
		printBalanced(s.Balanced)
		if !s.Balanced {
			return fmt.Errorf("%w: %s does not balance", ledger.ErrMalformedFile, args[0])
		}
		return nil
	},
}

var ca3Cmd = &cobra.Command{
	Use:   "ca3",
	Short: "Build the monthly CA3 VAT declarations",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := newClient()
		if ca3Text {
			var buf bytes.Buffer
			name, err := c.CA3Text(context.Background(), exportRange(), &buf)
			if err != nil {
				return err
			}
			path, err := writeExport(name, buf.Bytes())
			if err != nil {
				return err
			}
			fmt.Printf("CA3 written to %s\n", path)
			return nil
		}

		decls, err := c.CA3(context.Background(), exportRange())
		if err != nil {
			return err
		}
		for _, d := range decls {
			fmt.Printf("CA3 %s\n", d.Month.Format("2006-01"))
			for _, l := range d.Lines {
				fmt.Printf("  %-3s %-68s %12s %12s\n", l.Code, truncate(l.Label, 68), amountOrBlank(l.Base), formatSigned(l.VAT))
			}
			printWarnings(d.Warnings)
			fmt.Println()
		}
		return nil
	},
}

var csvCmd = &cobra.Command{
	Use:       "csv <grand-livre|balance|lettrage|immobilisations>",
	Short:     "Export a working report as CSV",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"grand-livre", "balance", "lettrage", "immobilisations"},
	RunE: func(cmd *cobra.Command, args []string) error {
		params := url.Values{}
		for k, v := range map[string]string{
			"from": exportFrom, "to": exportTo, "account": csvAccount,
			"counterparty": csvCounterparty, "as_of": csvAsOf, "status": csvStatus,
		} {
			if v != "" {
				params.Set(k, v)
			}
		}
		var buf bytes.Buffer
		name, err := newClient().CSV(context.Background(), args[0], params, &buf)
		if err != nil {
			return err
		}
		path, err := writeExport(name, buf.Bytes())
		if err != nil {
			return err
		}
		fmt.Printf("%s written to %s\n", args[0], path)
		return nil
	},
}

// writeExport saves data under --out, a directory or a file path. The
// server's file name is used when --out is a directory.
func writeExport(name string, data []byte) (string, error) {
	path := exportOut
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, name)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

func addRangeFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&exportYear, "year", 0, "Fiscal year")
	cmd.Flags().StringVar(&exportFrom, "from", "", "From date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&exportTo, "to", "", "To date (YYYY-MM-DD)")
}

func init() {
	for _, c := range []*cobra.Command{fecPreviewCmd, fecExportCmd, ca3Cmd} {
		addRangeFlags(c)
	}
	fecPreviewCmd.Flags().StringVar(&exportSIREN, "siren", "", "Company SIREN (default from config)")
	fecExportCmd.Flags().StringVar(&exportSIREN, "siren", "", "Company SIREN (default from config)")
	fecExportCmd.Flags().StringVar(&exportOut, "out", ".", "Output directory or file")
	ca3Cmd.Flags().BoolVar(&ca3Text, "text", false, "Write the tab-separated declaration file instead of printing")
	ca3Cmd.Flags().StringVar(&exportOut, "out", ".", "Output directory or file, with --text")

	fecCmd.AddCommand(fecPreviewCmd)
	fecCmd.AddCommand(fecExportCmd)
	fecCmd.AddCommand(fecVerifyCmd)

	rootCmd.AddCommand(fecCmd)
	rootCmd.AddCommand(ca3Cmd)

	csvCmd.Flags().StringVar(&exportFrom, "from", "", "From date, grand-livre (YYYY-MM-DD)")
	csvCmd.Flags().StringVar(&exportTo, "to", "", "To date, grand-livre (YYYY-MM-DD)")
	csvCmd.Flags().StringVar(&csvAccount, "account", "", "Account code prefix, grand-livre and lettrage")
	csvCmd.Flags().StringVar(&csvCounterparty, "counterparty", "", "Counterparty, lettrage")
	csvCmd.Flags().StringVar(&csvAsOf, "as-of", "", "Report date, balance (YYYY-MM-DD)")
	csvCmd.Flags().StringVar(&csvStatus, "status", "", "Asset status, immobilisations")
	csvCmd.Flags().StringVar(&exportOut, "out", ".", "Output directory or file")
	rootCmd.AddCommand(csvCmd)
}
