package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/simonvc/grandlivre/internal/client"
	"github.com/simonvc/grandlivre/internal/ledger"
)

var entryCmd = &cobra.Command{
	Use:   "entry",
	Short: "Manage journal entries",
}

var (
	entryJournal   string
	entryDate      string
	entryLabel     string
	entryReference string
	entryValidate  bool
	entryLines     []string // format: "account:D|C:amount[:aux]"
)

// parseLine reads "512000:D:49.99" or "411000:C:12.00:fan_1".
func parseLine(s string) (ledger.EntryLine, error) {
	parts := strings.SplitN(s, ":", 4)
	if len(parts) < 3 {
		return ledger.EntryLine{}, fmt.Errorf("invalid line format %q, expected account:D|C:amount[:aux]", s)
	}
	amount, err := ledger.ToMinorUnits(parts[2], ledger.BookCurrency)
	if err != nil {
		return ledger.EntryLine{}, fmt.Errorf("invalid amount %q in line %q: %w", parts[2], s, err)
	}
	l := ledger.EntryLine{AccountCode: parts[0]}
	switch strings.ToUpper(parts[1]) {
	case "D", "DR":
		l.Debit = amount
	case "C", "CR":
		l.Credit = amount
	default:
		return ledger.EntryLine{}, fmt.Errorf("invalid side %q in line %q, expected D or C", parts[1], s)
	}
	if len(parts) == 4 {
		l.AuxAccount = parts[3]
	}
	return l, nil
}

var entryCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a journal entry",
	Long: "Create a balanced journal entry, as a draft unless --validate is given.\n" +
		`Each --line is formatted as "account:D|C:amount[:aux]" (e.g. "512000:D:49.99").`,
	RunE: func(cmd *cobra.Command, args []string) error {
		req := &client.EntryRequest{
			Journal:        journalArg(entryJournal),
			AccountingDate: entryDate,
			Label:          entryLabel,
			Reference:      entryReference,
			Validate:       entryValidate,
		}
		for _, s := range entryLines {
			l, err := parseLine(s)
			if err != nil {
				return err
			}
			req.Lines = append(req.Lines, l)
		}

		created, err := newClient().CreateEntry(context.Background(), req)
		if err != nil {
			return err
		}
		printEntry(created)
		return nil
	},
}

var (
	entryListAccount string
	entryListJournal string
	entryListFrom    string
	entryListTo      string
	entryListDrafts  bool
	entryListLimit   int
)

var entryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List journal entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		q := client.EntryQuery{
			Account: entryListAccount,
			Journal: string(journalArg(entryListJournal)),
			From:    entryListFrom,
			To:      entryListTo,
			Limit:   entryListLimit,
		}
		if cmd.Flags().Changed("drafts") {
			validated := !entryListDrafts
			q.Validated = &validated
		}
		entries, err := newClient().ListEntries(context.Background(), q)
		if err != nil {
			return err
		}
		printEntries(entries)
		return nil
	},
}

var entryGetCmd = &cobra.Command{
	Use:   "get [id|sequence]",
	Short: "Show an entry and its lines",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newClient().GetEntry(context.Background(), args[0])
		if err != nil {
			return err
		}
		printEntry(e)
		return nil
	},
}

var entryValidateCmd = &cobra.Command{
	Use:   "validate [id]",
	Short: "Validate a draft, making it immutable",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newClient().ValidateEntry(context.Background(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Entry %s validated.\n", e.Sequence)
		return nil
	},
}

var entryReverseDate string

var entryReverseCmd = &cobra.Command{
	Use:   "reverse [id]",
	Short: "Book the contre-passation of a validated entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newClient().ReverseEntry(context.Background(), args[0], entryReverseDate)
		if err != nil {
			return err
		}
		printEntry(e)
		return nil
	},
}

// journalArg accepts a journal name (SALES) or its short code (VE).
func journalArg(s string) ledger.JournalCode {
	s = strings.ToUpper(s)
	if j, ok := ledger.JournalFromShort(s); ok {
		return j
	}
	return ledger.JournalCode(s)
}

func printEntries(entries []ledger.JournalEntry) {
	if len(entries) == 0 {
		fmt.Println("No entries found.")
		return
	}
	fmt.Printf("%-12s %-10s %-3s %-35s %12s %s\n", "SEQUENCE", "DATE", "JNL", "LABEL", "AMOUNT", "STATUS")
	fmt.Printf("%-12s %-10s %-3s %-35s %12s %s\n", "--------", "----", "---", "-----", "------", "------")
	for _, e := range entries {
		debit, _ := e.Totals()
		fmt.Printf("%-12s %-10s %-3s %-35s %12s %s\n", e.Sequence, e.AccountingDate.Format("2006-01-02"),
			e.Journal.ShortCode(), truncate(e.Label, 33), ledger.FormatAmount(debit, ledger.BookCurrency), entryStatus(&e))
	}
}

func printEntry(e *ledger.JournalEntry) {
	fmt.Printf("Entry:    %s (%s)\n", e.Sequence, e.ID)
	fmt.Printf("Journal:  %s %s\n", e.Journal.ShortCode(), e.Journal.Label())
	fmt.Printf("Date:     %s\n", e.AccountingDate.Format("2006-01-02"))
	fmt.Printf("Label:    %s\n", e.Label)
	if e.Reference != "" {
		fmt.Printf("Piece:    %s\n", e.Reference)
	}
	if e.ReversalOf != "" {
		fmt.Printf("Reverses: %s\n", e.ReversalOf)
	}
	fmt.Printf("Status:   %s\n", entryStatus(e))
	fmt.Println()
	fmt.Printf("  %-8s %-30s %-12s %12s %12s %s\n", "ACCOUNT", "LABEL", "AUX", "DEBIT", "CREDIT", "LET")
	for _, l := range e.Lines {
		debit, credit := "", ""
		if l.Debit > 0 {
			debit = ledger.FormatAmount(l.Debit, ledger.BookCurrency)
		}
		if l.Credit > 0 {
			credit = ledger.FormatAmount(l.Credit, ledger.BookCurrency)
		}
		label := l.Label
		if label == "" {
			label = ledger.AccountLabel(l.AccountCode)
		}
		fmt.Printf("  %-8s %-30s %-12s %12s %12s %s\n", l.AccountCode, truncate(label, 28), l.AuxAccount, debit, credit, l.LettrageCode)
	}
}

func entryStatus(e *ledger.JournalEntry) string {
	if e.Validated {
		return "validated"
	}
	return "draft"
}

func init() {
	entryCreateCmd.Flags().StringVar(&entryJournal, "journal", "OD", "Journal (VE, AC, BQ, OD, AN)")
	entryCreateCmd.Flags().StringVar(&entryDate, "date", "", "Accounting date (YYYY-MM-DD)")
	entryCreateCmd.Flags().StringVar(&entryLabel, "label", "", "Entry label")
	entryCreateCmd.Flags().StringVar(&entryReference, "ref", "", "Piece reference")
	entryCreateCmd.Flags().BoolVar(&entryValidate, "validate", false, "Validate the entry immediately")
	entryCreateCmd.Flags().StringArrayVar(&entryLines, "line", nil, `Entry line "account:D|C:amount[:aux]" (repeatable)`)
	entryCreateCmd.MarkFlagRequired("date")
	entryCreateCmd.MarkFlagRequired("label")
	entryCreateCmd.MarkFlagRequired("line")

	entryListCmd.Flags().StringVar(&entryListAccount, "account", "", "Filter by account code prefix")
	entryListCmd.Flags().StringVar(&entryListJournal, "journal", "", "Filter by journal")
	entryListCmd.Flags().StringVar(&entryListFrom, "from", "", "From date (YYYY-MM-DD)")
	entryListCmd.Flags().StringVar(&entryListTo, "to", "", "To date (YYYY-MM-DD)")
	entryListCmd.Flags().BoolVar(&entryListDrafts, "drafts", false, "Only drafts (--drafts=false for validated only)")
	entryListCmd.Flags().IntVar(&entryListLimit, "limit", 50, "Maximum number of entries")

	entryReverseCmd.Flags().StringVar(&entryReverseDate, "date", "", "Reversal date (default today)")

	entryCmd.AddCommand(entryCreateCmd)
	entryCmd.AddCommand(entryListCmd)
	entryCmd.AddCommand(entryGetCmd)
	entryCmd.AddCommand(entryValidateCmd)
	entryCmd.AddCommand(entryReverseCmd)

	rootCmd.AddCommand(entryCmd)
}
