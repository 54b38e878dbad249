package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/simonvc/grandlivre/internal/ledger"
)

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Browse the chart of accounts",
}

var (
	acctListType  string
	acctListClass int
)

var accountListCmd = &cobra.Command{
	Use:   "list",
	Short: "List accounts",
	RunE: func(cmd *cobra.Command, args []string) error {
		accounts, err := newClient().ListAccounts(context.Background(), acctListType, acctListClass)
		if err != nil {
			return err
		}
		if len(accounts) == 0 {
			fmt.Println("No accounts found.")
			return nil
		}
		printAccounts(accounts)
		return nil
	},
}

var accountChartCmd = &cobra.Command{
	Use:   "chart",
	Short: "Print the full Plan Comptable Général registry",
	RunE: func(cmd *cobra.Command, args []string) error {
		accounts, err := newClient().GetChart(context.Background())
		if err != nil {
			return err
		}
		printAccounts(accounts)
		return nil
	},
}

func printAccounts(accounts []ledger.Account) {
	fmt.Printf("%-8s %-45s %-10s %s\n", "CODE", "LABEL", "TYPE", "SIDE")
	fmt.Printf("%-8s %-45s %-10s %s\n", "----", "-----", "----", "----")
	for _, a := range accounts {
		fmt.Printf("%-8s %-45s %-10s %s\n", a.Code, truncate(a.Label, 43), a.Type, a.NormalSide)
	}
}

var accountGetCmd = &cobra.Command{
	Use:   "get [code]",
	Short: "Get account details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		acct, err := newClient().GetAccount(context.Background(), args[0])
		if err != nil {
			return err
		}

		fmt.Printf("Code:      %s\n", acct.Code)
		fmt.Printf("Label:     %s\n", acct.Label)
		fmt.Printf("Type:      %s (%s)\n", acct.Type, ledger.TypeLabel(acct.Type))
		fmt.Printf("Side:      %s\n", acct.NormalSide)
		fmt.Printf("Lettrable: %v\n", acct.Lettrable)
		if acct.VATRate != "" {
			fmt.Printf("VAT rate:  %s%%\n", acct.VATRate)
		}
		return nil
	},
}

var accountBalanceCmd = &cobra.Command{
	Use:   "balance [code]",
	Short: "Get an account balance from validated entries",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		bal, err := newClient().GetAccountBalance(context.Background(), args[0])
		if err != nil {
			return err
		}

		fmt.Printf("Account: %s\n", bal.Account)
		fmt.Printf("Debit:   %s\n", ledger.FormatAmount(bal.Debit, ledger.BookCurrency))
		fmt.Printf("Credit:  %s\n", ledger.FormatAmount(bal.Credit, ledger.BookCurrency))
		fmt.Printf("Balance: %s %s\n", bal.Formatted, ledger.BookCurrency)
		return nil
	},
}

var accountEntriesCmd = &cobra.Command{
	Use:   "entries [code]",
	Short: "List the latest entries touching an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := newClient().ListAccountEntries(context.Background(), args[0])
		if err != nil {
			return err
		}
		printEntries(entries)
		return nil
	},
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		return string(r[:n-2]) + ".."
	}
	return s
}

func init() {
	accountListCmd.Flags().StringVar(&acctListType, "type", "", "Filter by type (asset, liability, equity, revenue, expense)")
	accountListCmd.Flags().IntVar(&acctListClass, "class", 0, "Filter by PCG class (1-7)")

	accountCmd.AddCommand(accountListCmd)
	accountCmd.AddCommand(accountChartCmd)
	accountCmd.AddCommand(accountGetCmd)
	accountCmd.AddCommand(accountBalanceCmd)
	accountCmd.AddCommand(accountEntriesCmd)

	rootCmd.AddCommand(accountCmd)
}
