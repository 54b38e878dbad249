package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/simonvc/grandlivre/internal/ledger"
)

var lettrageCmd = &cobra.Command{
	Use:   "lettrage",
	Short: "Reconcile third-party accounts",
}

var lettrageRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Letter every matchable open item",
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := newClient().RunLettrage(context.Background())
		if err != nil {
			return err
		}
		fmt.Printf("%d groups lettered, %d items left open\n", len(res.Groups), res.Unmatched)
		if res.Truncated {
			fmt.Println("Search budget exhausted: some groups may have been missed.")
		}
		printGroups(res.Groups)
		return nil
	},
}

var lettrageManualCmd = &cobra.Command{
	Use:   "manual [line-id...]",
	Short: "Letter the given lines together",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ids := make([]int64, len(args))
		for i, a := range args {
			id, err := strconv.ParseInt(a, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid line id %q: %w", a, err)
			}
			ids[i] = id
		}
		g, err := newClient().ManualLettrage(context.Background(), ids)
		if err != nil {
			return err
		}
		printGroups([]ledger.ReconciliationGroup{*g})
		return nil
	},
}

var (
	groupsAccount      string
	groupsCounterparty string
)

var lettrageGroupsCmd = &cobra.Command{
	Use:   "groups",
	Short: "List lettrage groups",
	RunE: func(cmd *cobra.Command, args []string) error {
		groups, err := newClient().ListGroups(context.Background(), groupsAccount, groupsCounterparty)
		if err != nil {
			return err
		}
		if len(groups) == 0 {
			fmt.Println("No groups found.")
			return nil
		}
		printGroups(groups)
		return nil
	},
}

var lettrageDeleteCmd = &cobra.Command{
	Use:   "delete [group-id]",
	Short: "Undo a lettrage group",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := newClient().DeleteGroup(context.Background(), args[0]); err != nil {
			return err
		}
		fmt.Printf("Group %s deleted.\n", args[0])
		return nil
	},
}

var agedAsOf string

var lettrageAgedCmd = &cobra.Command{
	Use:   "aged",
	Short: "Show the aged balance of open items",
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := newClient().AgedBalance(context.Background(), agedAsOf)
		if err != nil {
			return err
		}
		fmt.Printf("Aged balance as of %s\n\n", res.AsOf.Format("2006-01-02"))
		fmt.Printf("%-8s %-16s", "ACCOUNT", "COUNTERPARTY")
		for _, b := range ledger.AllBuckets {
			fmt.Printf(" %11s", b)
		}
		fmt.Printf(" %11s %11s\n", "TOTAL", "PROVISION")
		for _, a := range res.Balances {
			fmt.Printf("%-8s %-16s", a.Account, truncate(a.Counterparty, 16))
			for _, b := range ledger.AllBuckets {
				fmt.Printf(" %11s", ledger.FormatAmount(a.Buckets[b], ledger.BookCurrency))
			}
			fmt.Printf(" %11s %11s\n", ledger.FormatAmount(a.Total, ledger.BookCurrency),
				ledger.FormatAmount(a.Provision, ledger.BookCurrency))
		}
		return nil
	},
}

func printGroups(groups []ledger.ReconciliationGroup) {
	for _, g := range groups {
		kind := "auto"
		if g.Manual {
			kind = "manual"
		}
		fmt.Printf("  %-6s %-8s %-16s %-10s %-7s %-8s lines %v\n", g.Code, g.Account, truncate(g.Counterparty, 16),
			g.MatchDate.Format("2006-01-02"), kind, g.Status, g.LineIDs)
	}
}

func init() {
	lettrageGroupsCmd.Flags().StringVar(&groupsAccount, "account", "", "Filter by account code prefix")
	lettrageGroupsCmd.Flags().StringVar(&groupsCounterparty, "counterparty", "", "Filter by counterparty")
	lettrageAgedCmd.Flags().StringVar(&agedAsOf, "as-of", "", "Aging date (YYYY-MM-DD, default today)")

	lettrageCmd.AddCommand(lettrageRunCmd)
	lettrageCmd.AddCommand(lettrageManualCmd)
	lettrageCmd.AddCommand(lettrageGroupsCmd)
	lettrageCmd.AddCommand(lettrageDeleteCmd)
	lettrageCmd.AddCommand(lettrageAgedCmd)

	rootCmd.AddCommand(lettrageCmd)
}
