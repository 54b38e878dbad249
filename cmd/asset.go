package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/simonvc/grandlivre/internal/client"
	"github.com/simonvc/grandlivre/internal/ledger"
)

var assetCmd = &cobra.Command{
	Use:   "asset",
	Short: "Manage fixed assets",
}

var (
	assetCategory string
	assetLabel    string
	assetDate     string
	assetValue    string
	assetLife     int
	assetMethod   string
)

var assetCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Register a fixed asset",
	RunE: func(cmd *cobra.Command, args []string) error {
		value, err := ledger.ToMinorUnits(assetValue, ledger.BookCurrency)
		if err != nil {
			return err
		}
		a, err := newClient().CreateAsset(context.Background(), &client.AssetRequest{
			Category:         ledger.AssetCategory(assetCategory),
			Label:            assetLabel,
			AcquisitionDate:  assetDate,
			AcquisitionValue: value,
			UsefulLife:       assetLife,
			Method:           ledger.DepreciationMethod(assetMethod),
		})
		if err != nil {
			return err
		}
		printAsset(a)
		return nil
	},
}

var assetListStatus string

var assetListCmd = &cobra.Command{
	Use:   "list",
	Short: "List fixed assets",
	RunE: func(cmd *cobra.Command, args []string) error {
		assets, err := newClient().ListAssets(context.Background(), assetListStatus)
		if err != nil {
			return err
		}
		if len(assets) == 0 {
			fmt.Println("No assets found.")
			return nil
		}
		fmt.Printf("%-36s %-28s %-10s %12s %12s %s\n", "ID", "LABEL", "ACQUIRED", "VALUE", "NBV", "STATUS")
		for _, a := range assets {
			fmt.Printf("%-36s %-28s %-10s %12s %12s %s\n", a.ID, truncate(a.Label, 26), a.AcquisitionDate.Format("2006-01-02"),
				ledger.FormatAmount(a.AcquisitionValue, ledger.BookCurrency), ledger.FormatAmount(a.NetBookValue, ledger.BookCurrency), a.Status)
		}
		return nil
	},
}

var assetGetCmd = &cobra.Command{
	Use:   "get [id]",
	Short: "Show an asset and its depreciation schedule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := newClient().AssetSchedule(context.Background(), args[0])
		if err != nil {
			return err
		}
		printAsset(&res.Asset)
		fmt.Println()
		fmt.Printf("  %-8s %12s %12s %12s %s\n", "PERIOD", "CHARGE", "ACCUMULATED", "NBV", "")
		for _, l := range res.Schedule {
			booked := ""
			if l.Booked {
				booked = "booked"
			}
			fmt.Printf("  %-8s %12s %12s %12s %s\n", l.Period, ledger.FormatAmount(l.Charge, ledger.BookCurrency),
				ledger.FormatAmount(l.Accumulated, ledger.BookCurrency), ledger.FormatAmount(l.NetBook, ledger.BookCurrency), booked)
		}
		return nil
	},
}

var (
	disposeDate     string
	disposeProceeds string
)

var assetDisposeCmd = &cobra.Command{
	Use:   "dispose [id]",
	Short: "Dispose of an asset and book the cession entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		proceeds, err := ledger.ToMinorUnits(disposeProceeds, ledger.BookCurrency)
		if err != nil {
			return err
		}
		res, err := newClient().DisposeAsset(context.Background(), args[0], disposeDate, proceeds)
		if err != nil {
			return err
		}
		printAsset(&res.Asset)
		fmt.Println()
		printEntry(&res.Entry)
		return nil
	},
}

var depreciatePeriod string

var depreciateCmd = &cobra.Command{
	Use:   "depreciate",
	Short: "Book depreciation up to a period",
	Long:  "Book every depreciation charge due up to --period (YYYY, or YYYY-MM when monthly), by default the last closed period.",
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := newClient().RunDepreciation(context.Background(), depreciatePeriod)
		if err != nil {
			return err
		}
		fmt.Printf("Depreciation up to %s: %d charges, %s %s\n", res.Target, len(res.Charges),
			ledger.FormatAmount(res.Total, ledger.BookCurrency), ledger.BookCurrency)
		for _, c := range res.Charges {
			fmt.Printf("  %-36s %-8s %12s\n", c.AssetID, c.Period, ledger.FormatAmount(c.Amount, ledger.BookCurrency))
		}
		for _, s := range res.Skipped {
			fmt.Printf("  skipped: %s\n", s)
		}
		return nil
	},
}

func printAsset(a *ledger.FixedAsset) {
	fmt.Printf("Asset:       %s\n", a.ID)
	fmt.Printf("Label:       %s (%s)\n", a.Label, a.Category)
	fmt.Printf("Acquired:    %s for %s %s\n", a.AcquisitionDate.Format("2006-01-02"),
		ledger.FormatAmount(a.AcquisitionValue, ledger.BookCurrency), ledger.BookCurrency)
	fmt.Printf("Accounts:    %s / %s / %s\n", a.AssetAccount, a.DepreciationAccount, a.ExpenseAccount)
	fmt.Printf("Method:      %s over %d years, rate %s\n", a.Method, a.UsefulLife, a.Rate)
	fmt.Printf("Accumulated: %s\n", ledger.FormatAmount(a.AccumulatedDepreciation, ledger.BookCurrency))
	fmt.Printf("Net book:    %s\n", ledger.FormatAmount(a.NetBookValue, ledger.BookCurrency))
	fmt.Printf("Status:      %s\n", a.Status)
}

func init() {
	assetCreateCmd.Flags().StringVar(&assetCategory, "category", "", "Category (logiciel, materiel_info, mobilier, vehicule, agencement, construction)")
	assetCreateCmd.Flags().StringVar(&assetLabel, "label", "", "Asset label")
	assetCreateCmd.Flags().StringVar(&assetDate, "date", "", "Acquisition date (YYYY-MM-DD)")
	assetCreateCmd.Flags().StringVar(&assetValue, "value", "", "Acquisition value in EUR, excluding VAT")
	assetCreateCmd.Flags().IntVar(&assetLife, "life", 0, "Useful life in years (default from category)")
	assetCreateCmd.Flags().StringVar(&assetMethod, "method", "", "Depreciation method (linear or declining)")
	assetCreateCmd.MarkFlagRequired("category")
	assetCreateCmd.MarkFlagRequired("label")
	assetCreateCmd.MarkFlagRequired("date")
	assetCreateCmd.MarkFlagRequired("value")

	assetListCmd.Flags().StringVar(&assetListStatus, "status", "", "Filter by status (in_progress, fully_depreciated, disposed)")

	assetDisposeCmd.Flags().StringVar(&disposeDate, "date", "", "Disposal date (YYYY-MM-DD)")
	assetDisposeCmd.Flags().StringVar(&disposeProceeds, "proceeds", "0", "Sale proceeds in EUR")
	assetDisposeCmd.MarkFlagRequired("date")

	depreciateCmd.Flags().StringVar(&depreciatePeriod, "period", "", "Target period (YYYY or YYYY-MM)")

	assetCmd.AddCommand(assetCreateCmd)
	assetCmd.AddCommand(assetListCmd)
	assetCmd.AddCommand(assetGetCmd)
	assetCmd.AddCommand(assetDisposeCmd)

	rootCmd.AddCommand(assetCmd)
	rootCmd.AddCommand(depreciateCmd)
}
