package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/simonvc/grandlivre/internal/ledger"
)

var (
	eventID           string
	eventType         string
	eventAmount       string
	eventDate         string
	eventPayer        string
	eventCreator      string
	eventCounterparty string
	eventReference    string
)

var eventCmd = &cobra.Command{
	Use:   "event",
	Short: "Book a payment event",
	Long: "Book a completed payment event through the posting rules. Types: " +
		"SUBSCRIPTION, PPV_PURCHASE, TIP, PAYMENT_RECEIVED, PAYOUT, REFUND, GATEWAY_FEE.\n" +
		"Posting the same --id twice returns the entry booked the first time.",
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := ledger.ToMinorUnits(eventAmount, ledger.BookCurrency)
		if err != nil {
			return err
		}
		date := time.Now().UTC()
		if eventDate != "" {
			if date, err = ledger.ParseDate(eventDate); err != nil {
				return err
			}
		}
		ev := &ledger.PaymentEvent{
			ID:           eventID,
			Type:         ledger.EventType(strings.ToUpper(eventType)),
			Amount:       amount,
			Currency:     ledger.BookCurrency,
			Date:         date,
			Payer:        eventPayer,
			Creator:      eventCreator,
			Counterparty: eventCounterparty,
			Reference:    eventReference,
		}

		e, created, err := newClient().PostEvent(context.Background(), ev)
		if err != nil {
			return err
		}
		if !created {
			fmt.Printf("Event %s already booked.\n\n", ev.ID)
		}
		printEntry(e)
		return nil
	},
}

func init() {
	eventCmd.Flags().StringVar(&eventID, "id", "", "Event id (idempotency key)")
	eventCmd.Flags().StringVar(&eventType, "type", "", "Event type")
	eventCmd.Flags().StringVar(&eventAmount, "amount", "", "Gross amount in EUR, VAT included (e.g. 9.99)")
	eventCmd.Flags().StringVar(&eventDate, "date", "", "Event date (YYYY-MM-DD, default today)")
	eventCmd.Flags().StringVar(&eventPayer, "payer", "", "Paying fan id")
	eventCmd.Flags().StringVar(&eventCreator, "creator", "", "Creator id")
	eventCmd.Flags().StringVar(&eventCounterparty, "counterparty", "", "Supplier id for gateway fees")
	eventCmd.Flags().StringVar(&eventReference, "ref", "", "External reference")
	eventCmd.MarkFlagRequired("id")
	eventCmd.MarkFlagRequired("type")
	eventCmd.MarkFlagRequired("amount")

	rootCmd.AddCommand(eventCmd)
}
