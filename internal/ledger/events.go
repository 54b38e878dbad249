package ledger

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type EventType string

const (
	EventSubscription    EventType = "SUBSCRIPTION"
	EventPPVPurchase     EventType = "PPV_PURCHASE"
	EventTip             EventType = "TIP"
	EventPaymentReceived EventType = "PAYMENT_RECEIVED"
	EventPayout          EventType = "PAYOUT"
	EventRefund          EventType = "REFUND"
	EventGatewayFee      EventType = "GATEWAY_FEE"
)

// PaymentEvent is a completed monetary event handed over by the payment side.
// Amount is gross (VAT included) in minor units of Currency.
type PaymentEvent struct {
	ID           string    `json:"id"`
	Type         EventType `json:"type"`
	Amount       int64     `json:"amount"`
	Currency     string    `json:"currency"`
	Date         time.Time `json:"date"`
	Payer        string    `json:"payer,omitempty"`
	PayerName    string    `json:"payer_name,omitempty"`
	Creator      string    `json:"creator,omitempty"`
	CreatorName  string    `json:"creator_name,omitempty"`
	Counterparty string    `json:"counterparty,omitempty"`
	Reference    string    `json:"reference,omitempty"`
}

// PostingPolicy holds the rates the rule table needs.
type PostingPolicy struct {
	TakeRate decimal.Decimal // platform share of a sale, e.g. 0.10
	VATRate  decimal.Decimal // VAT included in commission and fees, e.g. 0.20
}

func DefaultPostingPolicy() PostingPolicy {
	return PostingPolicy{
		TakeRate: decimal.RequireFromString("0.10"),
		VATRate:  decimal.RequireFromString("0.20"),
	}
}

// role picks which side of the event a line belongs to.
type role int

const (
	roleGross role = iota
	roleCreatorShare
	roleCommissionHT
	roleCommissionVAT
	roleFeeHT
	roleFeeVAT
)

type party int

const (
	partyNone party = iota
	partyPayer
	partyCreator
	partyCounterparty
)

// PostingRule describes one line of the entry an event produces.
type PostingRule struct {
	Account string
	Debit   bool
	Role    role
	Party   party
}

// EventMapping is the fixed event-type to journal/lines table.
type EventMapping struct {
	Journal JournalCode
	Label   string
	Lines   []PostingRule
}

var saleLines = []PostingRule{
	{Account: AccountCustomers, Debit: true, Role: roleGross, Party: partyPayer},
	{Account: AccountCreators, Role: roleCreatorShare, Party: partyCreator},
	{Account: AccountServiceRevenue, Role: roleCommissionHT},
	{Account: AccountVATCollected20, Role: roleCommissionVAT},
}

var EventMappings = map[EventType]EventMapping{
	EventSubscription: {Journal: JournalSales, Label: "Abonnement", Lines: saleLines},
	EventPPVPurchase:  {Journal: JournalSales, Label: "Achat à l'unité", Lines: saleLines},
	EventTip:          {Journal: JournalSales, Label: "Pourboire", Lines: saleLines},
	EventPaymentReceived: {Journal: JournalBank, Label: "Encaissement", Lines: []PostingRule{
		{Account: AccountBank, Debit: true, Role: roleGross},
		{Account: AccountCustomers, Role: roleGross, Party: partyPayer},
	}},
	EventPayout: {Journal: JournalBank, Label: "Reversement créateur", Lines: []PostingRule{
		{Account: AccountCreators, Debit: true, Role: roleGross, Party: partyCreator},
		{Account: AccountBank, Role: roleGross},
	}},
	EventRefund: {Journal: JournalMisc, Label: "Remboursement", Lines: []PostingRule{
		{Account: AccountCreators, Debit: true, Role: roleCreatorShare, Party: partyCreator},
		{Account: AccountServiceRevenue, Debit: true, Role: roleCommissionHT},
		{Account: AccountVATCollected20, Debit: true, Role: roleCommissionVAT},
		{Account: AccountCustomers, Role: roleGross, Party: partyPayer},
	}},
	EventGatewayFee: {Journal: JournalPurchases, Label: "Frais de paiement", Lines: []PostingRule{
		{Account: AccountGatewayFees, Debit: true, Role: roleFeeHT},
		{Account: AccountVATDeductible, Debit: true, Role: roleFeeVAT},
		{Account: AccountSuppliers, Role: roleGross, Party: partyCounterparty},
	}},
}

// SplitVAT splits a VAT-inclusive amount into net and VAT, rounding the net
// half away from zero so that net+vat == gross.
func SplitVAT(gross int64, rate decimal.Decimal) (net, vat int64) {
	n := decimal.NewFromInt(gross).Div(decimal.NewFromInt(1).Add(rate)).Round(0).IntPart()
	return n, gross - n
}

// Commission returns the platform share of a gross sale, rounded to the
// nearest minor unit.
func Commission(gross int64, takeRate decimal.Decimal) int64 {
	return decimal.NewFromInt(gross).Mul(takeRate).Round(0).IntPart()
}

func (ev *PaymentEvent) Validate() error {
	if ev.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidEvent)
	}
	if _, ok := EventMappings[ev.Type]; !ok {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidEvent, ev.Type)
	}
	if ev.Amount <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidEvent)
	}
	if ev.Currency != "" && ev.Currency != BookCurrency {
		return fmt.Errorf("%w: events must be in %s, got %s", ErrInvalidCurrency, BookCurrency, ev.Currency)
	}
	if ev.Date.IsZero() {
		return fmt.Errorf("%w: event date is required", ErrInvalidDate)
	}
	return nil
}

// ToEntry maps the event to an unnumbered journal entry through EventMappings.
func (ev *PaymentEvent) ToEntry(policy PostingPolicy) (*JournalEntry, error) {
	if err := ev.Validate(); err != nil {
		return nil, err
	}
	m := EventMappings[ev.Type]

	commission := Commission(ev.Amount, policy.TakeRate)
	commissionHT, commissionVAT := SplitVAT(commission, policy.VATRate)
	feeHT, feeVAT := SplitVAT(ev.Amount, policy.VATRate)
	amounts := map[role]int64{
		roleGross:         ev.Amount,
		roleCreatorShare:  ev.Amount - commission,
		roleCommissionHT:  commissionHT,
		roleCommissionVAT: commissionVAT,
		roleFeeHT:         feeHT,
		roleFeeVAT:        feeVAT,
	}

	label := m.Label
	if ev.Reference != "" {
		label += " " + ev.Reference
	}
	entry := &JournalEntry{
		Journal:        m.Journal,
		EntryDate:      Day(ev.Date),
		AccountingDate: Day(ev.Date),
		Label:          label,
		Reference:      ev.Reference,
		SourceRef:      ev.ID,
	}
	for _, r := range m.Lines {
		amt := amounts[r.Role]
		if amt == 0 {
			continue
		}
		line := EntryLine{AccountCode: r.Account, Label: label}
		if r.Debit {
			line.Debit = amt
		} else {
			line.Credit = amt
		}
		switch r.Party {
		case partyPayer:
			line.AuxAccount, line.AuxLabel = ev.Payer, ev.PayerName
		case partyCreator:
			line.AuxAccount, line.AuxLabel = ev.Creator, ev.CreatorName
		case partyCounterparty:
			line.AuxAccount, line.AuxLabel = ev.Counterparty, ev.Counterparty
		}
		entry.Lines = append(entry.Lines, line)
	}
	if err := entry.Validate(); err != nil {
		return nil, err
	}
	return entry, nil
}
