package lettrage

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/simonvc/grandlivre/internal/ledger"
)

// Store is what reconciliation needs from persistence.
type Store interface {
	// UnmatchedLines returns the unlettered lines of the given accounts.
	UnmatchedLines(ctx context.Context, accounts []string) ([]ledger.OpenItem, error)
	// OpenItems loads specific lines, failing if any is unknown or lettered.
	OpenItems(ctx context.Context, lineIDs []int64) ([]ledger.OpenItem, error)
	// CommitLettrage stores the groups and codes their lines in one
	// transaction, assigning codes from the persisted index.
	CommitLettrage(ctx context.Context, groups []ledger.ReconciliationGroup) ([]ledger.ReconciliationGroup, error)
}

type Service struct {
	Accounts []string
	Options  Options
	// Timeout bounds the matching search of one run; 0 means no limit.
	Timeout time.Duration
}

func NewService(accounts []string, opts Options, timeout time.Duration) *Service {
	if len(accounts) == 0 {
		accounts = ledger.LettrableCodes()
	}
	return &Service{Accounts: accounts, Options: opts.normalized(), Timeout: timeout}
}

type RunResult struct {
	Groups    []ledger.ReconciliationGroup `json:"groups"`
	Unmatched int                          `json:"unmatched"`
	Truncated bool                         `json:"truncated"`
	Aged      []ledger.AgedBalance         `json:"aged"`
}

// Run letters every matchable open item and commits the groups atomically.
// Running it again on an unchanged book finds nothing new.
func (s *Service) Run(ctx context.Context, st Store, now time.Time) (*RunResult, error) {
	items, err := st.UnmatchedLines(ctx, s.Accounts)
	if err != nil {
		return nil, fmt.Errorf("load open items: %w", err)
	}

	searchCtx := ctx
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		searchCtx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}
	m := Match(searchCtx, items, s.Options)

	res := &RunResult{Unmatched: len(m.Unmatched), Truncated: m.Truncated, Aged: Age(m.Unmatched, now)}
	if len(m.Groups) == 0 {
		return res, nil
	}

	groups := make([]ledger.ReconciliationGroup, len(m.Groups))
	for i := range m.Groups {
		g := &m.Groups[i]
		groups[i] = ledger.ReconciliationGroup{
			Account:      g.Account,
			Counterparty: g.Counterparty,
			LineIDs:      g.LineIDs(),
			Total:        g.Total,
			Status:       ledger.GroupMatched,
			MatchDate:    ledger.Day(now),
		}
	}
	committed, err := st.CommitLettrage(ctx, groups)
	if err != nil {
		return nil, fmt.Errorf("commit lettrage: %w", err)
	}
	res.Groups = committed
	log.Printf("lettrage run: %d groups, %d unmatched, truncated=%v", len(committed), res.Unmatched, res.Truncated)
	return res, nil
}

// Manual letters a caller-chosen set of lines. A set that does not sum to
// zero within tolerance is stored as a partial group.
func (s *Service) Manual(ctx context.Context, st Store, lineIDs []int64, now time.Time) (*ledger.ReconciliationGroup, error) {
	if len(lineIDs) < 2 {
		return nil, fmt.Errorf("%w: at least two lines are needed", ledger.ErrInvalidLettrage)
	}
	seen := map[int64]bool{}
	for _, id := range lineIDs {
		if seen[id] {
			return nil, fmt.Errorf("%w: line %d listed twice", ledger.ErrInvalidLettrage, id)
		}
		seen[id] = true
	}
	items, err := st.OpenItems(ctx, lineIDs)
	if err != nil {
		return nil, err
	}
	g, err := ManualGroup(items, s.Options.Tolerance, now)
	if err != nil {
		return nil, err
	}
	committed, err := st.CommitLettrage(ctx, []ledger.ReconciliationGroup{g})
	if err != nil {
		return nil, err
	}
	return &committed[0], nil
}

// ManualGroup builds the group for a hand-picked set of open items, which
// must all sit on the same account.
func ManualGroup(items []ledger.OpenItem, tolerance int64, now time.Time) (ledger.ReconciliationGroup, error) {
	if len(items) < 2 {
		return ledger.ReconciliationGroup{}, fmt.Errorf("%w: at least two lines are needed", ledger.ErrInvalidLettrage)
	}
	g := ledger.ReconciliationGroup{
		Account:      items[0].Account,
		Counterparty: items[0].Counterparty,
		Manual:       true,
		MatchDate:    ledger.Day(now),
	}
	for _, it := range items {
		if it.Account != g.Account {
			return ledger.ReconciliationGroup{}, fmt.Errorf("%w: lines span accounts %s and %s", ledger.ErrInvalidLettrage, g.Account, it.Account)
		}
		if it.Counterparty != g.Counterparty {
			g.Counterparty = ""
		}
		g.LineIDs = append(g.LineIDs, it.LineID)
		g.Total += it.Amount
	}
	g.Status = ledger.GroupMatched
	if abs(g.Total) > tolerance {
		g.Status = ledger.GroupPartial
	}
	return g, nil
}

// Aged computes the aged balance of the open items at now.
func (s *Service) Aged(ctx context.Context, st Store, now time.Time) ([]ledger.AgedBalance, []ledger.AgedBalanceBucket, error) {
	items, err := st.UnmatchedLines(ctx, s.Accounts)
	if err != nil {
		return nil, nil, fmt.Errorf("load open items: %w", err)
	}
	return Age(items, now), Buckets(items, now), nil
}
