// Package lettrage matches offsetting open items into zero-sum groups.
//
// Matching runs in two passes. The first pairs equal and opposite amounts
// one-to-one. The second looks for one item settled by several opposite items
// (N-to-1) inside the same account and counterparty, bounded by a maximum
// group size, a date window, a candidate cap and a node budget. Anything past
// those bounds stays unmatched and the result is flagged Truncated when a
// budget or the deadline cut a search short.
package lettrage

import (
	"context"
	"sort"
	"time"

	"github.com/simonvc/grandlivre/internal/ledger"
)

type Options struct {
	// MaxGroupSize bounds N-to-1 groups, target included.
	MaxGroupSize int
	// WindowDays is the maximum date distance between grouped items; 0 disables it.
	WindowDays int
	// Tolerance is the largest absolute group total still treated as zero.
	Tolerance int64
	// MaxCandidates caps the opposite items considered per N-to-1 target.
	MaxCandidates int
	// NodeBudget caps the combinations explored per N-to-1 target.
	NodeBudget int
}

func DefaultOptions() Options {
	return Options{
		MaxGroupSize:  5,
		WindowDays:    3,
		Tolerance:     0,
		MaxCandidates: 20,
		NodeBudget:    100_000,
	}
}

func (o Options) normalized() Options {
	d := DefaultOptions()
	if o.MaxGroupSize < 2 {
		o.MaxGroupSize = d.MaxGroupSize
	}
	if o.WindowDays < 0 {
		o.WindowDays = 0
	}
	if o.Tolerance < 0 {
		o.Tolerance = 0
	}
	if o.MaxCandidates <= 0 {
		o.MaxCandidates = d.MaxCandidates
	}
	if o.NodeBudget <= 0 {
		o.NodeBudget = d.NodeBudget
	}
	return o
}

type Kind string

const (
	KindOneToOne Kind = "1-1"
	KindNToOne   Kind = "n-1"
)

type Group struct {
	Account      string            `json:"account"`
	Counterparty string            `json:"counterparty"`
	Kind         Kind              `json:"kind"`
	Items        []ledger.OpenItem `json:"items"`
	Total        int64             `json:"total"`
}

// LineIDs returns the ids of the grouped lines in ascending order.
func (g *Group) LineIDs() []int64 {
	ids := make([]int64, len(g.Items))
	for i, it := range g.Items {
		ids[i] = it.LineID
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

type Result struct {
	Groups    []Group           `json:"groups"`
	Unmatched []ledger.OpenItem `json:"unmatched"`
	Truncated bool              `json:"truncated"`
}

type partyKey struct {
	account      string
	counterparty string
}

func abs(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}

// byDateID is the stable order every pass works in.
func byDateID(items []ledger.OpenItem) {
	sort.Slice(items, func(i, j int) bool {
		if !items[i].Date.Equal(items[j].Date) {
			return items[i].Date.Before(items[j].Date)
		}
		return items[i].LineID < items[j].LineID
	})
}

func (o Options) withinWindow(a, b time.Time) bool {
	if o.WindowDays == 0 {
		return true
	}
	d := ledger.Day(a).Sub(ledger.Day(b))
	if d < 0 {
		d = -d
	}
	return d <= time.Duration(o.WindowDays)*24*time.Hour
}

// Match partitions items into zero-sum groups. The same input always yields
// the same groups unless ctx expires mid-search, which is reported through
// Truncated. Matching the returned Unmatched again finds no further group.
func Match(ctx context.Context, items []ledger.OpenItem, opts Options) Result {
	opts = opts.normalized()
	sorted := make([]ledger.OpenItem, 0, len(items))
	for _, it := range items {
		if it.Amount != 0 {
			sorted = append(sorted, it)
		}
	}
	byDateID(sorted)

	used := make(map[int64]bool, len(sorted))
	var res Result

	res.Groups = append(res.Groups, matchExact(sorted, opts, used)...)

	parties := map[partyKey][]ledger.OpenItem{}
	var keys []partyKey
	for _, it := range sorted {
		if used[it.LineID] {
			continue
		}
		k := partyKey{it.Account, it.Counterparty}
		if _, ok := parties[k]; !ok {
			keys = append(keys, k)
		}
		parties[k] = append(parties[k], it)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].account != keys[j].account {
			return keys[i].account < keys[j].account
		}
		return keys[i].counterparty < keys[j].counterparty
	})
	for _, k := range keys {
		// Groups taken by one target can free candidate slots for another,
		// so the search repeats until a full pass over the party adds nothing.
		for {
			groups, truncated := matchCombinations(ctx, parties[k], opts, used)
			res.Groups = append(res.Groups, groups...)
			if truncated {
				res.Truncated = true
			}
			if len(groups) == 0 || ctx.Err() != nil {
				break
			}
		}
		if ctx.Err() != nil {
			res.Truncated = true
			break
		}
	}

	for _, it := range sorted {
		if !used[it.LineID] {
			res.Unmatched = append(res.Unmatched, it)
		}
	}
	for _, it := range items {
		if it.Amount == 0 {
			res.Unmatched = append(res.Unmatched, it)
		}
	}
	return res
}

type exactKey struct {
	partyKey
	amount int64
}

// matchExact pairs each debit with the earliest unused credit of the same
// absolute amount, account and counterparty inside the window.
func matchExact(sorted []ledger.OpenItem, opts Options, used map[int64]bool) []Group {
	pos := map[exactKey][]ledger.OpenItem{}
	neg := map[exactKey][]ledger.OpenItem{}
	var keys []exactKey
	for _, it := range sorted {
		k := exactKey{partyKey{it.Account, it.Counterparty}, abs(it.Amount)}
		if _, ok := pos[k]; !ok {
			if _, ok := neg[k]; !ok {
				keys = append(keys, k)
			}
		}
		if it.Amount > 0 {
			pos[k] = append(pos[k], it)
		} else {
			neg[k] = append(neg[k], it)
		}
	}

	var groups []Group
	for _, k := range keys {
		credits := neg[k]
		for _, d := range pos[k] {
			for i := range credits {
				c := credits[i]
				if used[c.LineID] || !opts.withinWindow(d.Date, c.Date) {
					continue
				}
				used[d.LineID], used[c.LineID] = true, true
				groups = append(groups, Group{
					Account:      k.account,
					Counterparty: k.counterparty,
					Kind:         KindOneToOne,
					Items:        []ledger.OpenItem{d, c},
					Total:        d.Amount + c.Amount,
				})
				break
			}
		}
	}
	return groups
}

// matchCombinations runs the bounded N-to-1 search inside one account and
// counterparty.
func matchCombinations(ctx context.Context, party []ledger.OpenItem, opts Options, used map[int64]bool) ([]Group, bool) {
	if opts.MaxGroupSize < 3 || len(party) < 3 {
		return nil, false
	}
	targets := append([]ledger.OpenItem(nil), party...)
	sort.SliceStable(targets, func(i, j int) bool {
		ai, aj := abs(targets[i].Amount), abs(targets[j].Amount)
		if ai != aj {
			return ai > aj
		}
		return targets[i].LineID < targets[j].LineID
	})

	var groups []Group
	truncated := false
	for _, t := range targets {
		if used[t.LineID] {
			continue
		}
		if ctx.Err() != nil {
			return groups, true
		}
		cands := candidates(t, party, opts, used)
		if len(cands) < 2 {
			continue
		}
		s := &search{
			ctx:    ctx,
			cands:  cands,
			need:   abs(t.Amount),
			tol:    opts.Tolerance,
			maxLen: opts.MaxGroupSize - 1,
			budget: opts.NodeBudget,
		}
		s.suffix = make([]int64, len(cands)+1)
		for i := len(cands) - 1; i >= 0; i-- {
			s.suffix[i] = s.suffix[i+1] + abs(cands[i].Amount)
		}
		chosen := s.run()
		if s.exhausted {
			truncated = true
		}
		if chosen == nil {
			continue
		}
		g := Group{Account: t.Account, Counterparty: t.Counterparty, Kind: KindNToOne, Items: []ledger.OpenItem{t}, Total: t.Amount}
		used[t.LineID] = true
		for _, i := range chosen {
			c := cands[i]
			used[c.LineID] = true
			g.Items = append(g.Items, c)
			g.Total += c.Amount
		}
		groups = append(groups, g)
	}
	return groups, truncated
}

// candidates returns the opposite-sign unused items that could settle t: the
// MaxCandidates nearest in date, then ordered by absolute amount descending.
func candidates(t ledger.OpenItem, party []ledger.OpenItem, opts Options, used map[int64]bool) []ledger.OpenItem {
	need := abs(t.Amount)
	var out []ledger.OpenItem
	for _, c := range party {
		if c.LineID == t.LineID || used[c.LineID] {
			continue
		}
		if (c.Amount > 0) == (t.Amount > 0) || abs(c.Amount) > need+opts.Tolerance {
			continue
		}
		if !opts.withinWindow(t.Date, c.Date) {
			continue
		}
		out = append(out, c)
	}
	dist := func(c ledger.OpenItem) time.Duration {
		d := c.Date.Sub(t.Date)
		if d < 0 {
			return -d
		}
		return d
	}
	sort.SliceStable(out, func(i, j int) bool {
		di, dj := dist(out[i]), dist(out[j])
		if di != dj {
			return di < dj
		}
		return out[i].LineID < out[j].LineID
	})
	if len(out) > opts.MaxCandidates {
		out = out[:opts.MaxCandidates]
	}
	sort.SliceStable(out, func(i, j int) bool {
		ai, aj := abs(out[i].Amount), abs(out[j].Amount)
		if ai != aj {
			return ai > aj
		}
		return out[i].LineID < out[j].LineID
	})
	return out
}

type search struct {
	ctx       context.Context
	cands     []ledger.OpenItem
	suffix    []int64
	need      int64
	tol       int64
	maxLen    int
	budget    int
	nodes     int
	exhausted bool
	path      []int
}

func (s *search) run() []int {
	if s.dfs(0, 0) {
		return append([]int(nil), s.path...)
	}
	return nil
}

// dfs extends the current path with candidates from index start on. Amounts
// are visited in descending order, so a sum past need+tol prunes the branch
// and the suffix sums prune branches that can no longer reach need-tol.
func (s *search) dfs(start int, sum int64) bool {
	if len(s.path) >= 2 && abs(sum-s.need) <= s.tol {
		return true
	}
	if len(s.path) == s.maxLen {
		return false
	}
	for i := start; i < len(s.cands); i++ {
		s.nodes++
		if s.nodes > s.budget {
			s.exhausted = true
			return false
		}
		if s.nodes%1024 == 0 && s.ctx.Err() != nil {
			s.exhausted = true
			return false
		}
		if sum+s.suffix[i] < s.need-s.tol {
			return false
		}
		next := sum + abs(s.cands[i].Amount)
		if next > s.need+s.tol {
			continue
		}
		s.path = append(s.path, i)
		if s.dfs(i+1, next) {
			return true
		}
		s.path = s.path[:len(s.path)-1]
		if s.exhausted {
			return false
		}
	}
	return false
}
