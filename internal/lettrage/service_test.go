package lettrage

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simonvc/grandlivre/internal/ledger"
)

type memStore struct {
	items  []ledger.OpenItem
	codes  map[int64]string
	groups []ledger.ReconciliationGroup
	next   int
}

func newMemStore(items ...ledger.OpenItem) *memStore {
	return &memStore{items: items, codes: map[int64]string{}}
}

func (m *memStore) UnmatchedLines(ctx context.Context, accounts []string) ([]ledger.OpenItem, error) {
	var out []ledger.OpenItem
	for _, it := range m.items {
		if m.codes[it.LineID] == "" && ledger.HasPrefix(it.Account, accounts...) {
			out = append(out, it)
		}
	}
	return out, nil
}

func (m *memStore) OpenItems(ctx context.Context, ids []int64) ([]ledger.OpenItem, error) {
	var out []ledger.OpenItem
	for _, id := range ids {
		found := false
		for _, it := range m.items {
			if it.LineID == id {
				if m.codes[id] != "" {
					return nil, ledger.ErrLineAlreadyMatch
				}
				out = append(out, it)
				found = true
			}
		}
		if !found {
			return nil, fmt.Errorf("%w: %d", ledger.ErrLineNotFound, id)
		}
	}
	return out, nil
}

func (m *memStore) CommitLettrage(ctx context.Context, groups []ledger.ReconciliationGroup) ([]ledger.ReconciliationGroup, error) {
	for i := range groups {
		groups[i].ID = fmt.Sprintf("g%d", m.next)
		groups[i].Code = ledger.LettrageCode(m.next)
		if groups[i].Manual {
			groups[i].Code = ledger.ManualCodePrefix + groups[i].Code
		}
		m.next++
		for _, id := range groups[i].LineIDs {
			m.codes[id] = groups[i].Code
		}
	}
	m.groups = append(m.groups, groups...)
	return groups, nil
}

func TestRunLettersOffsettingPair(t *testing.T) {
	st := newMemStore(
		item(1, "alice", 0, 4999),
		item(2, "alice", 1, -4999),
	)
	svc := NewService(nil, DefaultOptions(), time.Second)

	res, err := svc.Run(context.Background(), st, day(5))
	require.NoError(t, err)
	require.Len(t, res.Groups, 1)
	g := res.Groups[0]
	assert.Equal(t, "A", g.Code)
	assert.Equal(t, ledger.GroupMatched, g.Status)
	assert.Equal(t, day(5), g.MatchDate)
	assert.Equal(t, "A", st.codes[1])
	assert.Equal(t, st.codes[1], st.codes[2])
	assert.Equal(t, 0, res.Unmatched)
}

func TestRunTwiceIsIdempotent(t *testing.T) {
	st := newMemStore(
		item(1, "alice", 0, 4999),
		item(2, "alice", 1, -4999),
		item(3, "bob", 0, 10000),
		item(4, "bob", 0, -6000),
		item(5, "bob", 1, -4000),
		item(6, "carol", 0, 2500),
	)
	svc := NewService(nil, DefaultOptions(), 0)

	first, err := svc.Run(context.Background(), st, day(3))
	require.NoError(t, err)
	assert.Len(t, first.Groups, 2)
	assert.Equal(t, 1, first.Unmatched)

	second, err := svc.Run(context.Background(), st, day(3))
	require.NoError(t, err)
	assert.Empty(t, second.Groups)
	assert.Equal(t, first.Unmatched, second.Unmatched)
	assert.Equal(t, first.Aged, second.Aged)
	assert.Len(t, st.groups, 2)
}

func TestRunOnlyLooksAtConfiguredAccounts(t *testing.T) {
	a := item(1, "alice", 0, 100)
	b := item(2, "alice", 0, -100)
	a.Account, b.Account = ledger.AccountBank, ledger.AccountBank
	st := newMemStore(a, b)

	res, err := NewService(nil, DefaultOptions(), 0).Run(context.Background(), st, day(0))
	require.NoError(t, err)
	assert.Empty(t, res.Groups)
	assert.Equal(t, 0, res.Unmatched)
}

func TestManualLettrage(t *testing.T) {
	st := newMemStore(
		item(1, "alice", 0, 5000),
		item(2, "alice", 30, -3000),
		item(3, "alice", 31, -2000),
		item(4, "alice", 40, -100),
	)
	svc := NewService(nil, DefaultOptions(), 0)
	ctx := context.Background()

	g, err := svc.Manual(ctx, st, []int64{1, 2, 3}, day(45))
	require.NoError(t, err)
	assert.Equal(t, "MAN-A", g.Code)
	assert.Equal(t, ledger.GroupMatched, g.Status)
	assert.True(t, g.Manual)

	_, err = svc.Manual(ctx, st, []int64{1, 4}, day(45))
	assert.ErrorIs(t, err, ledger.ErrLineAlreadyMatch)

	_, err = svc.Manual(ctx, st, []int64{4}, day(45))
	assert.ErrorIs(t, err, ledger.ErrValidation)

	_, err = svc.Manual(ctx, st, []int64{4, 4}, day(45))
	assert.ErrorIs(t, err, ledger.ErrInvalidLettrage)

	_, err = svc.Manual(ctx, st, []int64{4, 99}, day(45))
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestManualGroupPartial(t *testing.T) {
	g, err := ManualGroup([]ledger.OpenItem{
		item(1, "alice", 0, 5000),
		item(2, "alice", 1, -3000),
	}, 0, day(2))
	require.NoError(t, err)
	assert.Equal(t, ledger.GroupPartial, g.Status)
	assert.Equal(t, int64(2000), g.Total)

	other := item(3, "alice", 1, -2000)
	other.Account = ledger.AccountSuppliers
	_, err = ManualGroup([]ledger.OpenItem{item(1, "alice", 0, 2000), other}, 0, day(2))
	assert.ErrorIs(t, err, ledger.ErrInvalidLettrage)
}
