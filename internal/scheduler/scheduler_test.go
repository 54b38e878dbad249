package scheduler

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simonvc/grandlivre/internal/depreciation"
	"github.com/simonvc/grandlivre/internal/ledger"
	"github.com/simonvc/grandlivre/internal/lettrage"
	"github.com/simonvc/grandlivre/internal/store"
)

type recordingAlerter struct {
	mu     sync.Mutex
	alerts []string
}

func (r *recordingAlerter) Alert(job string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, job)
}

func TestIntegrityErrorsAreAlerted(t *testing.T) {
	a := &recordingAlerter{}
	s := New(a,
		Job{Name: "broken", Run: func(context.Context, time.Time) error {
			return fmt.Errorf("commit: %w", ledger.ErrDuplicateSequence)
		}},
		Job{Name: "flaky", Run: func(context.Context, time.Time) error {
			return errors.New("disk full")
		}},
	)

	err := s.RunJob(context.Background(), "broken")
	assert.ErrorIs(t, err, ledger.ErrIntegrity)
	err = s.RunJob(context.Background(), "flaky")
	assert.Error(t, err)
	assert.Equal(t, []string{"broken"}, a.alerts)
}

func TestRunJobUnknown(t *testing.T) {
	s := New(nil)
	assert.ErrorIs(t, s.RunJob(context.Background(), "nope"), ledger.ErrNotFound)
}

func TestRunTicksUntilCancelled(t *testing.T) {
	var mu sync.Mutex
	runs := 0
	s := New(nil, Job{Name: "tick", Every: 5 * time.Millisecond, Run: func(context.Context, time.Time) error {
		mu.Lock()
		runs++
		mu.Unlock()
		return nil
	}}, Job{Name: "off", Run: func(context.Context, time.Time) error {
		t.Error("disabled job ran")
		return nil
	}})

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	require.NoError(t, s.Run(ctx))

	mu.Lock()
	defer mu.Unlock()
	assert.Greater(t, runs, 1)
}

func TestLastClosedPeriod(t *testing.T) {
	annual := depreciation.Policy{Calendar: ledger.CalendarYear}
	assert.Equal(t, ledger.Period{Year: 2025}, LastClosedPeriod(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), annual))

	monthly := depreciation.Policy{Monthly: true, Calendar: ledger.CalendarYear}
	assert.Equal(t, ledger.Period{Year: 2025, Month: time.December},
		LastClosedPeriod(time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC), monthly))

	july := depreciation.Policy{Calendar: ledger.FiscalCalendar{StartMonth: time.July, StartDay: 1}}
	assert.Equal(t, ledger.Period{Year: 2024}, LastClosedPeriod(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), july))
}

func TestJobsAgainstStore(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "grandlivre.db"))
	require.NoError(t, err)
	defer st.Close()
	ctx := context.Background()

	require.NoError(t, st.CreateAsset(ctx, &ledger.FixedAsset{
		Category:         ledger.CategoryComputer,
		Label:            "Serveur",
		AcquisitionDate:  time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		AcquisitionValue: 150000,
		UsefulLife:       3,
	}))
	for _, l := range [][2]int64{{4999, 0}, {0, 4999}} {
		e := &ledger.JournalEntry{
			Journal:        ledger.JournalBank,
			AccountingDate: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
			Label:          "Vente",
			Validated:      true,
			Lines: []ledger.EntryLine{
				{AccountCode: "411000", Debit: l[0], Credit: l[1], AuxAccount: "fan-1"},
				{AccountCode: "512000", Debit: l[1], Credit: l[0]},
			},
		}
		require.NoError(t, st.CreateEntry(ctx, e))
	}

	policy := depreciation.Policy{Calendar: ledger.CalendarYear}
	s := New(nil,
		DepreciationJob(time.Hour, policy, st),
		LettrageJob(time.Hour, lettrage.NewService(nil, lettrage.DefaultOptions(), time.Second), st),
	)
	s.now = func() time.Time { return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC) }

	require.NoError(t, s.RunJob(ctx, "depreciation"))
	assets, err := st.ListAssets(ctx, store.AssetFilter{})
	require.NoError(t, err)
	require.Len(t, assets, 1)
	assert.Equal(t, int64(100000), assets[0].NetBookValue)

	require.NoError(t, s.RunJob(ctx, "lettrage"))
	groups, err := st.ListGroups(ctx, store.GroupFilter{})
	require.NoError(t, err)
	assert.Len(t, groups, 1)
}
