// Package export defines the regulatory exporters and the dataset they read.
package export

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/simonvc/grandlivre/internal/ledger"
)

// Exporter turns a dataset into a regulatory file.
type Exporter interface {
	Name() string
	Filename(ds *Dataset) (string, error)
	Preview(ctx context.Context, ds *Dataset) (*Preview, error)
	Export(ctx context.Context, w io.Writer, ds *Dataset) error
}

// Preview describes what Export would produce without producing it.
type Preview struct {
	Exporter    string    `json:"exporter"`
	Filename    string    `json:"filename"`
	From        time.Time `json:"from"`
	To          time.Time `json:"to"`
	Rows        int       `json:"rows"`
	Entries     int       `json:"entries"`
	TotalDebit  int64     `json:"total_debit"`
	TotalCredit int64     `json:"total_credit"`
}

// Dataset is a consistent read of the books for [From, To].
type Dataset struct {
	SIREN    string
	From     time.Time
	To       time.Time
	Calendar ledger.FiscalCalendar
	// Entries holds every entry dated in range, drafts included, ordered by
	// sequence.
	Entries []ledger.JournalEntry
	// Numbering holds the whole numbering of every fiscal year the range
	// touches, whatever the dates of the entries carrying it.
	Numbering map[int]ledger.Numbering
}

// Source is the read side an export loads from. ExportSnapshot must read the
// entries and the numbering from one snapshot.
type Source interface {
	ExportSnapshot(ctx context.Context, from, to time.Time, years []int) ([]ledger.JournalEntry, map[int]ledger.Numbering, error)
}

// Load reads the entries of [from, to] and the numbering of the fiscal years
// the range touches.
func Load(ctx context.Context, src Source, siren string, from, to time.Time, cal ledger.FiscalCalendar) (*Dataset, error) {
	from, to = ledger.Day(from), ledger.Day(to)
	if to.Before(from) {
		return nil, fmt.Errorf("%w: range ends before it starts", ledger.ErrInvalidDate)
	}
	ds := &Dataset{SIREN: siren, From: from, To: to, Calendar: cal}

	entries, numbering, err := src.ExportSnapshot(ctx, from, to, ds.Years())
	if err != nil {
		return nil, fmt.Errorf("load export snapshot: %w", err)
	}
	ds.Entries, ds.Numbering = entries, numbering

	sort.SliceStable(ds.Entries, func(i, j int) bool {
		return ds.Entries[i].SequenceNumber().Less(ds.Entries[j].SequenceNumber())
	})
	return ds, nil
}

// Years returns the fiscal years [From, To] overlaps, in order.
func (ds *Dataset) Years() []int {
	var years []int
	for fy := ds.Calendar.FiscalYear(ds.From); fy <= ds.Calendar.FiscalYear(ds.To); fy++ {
		years = append(years, fy)
	}
	return years
}

// Validated returns the validated entries of the dataset.
func (ds *Dataset) Validated() []ledger.JournalEntry {
	var out []ledger.JournalEntry
	for _, e := range ds.Entries {
		if e.Validated {
			out = append(out, e)
		}
	}
	return out
}

// CheckAuditable refuses a dataset holding drafts, or touching a fiscal year
// whose numbering does not run from 1 to the last counter handed out.
// Entries are numbered when booked, not in date order, so the check covers
// the whole year rather than the entries in range.
func (ds *Dataset) CheckAuditable() error {
	var drafts []string
	for _, e := range ds.Entries {
		if !e.Validated {
			drafts = append(drafts, e.Sequence)
		}
	}
	if len(drafts) > 0 {
		return fmt.Errorf("%w: %d drafts (first %s)", ledger.ErrUnvalidatedEntries, len(drafts), drafts[0])
	}

	for _, fy := range ds.Years() {
		n, ok := ds.Numbering[fy]
		if !ok {
			return fmt.Errorf("%w: no numbering loaded for fiscal year %d", ledger.ErrNonContiguous, fy)
		}
		if err := checkNumbering(fy, n); err != nil {
			return err
		}
	}
	return nil
}

func checkNumbering(fy int, n ledger.Numbering) error {
	counters := append([]int64(nil), n.Counters...)
	sort.Slice(counters, func(i, j int) bool { return counters[i] < counters[j] })

	var prev int64
	for _, c := range counters {
		if c != prev+1 {
			if prev == 0 {
				return fmt.Errorf("%w: fiscal year %d starts at %d", ledger.ErrNonContiguous, fy, c)
			}
			return fmt.Errorf("%w: fiscal year %d jumps from %d to %d", ledger.ErrNonContiguous, fy, prev, c)
		}
		prev = c
	}
	if prev != n.Last {
		return fmt.Errorf("%w: fiscal year %d ends at %d, last issued %d", ledger.ErrNonContiguous, fy, prev, n.Last)
	}
	return nil
}

// LineCount returns the number of lines of validated entries.
func (ds *Dataset) LineCount() int {
	n := 0
	for _, e := range ds.Entries {
		if e.Validated {
			n += len(e.Lines)
		}
	}
	return n
}
