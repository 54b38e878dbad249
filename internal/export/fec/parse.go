package fec

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/simonvc/grandlivre/internal/ledger"
)

// Row is one parsed FEC line.
type Row struct {
	Journal      string
	EntryNum     string
	EntryDate    time.Time
	Account      string
	AuxAccount   string
	PieceRef     string
	Label        string
	Debit        int64
	Credit       int64
	LettrageCode string
}

// Parse reads a FEC file back. It accepts exactly the layout Export writes.
func Parse(r io.Reader) ([]Row, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)

	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: empty file", ledger.ErrMalformedFile)
	}
	header := strings.Split(strings.TrimPrefix(sc.Text(), "\ufeff"), "\t")
	if len(header) != len(Columns) {
		return nil, fmt.Errorf("%w: header has %d columns, want %d", ledger.ErrMalformedFile, len(header), len(Columns))
	}
	for i, c := range Columns {
		if header[i] != c {
			return nil, fmt.Errorf("%w: column %d is %q, want %q", ledger.ErrMalformedFile, i+1, header[i], c)
		}
	}

	var rows []Row
	for n := 2; sc.Scan(); n++ {
		text := strings.TrimRight(sc.Text(), "\r")
		if text == "" {
			continue
		}
		f := strings.Split(text, "\t")
		if len(f) != len(Columns) {
			return nil, fmt.Errorf("%w: line %d has %d columns", ledger.ErrMalformedFile, n, len(f))
		}
		date, err := time.Parse(dateLayout, f[3])
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: date %q", ledger.ErrMalformedFile, n, f[3])
		}
		debit, err := ledger.ParseDecimalComma(f[11])
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: debit: %v", ledger.ErrMalformedFile, n, err)
		}
		credit, err := ledger.ParseDecimalComma(f[12])
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: credit: %v", ledger.ErrMalformedFile, n, err)
		}
		rows = append(rows, Row{
			Journal:      f[0],
			EntryNum:     f[2],
			EntryDate:    date,
			Account:      f[4],
			AuxAccount:   f[6],
			PieceRef:     f[8],
			Label:        f[10],
			Debit:        debit,
			Credit:       credit,
			LettrageCode: f[13],
		})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return rows, nil
}

// Balances returns debit minus credit per account.
func Balances(rows []Row) map[string]int64 {
	out := map[string]int64{}
	for _, r := range rows {
		out[r.Account] += r.Debit - r.Credit
	}
	return out
}

// Stats summarizes a parsed file.
type Stats struct {
	Rows        int      `json:"rows"`
	Entries     int      `json:"entries"`
	Journals    []string `json:"journals"`
	TotalDebit  int64    `json:"total_debit"`
	TotalCredit int64    `json:"total_credit"`
	Balanced    bool     `json:"balanced"`
	// Unbalanced lists entry numbers whose own lines do not balance.
	Unbalanced []string `json:"unbalanced,omitempty"`
}

func ComputeStats(rows []Row) Stats {
	s := Stats{Rows: len(rows)}
	perEntry := map[string]int64{}
	var order []string
	journals := map[string]bool{}
	for _, r := range rows {
		if _, ok := perEntry[r.EntryNum]; !ok {
			order = append(order, r.EntryNum)
		}
		perEntry[r.EntryNum] += r.Debit - r.Credit
		journals[r.Journal] = true
		s.TotalDebit += r.Debit
		s.TotalCredit += r.Credit
	}
	s.Entries = len(order)
	for _, num := range order {
		if perEntry[num] != 0 {
			s.Unbalanced = append(s.Unbalanced, num)
		}
	}
	for j := range journals {
		s.Journals = append(s.Journals, j)
	}
	sort.Strings(s.Journals)
	s.Balanced = s.TotalDebit == s.TotalCredit && len(s.Unbalanced) == 0
	return s
}
