package ledger

import "time"

// ManualCodePrefix marks groups created by hand rather than by a run.
const ManualCodePrefix = "MAN-"

type GroupStatus string

const (
	GroupMatched GroupStatus = "lettre"
	GroupPartial GroupStatus = "partiel"
)

// ReconciliationGroup is a set of entry lines whose signed amounts sum to zero
// within tolerance.
type ReconciliationGroup struct {
	ID           string      `json:"id"`
	Code         string      `json:"code"`
	Account      string      `json:"account"`
	Counterparty string      `json:"counterparty"`
	LineIDs      []int64     `json:"line_ids"`
	Total        int64       `json:"total"`
	Status       GroupStatus `json:"status"`
	Manual       bool        `json:"manual,omitempty"`
	MatchDate    time.Time   `json:"match_date"`
}

// LettrageCode maps 0,1,…,25,26,27 to A,B,…,Z,AA,AB (bijective base 26).
func LettrageCode(index int) string {
	var buf []byte
	for n := index + 1; n > 0; n = (n - 1) / 26 {
		buf = append([]byte{byte('A' + (n-1)%26)}, buf...)
	}
	return string(buf)
}

// LettrageIndex is the inverse of LettrageCode; it returns -1 for anything
// that is not an upper-case letter code.
func LettrageIndex(code string) int {
	if code == "" {
		return -1
	}
	n := 0
	for i := 0; i < len(code); i++ {
		c := code[i]
		if c < 'A' || c > 'Z' {
			return -1
		}
		n = n*26 + int(c-'A'+1)
	}
	return n - 1
}

type AgeBucket string

const (
	Bucket0To30  AgeBucket = "0-30"
	Bucket30To60 AgeBucket = "30-60"
	Bucket60To90 AgeBucket = "60-90"
	Bucket90Plus AgeBucket = "90+"
)

var AllBuckets = []AgeBucket{Bucket0To30, Bucket30To60, Bucket60To90, Bucket90Plus}

// BucketForAge places an age in whole days. Upper bounds are inclusive, so a
// 30-day-old item is still in 0-30.
func BucketForAge(days int) AgeBucket {
	switch {
	case days <= 30:
		return Bucket0To30
	case days <= 60:
		return Bucket30To60
	case days <= 90:
		return Bucket60To90
	default:
		return Bucket90Plus
	}
}

type AgedBalanceBucket struct {
	Account      string    `json:"account"`
	Counterparty string    `json:"counterparty"`
	Bucket       AgeBucket `json:"bucket"`
	Amount       int64     `json:"amount"`
	Count        int       `json:"count"`
}

// AgedBalance is one counterparty's outstanding amounts by bucket.
type AgedBalance struct {
	Account      string              `json:"account"`
	Counterparty string              `json:"counterparty"`
	Buckets      map[AgeBucket]int64 `json:"buckets"`
	Total        int64               `json:"total"`
	Provision    int64               `json:"provision"`
}

// OpenItem is an unlettered line on a lettrable account, as seen by
// reconciliation: signed amount (debit positive), counterparty and date.
type OpenItem struct {
	LineID       int64     `json:"line_id"`
	EntryID      string    `json:"entry_id"`
	Sequence     string    `json:"sequence"`
	Account      string    `json:"account"`
	Counterparty string    `json:"counterparty"`
	Date         time.Time `json:"date"`
	Label        string    `json:"label,omitempty"`
	Amount       int64     `json:"amount"`
}
