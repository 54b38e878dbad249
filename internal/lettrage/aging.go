package lettrage

import (
	"sort"
	"time"

	"github.com/simonvc/grandlivre/internal/ledger"
)

// ProvisionRate is the share of a receivable's 90+ bucket suggested as a
// doubtful-debt provision, in percent.
const ProvisionRate = 50

// AgeDays is the age of an item in whole days at now. Future-dated items are
// 0 days old.
func AgeDays(date, now time.Time) int {
	d := int(ledger.Day(now).Sub(ledger.Day(date)).Hours() / 24)
	if d < 0 {
		return 0
	}
	return d
}

// Buckets sums the open items into age buckets per account and counterparty.
// Only non-empty buckets are returned, ordered by account, counterparty and
// bucket.
func Buckets(items []ledger.OpenItem, now time.Time) []ledger.AgedBalanceBucket {
	type key struct {
		account, counterparty string
		bucket                ledger.AgeBucket
	}
	sums := map[key]*ledger.AgedBalanceBucket{}
	for _, it := range items {
		k := key{it.Account, it.Counterparty, ledger.BucketForAge(AgeDays(it.Date, now))}
		b, ok := sums[k]
		if !ok {
			b = &ledger.AgedBalanceBucket{Account: it.Account, Counterparty: it.Counterparty, Bucket: k.bucket}
			sums[k] = b
		}
		b.Amount += it.Amount
		b.Count++
	}

	order := map[ledger.AgeBucket]int{}
	for i, b := range ledger.AllBuckets {
		order[b] = i
	}
	out := make([]ledger.AgedBalanceBucket, 0, len(sums))
	for _, b := range sums {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Account != out[j].Account {
			return out[i].Account < out[j].Account
		}
		if out[i].Counterparty != out[j].Counterparty {
			return out[i].Counterparty < out[j].Counterparty
		}
		return order[out[i].Bucket] < order[out[j].Bucket]
	})
	return out
}

// Age folds the buckets into one aged balance per account and counterparty.
func Age(items []ledger.OpenItem, now time.Time) []ledger.AgedBalance {
	var out []ledger.AgedBalance
	for _, b := range Buckets(items, now) {
		n := len(out)
		if n == 0 || out[n-1].Account != b.Account || out[n-1].Counterparty != b.Counterparty {
			out = append(out, ledger.AgedBalance{
				Account:      b.Account,
				Counterparty: b.Counterparty,
				Buckets:      map[ledger.AgeBucket]int64{},
			})
			n++
		}
		ab := &out[n-1]
		ab.Buckets[b.Bucket] += b.Amount
		ab.Total += b.Amount
	}
	for i := range out {
		if late := out[i].Buckets[ledger.Bucket90Plus]; late > 0 {
			out[i].Provision = late * ProvisionRate / 100
		}
	}
	return out
}
