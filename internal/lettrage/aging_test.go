package lettrage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simonvc/grandlivre/internal/ledger"
)

func TestReceivableMovesBucketsAsItAges(t *testing.T) {
	items := []ledger.OpenItem{item(1, "alice", 0, 4999)}

	at30 := Buckets(items, day(30))
	require.Len(t, at30, 1)
	assert.Equal(t, ledger.Bucket0To30, at30[0].Bucket)
	assert.Equal(t, int64(4999), at30[0].Amount)

	at45 := Buckets(items, day(45))
	require.Len(t, at45, 1)
	assert.Equal(t, ledger.Bucket30To60, at45[0].Bucket)
}

func TestAgeDays(t *testing.T) {
	assert.Equal(t, 0, AgeDays(day(3), day(1)))
	assert.Equal(t, 90, AgeDays(day(0), day(90)))
	assert.Equal(t, ledger.Bucket60To90, ledger.BucketForAge(AgeDays(day(0), day(90))))
	assert.Equal(t, ledger.Bucket90Plus, ledger.BucketForAge(AgeDays(day(0), day(91))))
}

func TestAgedBalancePerCounterparty(t *testing.T) {
	items := []ledger.OpenItem{
		item(1, "bob", 0, 1001),
		item(2, "alice", 0, 300),
		item(3, "alice", 80, 200),
		item(4, "alice", 99, -50),
		item(5, "bob", 95, 400),
	}
	aged := Age(items, day(100))
	require.Len(t, aged, 2)

	alice, bob := aged[0], aged[1]
	assert.Equal(t, "alice", alice.Counterparty)
	assert.Equal(t, int64(300), alice.Buckets[ledger.Bucket90Plus])
	assert.Equal(t, int64(150), alice.Buckets[ledger.Bucket0To30])
	assert.Equal(t, int64(450), alice.Total)
	assert.Equal(t, int64(150), alice.Provision)

	assert.Equal(t, "bob", bob.Counterparty)
	assert.Equal(t, int64(1001), bob.Buckets[ledger.Bucket90Plus])
	assert.Equal(t, int64(400), bob.Buckets[ledger.Bucket0To30])
	assert.Equal(t, int64(500), bob.Provision)
}

func TestNoProvisionOnCreditBalance(t *testing.T) {
	it := item(1, "gateway", 0, -8000)
	it.Account = ledger.AccountSuppliers
	aged := Age([]ledger.OpenItem{it}, day(200))
	require.Len(t, aged, 1)
	assert.Equal(t, int64(-8000), aged[0].Buckets[ledger.Bucket90Plus])
	assert.Equal(t, int64(0), aged[0].Provision)
}
