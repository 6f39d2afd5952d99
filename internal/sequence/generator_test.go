package sequence

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryCounterStore mimics the atomic upsert semantics of the
// sequence_counters table: one serialized increment per (kind, period).
type memoryCounterStore struct {
	mu       sync.Mutex
	counters map[string]int64
	fail     bool
}

type memoryRow struct {
	n   int64
	err error
}

func (r memoryRow) Scan(dest ...interface{}) error {
	if r.err != nil {
		return r.err
	}
	p, ok := dest[0].(*int64)
	if !ok {
		return fmt.Errorf("unexpected scan target %T", dest[0])
	}
	*p = r.n
	return nil
}

func (s *memoryCounterStore) QueryRow(_ context.Context, _ string, args ...interface{}) pgx.Row {
	if s.fail {
		return memoryRow{err: fmt.Errorf("counter store down")}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := fmt.Sprintf("%s:%s", args[0], args[1])
	s.counters[key]++
	return memoryRow{n: s.counters[key]}
}

func newMemoryCounterStore() *memoryCounterStore {
	return &memoryCounterStore{counters: make(map[string]int64)}
}

func TestNextTxFormats(t *testing.T) {
	store := newMemoryCounterStore()
	at := time.Date(2026, time.August, 29, 10, 0, 0, 0, time.UTC)

	cases := []struct {
		kind Kind
		want string
	}{
		{KindOrder, "ORD-2026-0001"},
		{KindPayment, "PAY-2026-0001"},
		{KindReceipt, "RCP-2026-0001"},
		{KindFinancialTransaction, "FIN-2026-0001"},
		{KindInvoice, "INV2026080001"},
		{KindDelivery, "DLV2026080001"},
	}
	for _, tc := range cases {
		got, err := NextTx(context.Background(), store, tc.kind, at)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got)
	}

	// Second draw on the same series continues the sequence.
	got, err := NextTx(context.Background(), store, KindOrder, at)
	require.NoError(t, err)
	assert.Equal(t, "ORD-2026-0002", got)
}

func TestNextTxSeparatePeriods(t *testing.T) {
	store := newMemoryCounterStore()

	jan := time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2026, time.February, 5, 0, 0, 0, 0, time.UTC)
	nextYear := time.Date(2027, time.January, 5, 0, 0, 0, 0, time.UTC)

	first, err := NextTx(context.Background(), store, KindInvoice, jan)
	require.NoError(t, err)
	second, err := NextTx(context.Background(), store, KindInvoice, feb)
	require.NoError(t, err)
	assert.Equal(t, "INV2026010001", first)
	assert.Equal(t, "INV2026020001", second, "monthly series restarts each month")

	o1, err := NextTx(context.Background(), store, KindOrder, jan)
	require.NoError(t, err)
	o2, err := NextTx(context.Background(), store, KindOrder, nextYear)
	require.NoError(t, err)
	assert.Equal(t, "ORD-2026-0001", o1)
	assert.Equal(t, "ORD-2027-0001", o2, "yearly series restarts each year")
}

func TestNextTxUnknownKind(t *testing.T) {
	store := newMemoryCounterStore()
	_, err := NextTx(context.Background(), store, Kind("bogus"), time.Now())
	require.Error(t, err)
}

func TestNextTxStoreUnavailable(t *testing.T) {
	store := newMemoryCounterStore()
	store.fail = true
	_, err := NextTx(context.Background(), store, KindOrder, time.Now())
	require.Error(t, err)
}

// Concurrent callers on the same (kind, period) must each receive a unique,
// contiguous number.
func TestNextTxConcurrentUnique(t *testing.T) {
	const n = 64

	store := newMemoryCounterStore()
	at := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	results := make(chan string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			num, err := NextTx(context.Background(), store, KindOrder, at)
			assert.NoError(t, err)
			results <- num
		}()
	}
	wg.Wait()
	close(results)

	seen := make(map[string]bool, n)
	var suffixes []int
	for num := range results {
		require.False(t, seen[num], "duplicate number issued: %s", num)
		seen[num] = true
		raw := strings.TrimPrefix(num, "ORD-2026-")
		v, err := strconv.Atoi(raw)
		require.NoError(t, err)
		suffixes = append(suffixes, v)
	}
	require.Len(t, seen, n)

	sort.Ints(suffixes)
	for i, v := range suffixes {
		assert.Equal(t, i+1, v, "series must be contiguous")
	}
}
