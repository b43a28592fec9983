package ledger

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordQueuedAndStatusEvent(t *testing.T) {
	store := NewStore()
	store.RecordQueued("+526142249654", "M1", "HX01", map[string]string{"1": "Jaime"})

	entry, ok := store.Entry("+526142249654")
	require.True(t, ok)
	assert.Equal(t, StatusQueued, entry.Status)
	assert.Equal(t, "M1", entry.SID)
	assert.Equal(t, ChannelWhatsApp, entry.Channel)
	assert.Equal(t, "HX01", entry.Template)
	assert.Equal(t, "Jaime", entry.Vars["1"])

	resolved := store.ApplyStatusEvent("M1", StatusDelivered, "", "")
	assert.True(t, resolved)

	report := store.BuildReport()
	assert.Equal(t, []string{"+526142249654"}, report.Delivered)
	assert.Empty(t, report.FailedOrUndelivered)
	assert.Empty(t, report.Pending)
}

func TestApplyStatusEventIdempotent(t *testing.T) {
	store := NewStore()
	store.RecordQueued("+526142249654", "M1", "HX01", nil)

	require.True(t, store.ApplyStatusEvent("M1", StatusFailed, "63016", "undeliverable"))
	first, _ := store.Entry("+526142249654")

	require.True(t, store.ApplyStatusEvent("M1", StatusFailed, "63016", "undeliverable"))
	second, _ := store.Entry("+526142249654")

	assert.Equal(t, first, second)
	assert.Equal(t, 1, store.Len())
}

func TestApplyStatusEventUnknownSidIsNoOp(t *testing.T) {
	store := NewStore()
	store.RecordQueued("+526142249654", "M1", "HX01", nil)

	resolved := store.ApplyStatusEvent("M999", StatusDelivered, "", "")
	assert.False(t, resolved)
	assert.Equal(t, 1, store.Len())

	entry, _ := store.Entry("+526142249654")
	assert.Equal(t, StatusQueued, entry.Status)
}

func TestApplyStatusEventKeepsPriorError(t *testing.T) {
	store := NewStore()
	store.RecordQueued("+526142249654", "M1", "HX01", nil)

	require.True(t, store.ApplyStatusEvent("M1", StatusUndelivered, "30006", "landline unreachable"))
	require.True(t, store.ApplyStatusEvent("M1", StatusFailed, "", ""))

	entry, _ := store.Entry("+526142249654")
	assert.Equal(t, StatusFailed, entry.Status)
	assert.Equal(t, "30006", entry.ErrorCode)
	assert.Equal(t, "landline unreachable", entry.ErrorMessage)
}

func TestRecordOverwritesOnAddressCollision(t *testing.T) {
	store := NewStore()
	store.RecordQueued("+526142249654", "M1", "HX01", map[string]string{"1": "first"})
	store.RecordQueued("+526142249654", "M2", "HX01", map[string]string{"1": "second"})

	assert.Equal(t, 1, store.Len())
	entry, _ := store.Entry("+526142249654")
	assert.Equal(t, "M2", entry.SID)
	assert.Equal(t, "second", entry.Vars["1"])

	// Both sids still resolve; the superseded one points at the same address.
	assert.True(t, store.ApplyStatusEvent("M1", StatusDelivered, "", ""))
}

func TestBuildReportPartitionTotality(t *testing.T) {
	store := NewStore()
	store.RecordQueued("+521000000001", "M1", "HX01", nil)
	store.RecordQueued("+521000000002", "M2", "HX01", nil)
	store.RecordQueued("+521000000003", "M3", "HX01", nil)
	store.RecordQueued("+521000000004", "M4", "HX01", nil)
	store.RecordSendFailure("+521000000005", "HX01", "invalid template", nil)

	store.ApplyStatusEvent("M1", StatusDelivered, "", "")
	store.ApplyStatusEvent("M2", StatusUndelivered, "", "")
	store.ApplyStatusEvent("M3", "read", "", "") // unrecognized status stays pending

	report := store.BuildReport()
	total := len(report.Delivered) + len(report.FailedOrUndelivered) + len(report.Pending)
	assert.Equal(t, store.Len(), total)
	assert.Equal(t, []string{"+521000000001"}, report.Delivered)
	assert.ElementsMatch(t, []string{"+521000000002", "+521000000005"}, report.FailedOrUndelivered)
	assert.ElementsMatch(t, []string{"+521000000003", "+521000000004"}, report.Pending)

	seen := map[string]int{}
	for _, bucket := range [][]string{report.Delivered, report.FailedOrUndelivered, report.Pending} {
		for _, address := range bucket {
			seen[address]++
		}
	}
	for address, count := range seen {
		assert.Equalf(t, 1, count, "address %s appeared in %d buckets", address, count)
	}
}

func TestLastSummaryOverwritten(t *testing.T) {
	store := NewStore()
	assert.Nil(t, store.BuildReport().LastSummary)

	store.SetLastSummary(&BatchSummary{Queued: []string{"6142249654"}})
	store.SetLastSummary(&BatchSummary{InvalidByNorm: []string{"bad-number (reason)"}})

	summary := store.BuildReport().LastSummary
	require.NotNil(t, summary)
	assert.Empty(t, summary.Queued)
	assert.Equal(t, []string{"bad-number (reason)"}, summary.InvalidByNorm)
}

func TestConcurrentAccess(t *testing.T) {
	store := NewStore()
	store.RecordQueued("+521000000001", "M1", "HX01", nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			store.ApplyStatusEvent("M1", StatusDelivered, "", "")
		}()
		go func() {
			defer wg.Done()
			_ = store.BuildReport()
		}()
	}
	wg.Wait()

	entry, _ := store.Entry("+521000000001")
	assert.Equal(t, StatusDelivered, entry.Status)
}
