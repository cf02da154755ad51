package accumulator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/infra/op-launchtest/types"
)

func TestInfoStore_AppendAndQuery(t *testing.T) {
	store := NewInfoStore()
	store.Append(types.ExitRecord{Process: "a", ExitCode: 0})
	store.Append(types.ExitRecord{Process: "b", ExitCode: 2})

	assert.Equal(t, []string{"a", "b"}, store.Processes())
	assert.Equal(t, 2, store.Len())

	rec, ok := store.Exit("b")
	require.True(t, ok)
	assert.Equal(t, 2, rec.ExitCode)

	_, ok = store.Exit("missing")
	assert.False(t, ok)

	all := store.All()
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].Process)
}

func TestInfoStore_WaitExitAnswersImmediately(t *testing.T) {
	store := NewInfoStore()
	store.Append(types.ExitRecord{Process: "a", ExitCode: 0})

	// The frozen handle never blocks, even with a generous timeout.
	start := time.Now()
	_, ok := store.WaitExit("missing", time.Minute)
	assert.False(t, ok)
	assert.Less(t, time.Since(start), time.Second)

	rec, ok := store.WaitExit("a", time.Minute)
	require.True(t, ok)
	assert.Equal(t, 0, rec.ExitCode)
}

func TestLiveInfo_WaitExitBlocksUntilAppend(t *testing.T) {
	live := NewLiveInfo()

	go func() {
		time.Sleep(50 * time.Millisecond)
		live.Append(types.ExitRecord{Process: "late", ExitCode: 7})
	}()

	rec, ok := live.WaitExit("late", 5*time.Second)
	require.True(t, ok)
	assert.Equal(t, 7, rec.ExitCode)
}

func TestLiveInfo_WaitExitTimesOut(t *testing.T) {
	live := NewLiveInfo()

	start := time.Now()
	_, ok := live.WaitExit("never", 50*time.Millisecond)
	assert.False(t, ok)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestLiveInfo_StoreSharesRecords(t *testing.T) {
	live := NewLiveInfo()
	live.Append(types.ExitRecord{Process: "a", ExitCode: 0})

	// The frozen handle sees everything appended through the live one.
	rec, ok := live.Store().Exit("a")
	require.True(t, ok)
	assert.Equal(t, 0, rec.ExitCode)
}
