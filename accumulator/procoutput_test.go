package accumulator

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/infra/op-launchtest/types"
)

func TestOutputStore_AppendAndQuery(t *testing.T) {
	store := NewOutputStore()
	store.Append(types.OutputLine{Process: "a", Stream: types.StreamStdout, Text: "hello world"})
	store.Append(types.OutputLine{Process: "b", Stream: types.StreamStderr, Text: "warning: low disk"})
	store.Append(types.OutputLine{Process: "a", Stream: types.StreamStdout, Text: "goodbye"})

	aLines := store.Output("a")
	require.Len(t, aLines, 2)
	assert.Equal(t, "hello world", aLines[0].Text)
	assert.Equal(t, "goodbye", aLines[1].Text)

	assert.Len(t, store.All(), 3)
	assert.Equal(t, 3, store.Len())

	assert.True(t, store.Contains("a", "hello"))
	assert.True(t, store.Contains("b", "low disk"))
	assert.False(t, store.Contains("a", "low disk"))
	assert.False(t, store.Contains("missing", "hello"))
}

func TestOutputStore_WaitOutputAnswersImmediately(t *testing.T) {
	store := NewOutputStore()
	store.Append(types.OutputLine{Process: "a", Stream: types.StreamStdout, Text: "ready"})

	start := time.Now()
	assert.False(t, store.WaitOutput("a", "never printed", time.Minute))
	assert.Less(t, time.Since(start), time.Second)

	assert.True(t, store.WaitOutput("a", "ready", time.Minute))
}

func TestLiveOutput_WaitOutputBlocksUntilMatch(t *testing.T) {
	live := NewLiveOutput()

	go func() {
		for i := 0; i < 3; i++ {
			time.Sleep(20 * time.Millisecond)
			live.Append(types.OutputLine{
				Process: "app",
				Stream:  types.StreamStdout,
				Text:    fmt.Sprintf("line %d", i),
			})
		}
	}()

	assert.True(t, live.WaitOutput("app", "line 2", 5*time.Second))
}

func TestLiveOutput_WaitOutputTimesOut(t *testing.T) {
	live := NewLiveOutput()
	live.Append(types.OutputLine{Process: "app", Stream: types.StreamStdout, Text: "something else"})

	start := time.Now()
	assert.False(t, live.WaitOutput("app", "never", 50*time.Millisecond))
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}
