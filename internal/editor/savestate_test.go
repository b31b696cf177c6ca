package editor

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/codebuildervaibhav/transcript-console/internal/types"
)

func TestMachine_Transitions(t *testing.T) {
	t.Run("should start with no changes", func(t *testing.T) {
		m := NewMachine(time.Second)

		assert.Equal(t, types.StateNoChanges, m.State())
	})

	t.Run("should need saving after an edit", func(t *testing.T) {
		m := NewMachine(time.Second)

		m.MarkEdited()

		assert.Equal(t, types.StateNeedsSaving, m.State())
	})

	t.Run("should not begin a save without edits", func(t *testing.T) {
		m := NewMachine(time.Second)

		assert.False(t, m.BeginSave(true))
		assert.False(t, m.BeginSave(false))
	})

	t.Run("should settle to no changes after the display delay", func(t *testing.T) {
		// Arrange
		m := NewMachine(20 * time.Millisecond)
		var mu sync.Mutex
		var seen []types.SaveState
		m.Subscribe(func(tr Transition) {
			mu.Lock()
			seen = append(seen, tr.To)
			mu.Unlock()
		})

		// Act
		m.MarkEdited()
		assert.True(t, m.BeginSave(false))
		m.CompleteSave(nil)

		// Assert
		assert.Equal(t, types.StateSaved, m.State())
		assert.Eventually(t, func() bool { return m.State() == types.StateNoChanges }, time.Second, 5*time.Millisecond)
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, []types.SaveState{types.StateNeedsSaving, types.StateSaved, types.StateNoChanges}, seen)
	})

	t.Run("should cancel the settle timer on a new edit", func(t *testing.T) {
		m := NewMachine(20 * time.Millisecond)
		m.MarkEdited()
		m.BeginSave(true)
		m.CompleteSave(nil)

		m.MarkEdited()
		time.Sleep(50 * time.Millisecond)

		assert.Equal(t, types.StateNeedsSaving, m.State())
	})

	t.Run("should flag failures and only retry manually", func(t *testing.T) {
		m := NewMachine(time.Second)
		m.MarkEdited()
		m.BeginSave(false)

		m.CompleteSave(errors.New("boom"))

		assert.Equal(t, types.StateSaveFailed, m.State())
		assert.False(t, m.BeginSave(false), "timer must not retry a failed save")
		assert.True(t, m.BeginSave(true), "manual save may retry")
	})

	t.Run("should stay dirty when edits arrive during a save", func(t *testing.T) {
		m := NewMachine(time.Second)
		m.MarkEdited()
		m.BeginSave(true)

		m.MarkEdited()
		m.CompleteSave(nil)

		assert.Equal(t, types.StateNeedsSaving, m.State())
		assert.True(t, m.BeginSave(false))
	})

	t.Run("should keep state on abort", func(t *testing.T) {
		m := NewMachine(time.Second)
		m.MarkEdited()
		m.BeginSave(true)

		m.AbortSave()

		assert.Equal(t, types.StateNeedsSaving, m.State())
		assert.False(t, m.Saving())
	})
}

func TestMachine_SingleSaveInFlight(t *testing.T) {
	m := NewMachine(time.Second)
	m.MarkEdited()

	var claimed atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(manual bool) {
			defer wg.Done()
			if m.BeginSave(manual) {
				claimed.Add(1)
			}
		}(i%2 == 0)
	}
	wg.Wait()

	assert.Equal(t, int32(1), claimed.Load())
}

func TestMachine_Unsubscribe(t *testing.T) {
	m := NewMachine(time.Second)
	var calls atomic.Int32
	unsubscribe := m.Subscribe(func(Transition) { calls.Add(1) })

	unsubscribe()
	m.MarkEdited()

	assert.Equal(t, int32(0), calls.Load())
}
