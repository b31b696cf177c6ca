package editor

import (
	"sync"
	"time"

	"github.com/codebuildervaibhav/transcript-console/internal/types"
)

const DefaultSavedDisplayDelay = 2 * time.Second

// Transition records one change of save state.
type Transition struct {
	From types.SaveState `json:"from"`
	To   types.SaveState `json:"to"`
	At   time.Time       `json:"at"`
	Err  error           `json:"-"`
}

// Machine tracks the save state of one editing session.
//
// Edits move any state to needs saving. A save attempt is claimed with
// BeginSave and finished with CompleteSave; at most one attempt is in flight.
// After a successful save the state returns to no changes made once the
// display delay elapses, unless a new edit arrives first.
type Machine struct {
	mu           sync.Mutex
	state        types.SaveState
	saving       bool
	editedMidway bool
	displayDelay time.Duration
	reset        Delay

	listeners map[int]func(Transition)
	nextID    int
}

func NewMachine(displayDelay time.Duration) *Machine {
	if displayDelay <= 0 {
		displayDelay = DefaultSavedDisplayDelay
	}
	return &Machine{
		state:        types.StateNoChanges,
		displayDelay: displayDelay,
		listeners:    make(map[int]func(Transition)),
	}
}

// State returns the current save state.
func (m *Machine) State() types.SaveState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Saving reports whether a save attempt is in flight.
func (m *Machine) Saving() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saving
}

// Subscribe registers fn for every transition. Listeners run outside the
// machine's lock, possibly on a timer goroutine.
func (m *Machine) Subscribe(fn func(Transition)) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = fn
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}

// MarkEdited records a text or speaker edit.
func (m *Machine) MarkEdited() {
	m.reset.Cancel()
	m.mu.Lock()
	if m.saving {
		m.editedMidway = true
	}
	tr, changed := m.moveLocked(types.StateNeedsSaving, nil)
	listeners := m.snapshotListeners()
	m.mu.Unlock()
	if changed {
		notify(listeners, tr)
	}
}

// BeginSave claims the save slot. Timer-driven saves only proceed from needs
// saving; manual saves may also retry after a failure. It returns false when
// there is nothing to save or another save is in flight.
func (m *Machine) BeginSave(manual bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saving {
		return false
	}
	switch m.state {
	case types.StateNeedsSaving:
	case types.StateSaveFailed:
		if !manual {
			return false
		}
	default:
		return false
	}
	m.saving = true
	m.editedMidway = false
	return true
}

// CompleteSave finishes the attempt claimed by BeginSave. A nil err moves to
// saved (or keeps needs saving when edits arrived during the save); a non-nil
// err moves to save failed.
func (m *Machine) CompleteSave(err error) {
	m.mu.Lock()
	if !m.saving {
		m.mu.Unlock()
		return
	}
	m.saving = false
	var (
		tr      Transition
		changed bool
	)
	switch {
	case err != nil:
		tr, changed = m.moveLocked(types.StateSaveFailed, err)
	case m.editedMidway:
	default:
		tr, changed = m.moveLocked(types.StateSaved, nil)
	}
	m.editedMidway = false
	listeners := m.snapshotListeners()
	m.mu.Unlock()

	if changed {
		notify(listeners, tr)
	}
	if changed && tr.To == types.StateSaved {
		m.reset.Schedule(m.displayDelay, m.settle)
	}
}

// AbortSave releases the save slot without a verdict, leaving the state as is.
func (m *Machine) AbortSave() {
	m.mu.Lock()
	m.saving = false
	m.editedMidway = false
	m.mu.Unlock()
}

// Stop cancels the pending display timer.
func (m *Machine) Stop() {
	m.reset.Cancel()
}

func (m *Machine) settle() {
	m.mu.Lock()
	if m.state != types.StateSaved {
		m.mu.Unlock()
		return
	}
	tr, changed := m.moveLocked(types.StateNoChanges, nil)
	listeners := m.snapshotListeners()
	m.mu.Unlock()
	if changed {
		notify(listeners, tr)
	}
}

func (m *Machine) moveLocked(to types.SaveState, err error) (Transition, bool) {
	if m.state == to && err == nil {
		return Transition{}, false
	}
	tr := Transition{From: m.state, To: to, At: time.Now(), Err: err}
	m.state = to
	return tr, true
}

func (m *Machine) snapshotListeners() []func(Transition) {
	out := make([]func(Transition), 0, len(m.listeners))
	for _, fn := range m.listeners {
		out = append(out, fn)
	}
	return out
}

func notify(listeners []func(Transition), tr Transition) {
	for _, fn := range listeners {
		fn(tr)
	}
}
