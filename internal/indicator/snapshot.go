package indicator

import (
	"encoding/json"
	"fmt"

	"tautils/internal/errs"
	"tautils/internal/output"
)

// Snapshottable is implemented by indicators that support state serialization.
type Snapshottable interface {
	Indicator
	Snapshot() State
	RestoreFromSnapshot(s State) error
}

// State holds the serialized state of a single indicator instance.
type State struct {
	Type   string // "LAG"
	Field  string // "close"
	Period int
	Window []float64 // oldest first
}

type stateJSON struct {
	Type   string             `json:"type"`
	Field  string             `json:"field"`
	Period int                `json:"period"`
	Window []output.JSONFloat `json:"window,omitempty"`
}

// MarshalJSON writes NaN window entries (missing volume) as null.
func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(stateJSON{
		Type:   s.Type,
		Field:  s.Field,
		Period: s.Period,
		Window: output.JSONFloats(s.Window),
	})
}

func (s *State) UnmarshalJSON(data []byte) error {
	var j stateJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	*s = State{Type: j.Type, Field: j.Field, Period: j.Period, Window: output.FromJSONFloats(j.Window)}
	return nil
}

// SetSnapshot holds indicator states keyed by indicator name.
type SetSnapshot struct {
	Indicators map[string]State `json:"indicators"`
	Version    int              `json:"version"`
}

// Snapshot serializes the Lag window for checkpoint persistence.
func (l *Lag) Snapshot() State {
	return State{
		Type:   TypeLag,
		Field:  l.field.Kind().String(),
		Period: l.period,
		Window: l.window.Values(),
	}
}

// RestoreFromSnapshot refills the window. The state must describe the same
// field and period.
func (l *Lag) RestoreFromSnapshot(s State) error {
	if s.Type != TypeLag || s.Period != l.period {
		return errs.InvalidParameter("snapshot %s/%d for %s", s.Type, s.Period, l.Name())
	}
	k, err := ParseField(s.Field)
	if err != nil {
		return err
	}
	if k != l.field.Kind() {
		return errs.InvalidParameter("snapshot field %s for %s", s.Field, l.Name())
	}
	if len(s.Window) > l.window.Cap() {
		return errs.Unallowed("snapshot window %d exceeds capacity %d", len(s.Window), l.window.Cap())
	}
	l.window.Reset()
	for _, f := range s.Window {
		l.window.Push(f)
	}
	return nil
}

// SnapshotSet captures every snapshottable indicator in s. Indicators without
// state are skipped.
func SnapshotSet(s *Set) SetSnapshot {
	snap := SetSnapshot{Indicators: make(map[string]State), Version: 1}
	for _, ind := range s.indicators {
		if si, ok := ind.(Snapshottable); ok {
			snap.Indicators[ind.Name()] = si.Snapshot()
		}
	}
	return snap
}

// RestoreSet applies snap to s, matching by indicator name. Indicators
// missing from the snapshot stay cold; entries for removed indicators are
// ignored. It returns how many indicators were restored.
func RestoreSet(s *Set, snap SetSnapshot) (int, error) {
	restored := 0
	for _, ind := range s.indicators {
		si, ok := ind.(Snapshottable)
		if !ok {
			continue
		}
		st, found := snap.Indicators[ind.Name()]
		if !found {
			continue
		}
		if err := si.RestoreFromSnapshot(st); err != nil {
			return restored, fmt.Errorf("restore %s: %w", ind.Name(), err)
		}
		restored++
	}
	return restored, nil
}
