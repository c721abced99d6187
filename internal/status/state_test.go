package status

import (
	"testing"

	"github.com/matheus3301/imsgx/internal/bus"
)

var happyPath = []Stage{Opening, Resolving, Reading, Merging, Writing, Done}

func TestInitialStage(t *testing.T) {
	m := NewMachine(nil)
	if m.Current() != Idle {
		t.Errorf("initial stage = %s, want IDLE", m.Current())
	}
}

func TestHappyPath(t *testing.T) {
	m := NewMachine(nil)
	for _, s := range happyPath {
		if err := m.Transition(s); err != nil {
			t.Fatalf("Transition to %s: %v (current: %s)", s, err, m.Current())
		}
	}
	if !m.Current().Terminal() {
		t.Errorf("final stage = %s, want terminal", m.Current())
	}
}

func TestInvalidTransitions(t *testing.T) {
	tests := []struct {
		walk []Stage
		to   Stage
	}{
		{nil, Writing},
		{nil, Failed},
		{[]Stage{Opening}, Merging},
		{[]Stage{Opening, Resolving}, Writing},
		{happyPath, Failed},
		{happyPath, Resolving},
	}
	for _, tt := range tests {
		m := NewMachine(nil)
		walk(t, m, tt.walk)
		from := m.Current()
		if err := m.Transition(tt.to); err == nil {
			t.Errorf("Transition(%s -> %s) should fail", from, tt.to)
		}
		if m.Current() != from {
			t.Errorf("stage changed to %s after rejected transition", m.Current())
		}
	}
}

func TestFailFromEveryActiveStage(t *testing.T) {
	for i := range len(happyPath) - 1 {
		m := NewMachine(nil)
		walk(t, m, happyPath[:i+1])
		if !m.Fail() {
			t.Errorf("Fail() from %s returned false", m.Current())
		}
		if m.Current() != Failed {
			t.Errorf("stage = %s, want FAILED", m.Current())
		}
	}
}

func TestRerunAfterFinish(t *testing.T) {
	m := NewMachine(nil)
	walk(t, m, []Stage{Opening, Failed, Opening})
	walk(t, m, happyPath[1:])
	if err := m.Transition(Opening); err != nil {
		t.Errorf("DONE -> OPENING: %v", err)
	}
}

func TestTransitionEmitsEvent(t *testing.T) {
	b := bus.New()
	ch, unsub := b.Subscribe("run.", 10)
	defer unsub()

	m := NewMachine(b)
	if err := m.Transition(Opening); err != nil {
		t.Fatal(err)
	}

	evt := <-ch
	if evt.Kind != bus.KindStageChanged {
		t.Errorf("event kind = %q, want %s", evt.Kind, bus.KindStageChanged)
	}
	change, ok := evt.Payload.(StageChange)
	if !ok {
		t.Fatalf("payload type = %T, want StageChange", evt.Payload)
	}
	if change.From != Idle || change.To != Opening {
		t.Errorf("change = %v -> %v, want IDLE -> OPENING", change.From, change.To)
	}
}

func walk(t *testing.T, m *Machine, stages []Stage) {
	t.Helper()
	for _, s := range stages {
		if err := m.Transition(s); err != nil {
			t.Fatalf("walk to %s: %v", s, err)
		}
	}
}
