package runner

import "fmt"

// State is the lifecycle position of a run.
type State int

const (
	NotStarted State = iota
	Running
	Completed
	Failed
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case Running:
		return "running"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// ParseState is the inverse of State.String.
func ParseState(s string) (State, error) {
	for _, st := range []State{NotStarted, Running, Completed, Failed} {
		if st.String() == s {
			return st, nil
		}
	}
	return NotStarted, fmt.Errorf("unknown run state %q", s)
}

// IsTerminal reports whether no further transition is possible.
func (s State) IsTerminal() bool { return s == Completed || s == Failed }

// machine enforces NotStarted → Running(1) → … → Running(n) → Completed,
// with Running(i) → Failed(i) allowed at any step. No step is skipped or
// revisited.
type machine struct {
	state State
	step  int
	total int
}

func (m *machine) start(total int) error {
	if m.state != NotStarted {
		return fmt.Errorf("invalid transition: %s -> running(1)", m)
	}
	if total < 1 {
		return fmt.Errorf("invalid transition: no steps to run")
	}
	m.state, m.step, m.total = Running, 1, total
	return nil
}

func (m *machine) advance() error {
	if m.state != Running || m.step >= m.total {
		return fmt.Errorf("invalid transition: %s -> running(%d)", m, m.step+1)
	}
	m.step++
	return nil
}

func (m *machine) fail() error {
	if m.state != Running {
		return fmt.Errorf("invalid transition: %s -> failed", m)
	}
	m.state = Failed
	return nil
}

func (m *machine) complete() error {
	if m.state != Running || m.step != m.total {
		return fmt.Errorf("invalid transition: %s -> completed", m)
	}
	m.state = Completed
	return nil
}

func (m *machine) String() string {
	switch m.state {
	case Running, Failed:
		return fmt.Sprintf("%s(%d)", m.state, m.step)
	}
	return m.state.String()
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *State) UnmarshalText(b []byte) error {
	st, err := ParseState(string(b))
	if err != nil {
		return err
	}
	*s = st
	return nil
}
