package runner

import "testing"

func TestMachine_HappyPath(t *testing.T) {
	var m machine
	if err := m.start(3); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		if err := m.advance(); err != nil {
			t.Fatalf("advance %d: %v", i, err)
		}
	}
	if err := m.advance(); err == nil {
		t.Error("advancing past the last step must fail")
	}
	if err := m.complete(); err != nil {
		t.Fatal(err)
	}
	if m.state != Completed {
		t.Errorf("state = %s", m.state)
	}
}

func TestMachine_NoSkipNoRevisit(t *testing.T) {
	var m machine
	if err := m.complete(); err == nil {
		t.Error("complete before start must fail")
	}
	_ = m.start(2)
	if err := m.complete(); err == nil {
		t.Error("complete at step 1 of 2 must fail")
	}
	if err := m.start(2); err == nil {
		t.Error("restart must fail")
	}
	if err := m.fail(); err != nil {
		t.Fatal(err)
	}
	if m.String() != "failed(1)" {
		t.Errorf("String = %q", m.String())
	}
	if err := m.advance(); err == nil {
		t.Error("failed is terminal")
	}
	if err := m.fail(); err == nil {
		t.Error("failed is terminal")
	}
}

func TestState_TextRoundTrip(t *testing.T) {
	for _, s := range []State{NotStarted, Running, Completed, Failed} {
		b, _ := s.MarshalText()
		var got State
		if err := got.UnmarshalText(b); err != nil || got != s {
			t.Errorf("round trip %s: got %s err %v", s, got, err)
		}
	}
	if _, err := ParseState("exploded"); err == nil {
		t.Error("expected error for unknown state")
	}
	if !Completed.IsTerminal() || !Failed.IsTerminal() || Running.IsTerminal() {
		t.Error("IsTerminal mismatch")
	}
}
