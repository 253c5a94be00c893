package extractor

import (
	"testing"

	"github.com/use-agent/plexport/models"
)

func countMessage(events []models.StatusEvent, msg string) int {
	n := 0
	for _, ev := range events {
		if ev.Message == msg {
			n++
		}
	}
	return n
}

func TestState_DirectionAlternates(t *testing.T) {
	s := NewState(3)
	want := []Direction{Down, Up, Down, Up}
	for i, d := range want {
		if got := s.NextDirection(); got != d {
			t.Errorf("pass %d: direction = %v, want %v", i+1, got, d)
		}
	}
}

func TestState_TerminatesAfterMaxNoProgress(t *testing.T) {
	s := NewState(3)
	for pass := 1; pass <= 2; pass++ {
		if _, done := s.EndPass(false); done {
			t.Fatalf("done after %d no-progress passes", pass)
		}
	}
	events, done := s.EndPass(false)
	if !done {
		t.Fatal("expected completion after 3 no-progress passes")
	}
	last := events[len(events)-1]
	if last.Kind != models.StatusSuccess || last.Message != msgComplete {
		t.Errorf("last event = %+v, want success %q", last, msgComplete)
	}
}

func TestState_ReminderOnceOnSecondNoProgressPass(t *testing.T) {
	s := NewState(3)

	first, _ := s.EndPass(false)
	if countMessage(first, msgReminder) != 0 {
		t.Error("reminder emitted on first no-progress pass")
	}
	second, _ := s.EndPass(false)
	if countMessage(second, msgReminder) != 1 {
		t.Errorf("expected reminder on second no-progress pass, got %+v", second)
	}
	third, _ := s.EndPass(false)
	if countMessage(third, msgReminder) != 0 {
		t.Error("reminder repeated on third no-progress pass")
	}
}

func TestState_ProgressResetsCounterAndReminder(t *testing.T) {
	s := NewState(3)
	s.EndPass(false)
	s.EndPass(false) // reminder sent
	s.Records.Add(models.MovieRecord{Title: "Heat", Year: "1995"})

	events, done := s.EndPass(true)
	if done {
		t.Fatal("done after a productive pass")
	}
	if s.NoProgress() != 0 {
		t.Errorf("NoProgress() = %d after progress, want 0", s.NoProgress())
	}
	if len(events) != 1 || events[0].Message != "Current movie count: 1" {
		t.Errorf("productive pass events = %+v", events)
	}

	s.EndPass(false)
	again, _ := s.EndPass(false)
	if countMessage(again, msgReminder) != 1 {
		t.Error("reminder not re-armed after progress")
	}
}

func TestState_PassEventOrder(t *testing.T) {
	s := NewState(3)
	s.EndPass(false)
	events, _ := s.EndPass(false)

	want := []models.StatusEvent{
		models.Info("Current movie count: 0"),
		models.Info(msgReminder),
		models.Warning("No new movies found. Attempt 2/3"),
	}
	if len(events) != len(want) {
		t.Fatalf("got %d events, want %d: %+v", len(events), len(want), events)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Errorf("event[%d] = %+v, want %+v", i, events[i], want[i])
		}
	}
}
