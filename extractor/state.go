package extractor

import (
	"fmt"

	"github.com/use-agent/plexport/models"
)

// Status messages emitted during collection.
const (
	msgCollecting = "Collecting films, please scroll down to load more."
	msgReminder   = "No new movies found. Please scroll the page manually to load more content."
	msgComplete   = "No new movies found after multiple attempts. Collection complete."
)

// Direction is the scroll direction of the next pass.
type Direction int

const (
	Down Direction = iota
	Up
)

func (d Direction) String() string {
	if d == Up {
		return "up"
	}
	return "down"
}

// State is the per-run extraction state. It is created when a run starts and
// dropped when it ends.
type State struct {
	Records *RecordSet

	maxNoProgress int
	noProgress    int
	direction     Direction
	reminded      bool
}

// NewState returns the initial state: empty set, scrolling down first.
func NewState(maxNoProgress int) *State {
	if maxNoProgress < 1 {
		maxNoProgress = 1
	}
	return &State{
		Records:       NewRecordSet(),
		maxNoProgress: maxNoProgress,
		direction:     Down,
	}
}

// NextDirection returns the direction for this pass and flips it for the next one.
func (s *State) NextDirection() Direction {
	d := s.direction
	if d == Down {
		s.direction = Up
	} else {
		s.direction = Down
	}
	return d
}

// NoProgress returns the number of consecutive passes without new records.
func (s *State) NoProgress() int { return s.noProgress }

// reminderThreshold is half of the no-progress budget, rounded up: 2 of 3.
func (s *State) reminderThreshold() int {
	return (s.maxNoProgress + 1) / 2
}

// EndPass records the outcome of a scan and returns the status events for the
// pass, in emission order, plus whether collection is complete.
func (s *State) EndPass(foundNew bool) ([]models.StatusEvent, bool) {
	events := []models.StatusEvent{
		models.Info(fmt.Sprintf("Current movie count: %d", s.Records.Len())),
	}

	if foundNew {
		s.noProgress = 0
		s.reminded = false
		return events, false
	}

	s.noProgress++
	if !s.reminded && s.noProgress >= s.reminderThreshold() {
		events = append(events, models.Info(msgReminder))
		s.reminded = true
	}
	events = append(events, models.Warning(
		fmt.Sprintf("No new movies found. Attempt %d/%d", s.noProgress, s.maxNoProgress),
	))

	if s.noProgress >= s.maxNoProgress {
		events = append(events, models.Success(msgComplete))
		return events, true
	}
	return events, false
}
