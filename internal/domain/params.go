package domain

import (
	"fmt"
	"strings"
	"time"
)

// Inputs of a planning run, supplied by the caller.
type PlanningParameters struct {
	Date                   time.Time
	StartAddress           string
	EndAddress             string
	StartTime              string // "HH:MM" on Date
	InstallDurationMinutes int
}

// Validate checks the presence of the start address and the start time format.
func (p PlanningParameters) Validate() error {
	if strings.TrimSpace(p.StartAddress) == "" {
		return fmt.Errorf("%w: start address is required", ErrInvalidParameters)
	}
	if _, err := p.StartAt(); err != nil {
		return err
	}
	if p.InstallDurationMinutes < 0 {
		return fmt.Errorf("%w: install duration must not be negative", ErrInvalidParameters)
	}
	return nil
}

// HasEnd reports whether an end address was supplied.
func (p PlanningParameters) HasEnd() bool { return strings.TrimSpace(p.EndAddress) != "" }

// StartAt combines Date and StartTime into the departure wall-clock time.
func (p PlanningParameters) StartAt() (time.Time, error) {
	clock, err := time.Parse("15:04", strings.TrimSpace(p.StartTime))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: start time %q must be HH:MM", ErrInvalidParameters, p.StartTime)
	}

	y, m, d := p.Date.Date()
	loc := p.Date.Location()
	return time.Date(y, m, d, clock.Hour(), clock.Minute(), 0, 0, loc), nil
}
