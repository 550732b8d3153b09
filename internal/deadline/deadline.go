// Package deadline classifies demand deadline health and computes the
// on-time predicate. Pure functions of the demand's dates — "now" is
// always an explicit argument so callers stay deterministic.
package deadline

import (
	"math"
	"time"
)

// Health is the ternary deadline signal shown as a card border color.
// The wire values are the Portuguese color names carried over from the
// original dashboard data.
type Health string

const (
	HealthGreen  Health = "verde"
	HealthYellow Health = "amarelo"
	HealthRed    Health = "vermelho"
)

const dayMillis = 86_400_000

// DaysBetween returns the difference from start to end in days,
// computed over milliseconds and rounded up. A partial day counts as a
// whole one; end before start yields a negative count.
func DaysBetween(start, end time.Time) int {
	ms := end.Sub(start).Milliseconds()
	return int(math.Ceil(float64(ms) / float64(dayMillis)))
}

// StartOfDay normalizes t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Classify computes the deadline health of a demand.
//
// Finished demands compare instants: finishing strictly after the
// forecast is red, anything else green. Unfinished demands compare
// midnight-normalized dates: a forecast already passed is red, due
// today or tomorrow is yellow, more than a day of slack is green.
func Classify(now, forecastAt time.Time, finishedAt *time.Time) Health {
	if finishedAt != nil {
		if finishedAt.After(forecastAt) {
			return HealthRed
		}
		return HealthGreen
	}
	remaining := DaysBetween(StartOfDay(now), StartOfDay(forecastAt))
	switch {
	case remaining < 0:
		return HealthRed
	case remaining <= 1:
		return HealthYellow
	default:
		return HealthGreen
	}
}

// OnTime reports whether the demand met, or is still projected to
// meet, its expected duration. Unfinished demands measure elapsed days
// against now; finished demands against the finish instant. The
// result for an unfinished demand is a snapshot — it decays over time
// and must be recomputed, never trusted from storage.
func OnTime(now, createdAt time.Time, finishedAt *time.Time, expectedDurationDays int) bool {
	end := now
	if finishedAt != nil {
		end = *finishedAt
	}
	return DaysBetween(createdAt, end) <= expectedDurationDays
}
