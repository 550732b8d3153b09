package board

import (
	"strconv"
	"time"

	"github.com/fbastos/demandboard/internal/deadline"
	"github.com/fbastos/demandboard/internal/types"
)

// Period presets and deadline buckets accepted by Filters. The period
// preset is either one of these constants or a month count in digits
// ("3", "6", "12").
const (
	PeriodAll    = "all"
	PeriodCustom = "custom"

	BucketAll     = "all"
	BucketOnTrack = "dentro"
	BucketLate    = "atrasado"
)

// Filters is the compound dashboard filter. Zero values mean "no
// constraint"; all set predicates combine with AND.
type Filters struct {
	PeriodPreset string
	CustomStart  *time.Time
	CustomEnd    *time.Time
	OwnerID      string
	TemplateID   string
	Statuses     map[types.DemandStatus]bool
	Bucket       string
}

// Apply filters demands against f as of now. The input slice is never
// mutated; the result is a fresh slice in input order.
func Apply(now time.Time, demands []types.Demand, f Filters) []types.Demand {
	out := make([]types.Demand, 0, len(demands))
	for _, d := range demands {
		if matches(now, d, f) {
			out = append(out, d)
		}
	}
	return out
}

func matches(now time.Time, d types.Demand, f Filters) bool {
	if !inPeriod(now, d, f) {
		return false
	}
	if f.OwnerID != "" && d.OwnerID != f.OwnerID {
		return false
	}
	if f.TemplateID != "" && d.TemplateID != f.TemplateID {
		return false
	}
	if len(f.Statuses) > 0 && !f.Statuses[d.Status] {
		return false
	}
	return inBucket(now, d, f.Bucket)
}

func inPeriod(now time.Time, d types.Demand, f Filters) bool {
	switch f.PeriodPreset {
	case "", PeriodAll:
		return true
	case PeriodCustom:
		if f.CustomStart != nil && d.CreatedAt.Before(*f.CustomStart) {
			return false
		}
		if f.CustomEnd != nil && d.CreatedAt.After(*f.CustomEnd) {
			return false
		}
		return true
	default:
		months, err := strconv.Atoi(f.PeriodPreset)
		if err != nil || months <= 0 {
			// Unrecognized preset never excludes anything.
			return true
		}
		// Created exactly at the cutoff still passes.
		cutoff := deadline.StartOfDay(now).AddDate(0, -months, 0)
		return !d.CreatedAt.Before(cutoff)
	}
}

// inBucket applies the deadline bucket. "dentro" keeps demands that
// are on time or already finished; "atrasado" keeps late unfinished
// ones. On-time is recomputed here, never read from the stored flag.
func inBucket(now time.Time, d types.Demand, bucket string) bool {
	switch bucket {
	case BucketOnTrack:
		return d.Status == types.StatusFinished ||
			deadline.OnTime(now, d.CreatedAt, d.FinishedAt, d.ExpectedDurationDays)
	case BucketLate:
		return d.Status != types.StatusFinished &&
			!deadline.OnTime(now, d.CreatedAt, d.FinishedAt, d.ExpectedDurationDays)
	default:
		return true
	}
}
