package problem

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"shiftopt/internal/model"
)

// Problem is the solver-facing view of an optimization request: the horizon
// expanded into concrete dates, active job sources, an hourly availability
// matrix and the constraint index. Solvers treat it as read-only.
type Problem struct {
	Request     *model.OptimizationRequest
	Dates       []model.Date
	JobSources  []model.JobSource
	Constraints map[model.ConstraintKind]model.Constraint

	// Availability[d][h] reports whether hour h on Dates[d] is open for
	// scheduling. Without availability slots every hour is open.
	Availability [][24]bool

	existingByDate map[string][]model.ExistingShift
}

// Builder expands requests into Problems.
type Builder struct{}

// NewBuilder returns a builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Build expands the request horizon [start, end) into dates, filters job
// sources down to active ones and derives the availability matrix from the
// weekly slots. The request is assumed to have passed validation already;
// Build only errors on inputs no solver could act on.
func (b *Builder) Build(req *model.OptimizationRequest) (*Problem, error) {
	days := req.TimeRange.Days()
	if days < 1 {
		return nil, fmt.Errorf("time range contains no days: %s to %s", req.TimeRange.Start, req.TimeRange.End)
	}

	dates := make([]model.Date, days)
	for i := range dates {
		dates[i] = req.TimeRange.Start.AddDays(i)
	}

	sources := make([]model.JobSource, 0, len(req.JobSources))
	for _, js := range req.JobSources {
		if js.IsActive {
			sources = append(sources, js)
		}
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("no active job sources")
	}

	p := &Problem{
		Request:        req,
		Dates:          dates,
		JobSources:     sources,
		Constraints:    req.ConstraintByKind(),
		Availability:   buildAvailability(dates, req.Availability),
		existingByDate: groupExisting(req.ExistingShifts),
	}

	log.Debug().
		Int("days", len(p.Dates)).
		Int("job_sources", len(p.JobSources)).
		Int("constraints", len(p.Constraints)).
		Msg("Built optimization problem")
	return p, nil
}

// buildAvailability projects the weekly slots onto the concrete horizon.
// With no slots at all, every hour is open. Once any slot is present the
// matrix starts closed and only hours covered by an available slot open up;
// slots with is_available=false then punch holes back out.
func buildAvailability(dates []model.Date, slots []model.AvailabilitySlot) [][24]bool {
	matrix := make([][24]bool, len(dates))

	if len(slots) == 0 {
		for d := range matrix {
			for h := 0; h < 24; h++ {
				matrix[d][h] = true
			}
		}
		return matrix
	}

	for d, date := range dates {
		weekday := date.DayOfWeekSundayZero()
		for _, slot := range slots {
			if slot.DayOfWeek != weekday || !slot.IsAvailable {
				continue
			}
			markSlot(&matrix[d], slot, true)
		}
		for _, slot := range slots {
			if slot.DayOfWeek != weekday || slot.IsAvailable {
				continue
			}
			markSlot(&matrix[d], slot, false)
		}
	}
	return matrix
}

func markSlot(hours *[24]bool, slot model.AvailabilitySlot, open bool) {
	start, errStart := model.MinutesOfDay(slot.StartTime)
	end, errEnd := model.MinutesOfDay(slot.EndTime)
	if errStart != nil || errEnd != nil || start >= end {
		return
	}
	// An hour counts as open only when the slot covers it entirely.
	for h := (start + 59) / 60; h < 24 && h*60+60 <= end; h++ {
		hours[h] = open
	}
}

func groupExisting(shifts []model.ExistingShift) map[string][]model.ExistingShift {
	byDate := make(map[string][]model.ExistingShift, len(shifts))
	for _, s := range shifts {
		key := s.Date.String()
		byDate[key] = append(byDate[key], s)
	}
	return byDate
}

// HourOpen reports whether a single hour is open on the d-th date.
func (p *Problem) HourOpen(d, hour int) bool {
	if d < 0 || d >= len(p.Availability) || hour < 0 || hour > 23 {
		return false
	}
	return p.Availability[d][hour]
}

// WindowOpen reports whether every hour in [startHour, endHour) is open and
// free of existing shifts on the d-th date.
func (p *Problem) WindowOpen(d, startHour, endHour int) bool {
	if startHour >= endHour {
		return false
	}
	for h := startHour; h < endHour; h++ {
		if !p.HourOpen(d, h) {
			return false
		}
	}
	start := model.HourToClock(startHour)
	end := model.HourToClock(endHour)
	for _, existing := range p.ExistingOn(p.Dates[d]) {
		if model.ClockRangesOverlap(start, end, existing.StartTime, existing.EndTime) {
			return false
		}
	}
	return true
}

// ExistingOn returns the committed shifts already scheduled on a date.
func (p *Problem) ExistingOn(date model.Date) []model.ExistingShift {
	return p.existingByDate[date.String()]
}

// ExistingHoursOn sums committed working hours on a date, net of breaks.
func (p *Problem) ExistingHoursOn(date model.Date) float64 {
	var total float64
	for _, s := range p.ExistingOn(date) {
		start, errStart := model.MinutesOfDay(s.StartTime)
		end, errEnd := model.MinutesOfDay(s.EndTime)
		if errStart != nil || errEnd != nil || end <= start {
			continue
		}
		total += float64(end-start-s.BreakMinutes) / 60
	}
	return total
}

// ConstraintValue returns the value of a constraint kind if present.
func (p *Problem) ConstraintValue(kind model.ConstraintKind) (float64, bool) {
	c, ok := p.Constraints[kind]
	if !ok {
		return 0, false
	}
	return c.Value, true
}

// DailyHoursLimit returns the daily cap, or fallback when unconstrained.
func (p *Problem) DailyHoursLimit(fallback float64) float64 {
	if v, ok := p.ConstraintValue(model.ConstraintDailyHours); ok {
		return v
	}
	return fallback
}

// WeeklyHoursLimit returns the weekly cap, or fallback when unconstrained.
func (p *Problem) WeeklyHoursLimit(fallback float64) float64 {
	if v, ok := p.ConstraintValue(model.ConstraintWeeklyHours); ok {
		return v
	}
	return fallback
}

// FuyouLimit returns the annual income cap, or fallback when unconstrained.
func (p *Problem) FuyouLimit(fallback float64) float64 {
	if v, ok := p.ConstraintValue(model.ConstraintFuyouLimit); ok {
		return v
	}
	return fallback
}

// ProratedFuyouLimit scales the annual cap down to the horizon length so a
// short planning window is not allowed to consume the whole year's budget.
func (p *Problem) ProratedFuyouLimit(fallback float64) float64 {
	annual := p.FuyouLimit(fallback)
	span := float64(len(p.Dates))
	if span >= 365 {
		return annual
	}
	return annual * span / 365
}

// HighestRateSource returns the active job source with the best hourly rate.
func (p *Problem) HighestRateSource() model.JobSource {
	best := p.JobSources[0]
	for _, js := range p.JobSources[1:] {
		if js.HourlyRate > best.HourlyRate {
			best = js
		}
	}
	return best
}
