package model

import (
	"slices"
	"time"
)

// EventFilter decides which ledger or time events a trigger reacts to.
// Implemented by TimeEventFilter, ExecuteTriggerEventFilter,
// DataEventFilter and NotificationTriggerFilter.
type EventFilter interface {
	FilterKind() string
	eventFilter()
}

// ExecutionTime is when a time-based trigger fires: every block
// (PreCommit) or according to a Schedule.
type ExecutionTime interface {
	executionTime()
}

// PreCommit fires once per applied block.
type PreCommit struct{}

func (PreCommit) executionTime() {}

// Schedule fires at Start and then every Period. A nil Period means a
// single occurrence at Start.
type Schedule struct {
	Start  time.Time
	Period *time.Duration
}

func (Schedule) executionTime() {}

// NewSchedule returns a one-shot schedule at start.
func NewSchedule(start time.Time) Schedule {
	return Schedule{Start: start}
}

// WithPeriod returns a copy of s recurring every period.
func (s Schedule) WithPeriod(period time.Duration) Schedule {
	s.Period = &period
	return s
}

// TimeInterval is the half-open interval [Since, Since+Length) covered by a
// block's time event.
type TimeInterval struct {
	Since  time.Time
	Length time.Duration
}

// End returns the exclusive end of the interval.
func (iv TimeInterval) End() time.Time {
	return iv.Since.Add(iv.Length)
}

// CountMatches returns how many occurrences of the schedule fall inside iv.
// A one-shot schedule matches at most once. A non-positive period is
// treated as a one-shot schedule.
func (s Schedule) CountMatches(iv TimeInterval) uint64 {
	end := iv.End()
	if !s.Start.Before(end) {
		return 0
	}
	if s.Period == nil || *s.Period <= 0 {
		if s.Start.Before(iv.Since) {
			return 0
		}
		return 1
	}

	p := *s.Period
	first := firstOccurrence(s.Start, p, iv.Since)
	if !first.Before(end) {
		return 0
	}
	// first >= Since, so end-first never exceeds iv.Length.
	return uint64((end.Sub(first)-1)/p) + 1
}

// firstOccurrence returns the earliest start+k*p (k >= 0) not before t.
// time.Time.Sub saturates for gaps over ~292 years, so a distant start is
// advanced in whole periods of at most one saturated gap at a time.
func firstOccurrence(start time.Time, p time.Duration, t time.Time) time.Time {
	for start.Before(t) {
		n := t.Sub(start) / p
		if n == 0 {
			return start.Add(p)
		}
		start = start.Add(n * p)
	}
	return start
}

// TimeEventFilter matches time events.
type TimeEventFilter struct {
	Time ExecutionTime
}

func (TimeEventFilter) FilterKind() string { return "time" }
func (TimeEventFilter) eventFilter()       {}

// ExecuteTriggerEventFilter matches explicit ExecuteTrigger requests for
// TriggerID made by Authority.
type ExecuteTriggerEventFilter struct {
	TriggerID TriggerID
	Authority AccountID
}

func (ExecuteTriggerEventFilter) FilterKind() string { return "execute_trigger" }
func (ExecuteTriggerEventFilter) eventFilter()       {}

// Matches reports whether an ExecuteTrigger request matches the filter.
func (f ExecuteTriggerEventFilter) Matches(req ExecuteTriggerRequest) bool {
	return f.TriggerID == req.TriggerID && f.Authority == req.Authority
}

// DataEventFilter matches trigger lifecycle events. A nil TriggerID matches
// any trigger; empty Kinds matches any kind.
type DataEventFilter struct {
	TriggerID *TriggerID
	Kinds     []TriggerEventKind
}

func (DataEventFilter) FilterKind() string { return "data" }
func (DataEventFilter) eventFilter()       {}

// Matches reports whether a lifecycle event matches the filter.
func (f DataEventFilter) Matches(ev TriggerEvent) bool {
	if f.TriggerID != nil && *f.TriggerID != ev.ID {
		return false
	}
	if len(f.Kinds) > 0 && !slices.Contains(f.Kinds, ev.Kind) {
		return false
	}
	return true
}

// NotificationTriggerFilter lets a trigger react to notification events,
// for example another trigger's completion.
type NotificationTriggerFilter struct {
	Filter NotificationEventFilter
}

func (NotificationTriggerFilter) FilterKind() string { return "notification" }
func (NotificationTriggerFilter) eventFilter()       {}

// ExecuteTriggerRequest is a recorded request to run a trigger's action.
type ExecuteTriggerRequest struct {
	TriggerID TriggerID
	Authority AccountID
}
