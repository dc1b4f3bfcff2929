package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// NotificationEvent is a sealed interface for externally observable events.
// The only variant today is TriggerCompletedEvent.
type NotificationEvent interface {
	notificationEvent()
}

// TriggerCompletedOutcomeType is the discriminant of a trigger run outcome.
type TriggerCompletedOutcomeType int

const (
	OutcomeTypeSuccess TriggerCompletedOutcomeType = iota
	OutcomeTypeFailure
)

func (t TriggerCompletedOutcomeType) String() string {
	switch t {
	case OutcomeTypeSuccess:
		return "Success"
	case OutcomeTypeFailure:
		return "Failure"
	default:
		return fmt.Sprintf("OutcomeType(%d)", int(t))
	}
}

// ParseOutcomeType parses "Success" or "Failure".
func ParseOutcomeType(s string) (TriggerCompletedOutcomeType, error) {
	switch s {
	case "Success":
		return OutcomeTypeSuccess, nil
	case "Failure":
		return OutcomeTypeFailure, nil
	}
	return 0, fmt.Errorf("unknown outcome type %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (t TriggerCompletedOutcomeType) MarshalText() ([]byte, error) {
	switch t {
	case OutcomeTypeSuccess, OutcomeTypeFailure:
		return []byte(t.String()), nil
	}
	return nil, fmt.Errorf("unknown outcome type %d", int(t))
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *TriggerCompletedOutcomeType) UnmarshalText(text []byte) error {
	parsed, err := ParseOutcomeType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// TriggerCompletedOutcome is the result of one trigger run.
// Reason is only meaningful for failures.
type TriggerCompletedOutcome struct {
	Failed bool
	Reason string
}

// OutcomeSuccess returns a successful outcome.
func OutcomeSuccess() TriggerCompletedOutcome {
	return TriggerCompletedOutcome{}
}

// OutcomeFailure returns a failed outcome carrying reason.
func OutcomeFailure(reason string) TriggerCompletedOutcome {
	return TriggerCompletedOutcome{Failed: true, Reason: reason}
}

// Type returns the outcome's discriminant.
func (o TriggerCompletedOutcome) Type() TriggerCompletedOutcomeType {
	if o.Failed {
		return OutcomeTypeFailure
	}
	return OutcomeTypeSuccess
}

func (o TriggerCompletedOutcome) String() string {
	if o.Failed {
		return fmt.Sprintf("Failure(%s)", o.Reason)
	}
	return "Success"
}

// MarshalJSON encodes Success as "Success" and a failure as
// {"Failure": reason}.
func (o TriggerCompletedOutcome) MarshalJSON() ([]byte, error) {
	if !o.Failed {
		return []byte(`"Success"`), nil
	}
	return json.Marshal(map[string]string{"Failure": o.Reason})
}

// UnmarshalJSON implements json.Unmarshaler.
func (o *TriggerCompletedOutcome) UnmarshalJSON(data []byte) error {
	var tag string
	if err := json.Unmarshal(data, &tag); err == nil {
		if tag != "Success" {
			return fmt.Errorf("outcome: unknown variant %q", tag)
		}
		*o = OutcomeSuccess()
		return nil
	}
	var failure struct {
		Failure *string `json:"Failure"`
	}
	if err := strictUnmarshal(data, &failure); err != nil {
		return fmt.Errorf("outcome: %w", err)
	}
	if failure.Failure == nil {
		return fmt.Errorf("outcome: expected \"Success\" or {\"Failure\": reason}")
	}
	*o = OutcomeFailure(*failure.Failure)
	return nil
}

// TriggerCompletedEvent reports that a trigger's action has run.
type TriggerCompletedEvent struct {
	TriggerID TriggerID
	Outcome   TriggerCompletedOutcome
}

func (TriggerCompletedEvent) notificationEvent() {}

type triggerCompletedJSON struct {
	TriggerID TriggerID               `json:"trigger_id"`
	Outcome   TriggerCompletedOutcome `json:"outcome"`
}

// MarshalJSON encodes the event as {"TriggerCompleted": {...}}.
func (e TriggerCompletedEvent) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]triggerCompletedJSON{
		"TriggerCompleted": {TriggerID: e.TriggerID, Outcome: e.Outcome},
	})
}

// UnmarshalNotificationEvent decodes an event produced by json.Marshal.
func UnmarshalNotificationEvent(data []byte) (NotificationEvent, error) {
	var env struct {
		TriggerCompleted *triggerCompletedJSON `json:"TriggerCompleted"`
	}
	if err := strictUnmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("notification event: %w", err)
	}
	if env.TriggerCompleted == nil {
		return nil, fmt.Errorf("notification event: missing variant")
	}
	return TriggerCompletedEvent{
		TriggerID: env.TriggerCompleted.TriggerID,
		Outcome:   env.TriggerCompleted.Outcome,
	}, nil
}

// NotificationEventFilter decides whether a subscriber observes an event.
// Implemented by AcceptAllFilter and TriggerCompletedEventFilter.
type NotificationEventFilter interface {
	Matches(ev NotificationEvent) bool
	notificationFilter()
}

// AcceptAllFilter matches every event.
type AcceptAllFilter struct{}

func (AcceptAllFilter) notificationFilter() {}

// Matches always returns true.
func (AcceptAllFilter) Matches(NotificationEvent) bool { return true }

// MarshalJSON encodes the filter as "AcceptAll".
func (AcceptAllFilter) MarshalJSON() ([]byte, error) {
	return []byte(`"AcceptAll"`), nil
}

// TriggerCompletedEventFilter matches TriggerCompletedEvent values. A nil
// field is a wildcard; set fields must all hold.
type TriggerCompletedEventFilter struct {
	TriggerID   *TriggerID
	OutcomeType *TriggerCompletedOutcomeType
}

func (TriggerCompletedEventFilter) notificationFilter() {}

// Matches checks the trigger id first, then the outcome discriminant.
// A failure's reason text is never consulted.
func (f TriggerCompletedEventFilter) Matches(ev NotificationEvent) bool {
	tc, ok := ev.(TriggerCompletedEvent)
	if !ok {
		return false
	}
	if f.TriggerID != nil && *f.TriggerID != tc.TriggerID {
		return false
	}
	if f.OutcomeType != nil && *f.OutcomeType != tc.Outcome.Type() {
		return false
	}
	return true
}

// ForTrigger returns a copy of f restricted to id.
func (f TriggerCompletedEventFilter) ForTrigger(id TriggerID) TriggerCompletedEventFilter {
	f.TriggerID = &id
	return f
}

// ForOutcome returns a copy of f restricted to outcome type t.
func (f TriggerCompletedEventFilter) ForOutcome(t TriggerCompletedOutcomeType) TriggerCompletedEventFilter {
	f.OutcomeType = &t
	return f
}

type triggerCompletedFilterJSON struct {
	TriggerID   *TriggerID                   `json:"trigger_id"`
	OutcomeType *TriggerCompletedOutcomeType `json:"outcome_type"`
}

// MarshalJSON encodes the filter as {"TriggerCompleted": {...}}. Both
// fields are always present; null is a wildcard.
func (f TriggerCompletedEventFilter) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]triggerCompletedFilterJSON{
		"TriggerCompleted": {TriggerID: f.TriggerID, OutcomeType: f.OutcomeType},
	})
}

// UnmarshalNotificationFilter decodes a filter produced by json.Marshal.
// A missing sub-filter field decodes as a wildcard, same as null.
func UnmarshalNotificationFilter(data []byte) (NotificationEventFilter, error) {
	var tag string
	if err := json.Unmarshal(data, &tag); err == nil {
		if tag != "AcceptAll" {
			return nil, fmt.Errorf("notification filter: unknown variant %q", tag)
		}
		return AcceptAllFilter{}, nil
	}
	var env struct {
		TriggerCompleted *triggerCompletedFilterJSON `json:"TriggerCompleted"`
	}
	if err := strictUnmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("notification filter: %w", err)
	}
	if env.TriggerCompleted == nil {
		return nil, fmt.Errorf("notification filter: missing variant")
	}
	return TriggerCompletedEventFilter{
		TriggerID:   env.TriggerCompleted.TriggerID,
		OutcomeType: env.TriggerCompleted.OutcomeType,
	}, nil
}

func strictUnmarshal(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
