package harness

import (
	"bytes"
	"fmt"
	"slices"
	"strings"

	"github.com/chriszhao1988/iroha/internal/isi"
	"github.com/chriszhao1988/iroha/internal/model"
	"github.com/chriszhao1988/iroha/internal/query"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	return fmt.Sprintf("assertion failed: %s\n  expected: %s\n  actual: %s", e.Type, e.Expected, e.Actual)
}

// EvaluateAssertions checks every assertion against result and returns the
// failure messages. Evaluation does not stop at the first failure.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var msgs []string
	for i, a := range assertions {
		if err := evaluateAssertion(result, a); err != nil {
			msgs = append(msgs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return msgs
}

func evaluateAssertion(result *Result, a Assertion) error {
	switch a.Type {
	case AssertTxResult:
		return assertTxResult(result, a)
	case AssertTriggerEvents:
		got := make([]string, 0)
		for _, rec := range result.TriggerEvents() {
			got = append(got, rec.Event.String())
		}
		return assertSequence(a.Type, a.Events, got)
	case AssertRepeats:
		return assertRepeats(result, a)
	case AssertActive:
		got := make([]string, 0)
		if result.Triggers != nil {
			for _, id := range result.Triggers.IDs() {
				got = append(got, string(id))
			}
		}
		want := slices.Clone(a.Triggers)
		slices.Sort(want)
		return assertSequence(a.Type, want, got)
	case AssertPruned:
		got := make([]string, 0)
		for _, id := range result.Pruned() {
			got = append(got, string(id))
		}
		return assertSequence(a.Type, a.Triggers, got)
	case AssertNotifications:
		got := make([]string, 0)
		for _, ev := range result.Notifications[a.Subscription] {
			got = append(got, describeNotification(ev))
		}
		return assertSequence(a.Type+" "+a.Subscription, a.Events, got)
	case AssertQuery:
		return assertQuery(result, a)
	}
	return fmt.Errorf("unknown assertion type %q", a.Type)
}

func assertTxResult(result *Result, a Assertion) error {
	for _, b := range result.Blocks {
		if b.Height != a.Height {
			continue
		}
		if a.Index < 0 || a.Index >= len(b.Transactions) {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("transaction %d at height %d", a.Index, a.Height),
				Actual:   fmt.Sprintf("block has %d transactions", len(b.Transactions)),
			}
		}
		got := CodeOK
		if err := b.Transactions[a.Index].Err; err != nil {
			got = string(isi.Code(err))
		}
		if got != a.Code {
			actual := got
			if err := b.Transactions[a.Index].Err; err != nil {
				actual = err.Error()
			}
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("height %d tx %d: %s", a.Height, a.Index, a.Code),
				Actual:   actual,
			}
		}
		return nil
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: fmt.Sprintf("block at height %d", a.Height),
		Actual:   "not applied",
	}
}

func assertRepeats(result *Result, a Assertion) error {
	if result.Triggers == nil {
		return &AssertionError{Type: a.Type, Expected: a.Repeats, Actual: "no final state"}
	}
	action, err := result.Triggers.Get(model.TriggerID(a.Trigger))
	if err != nil {
		return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("%s %s", a.Trigger, a.Repeats), Actual: err.Error()}
	}
	if got := action.Repeats.String(); got != a.Repeats {
		return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("%s %s", a.Trigger, a.Repeats), Actual: got}
	}
	return nil
}

func assertQuery(result *Result, a Assertion) error {
	qr, ok := result.Queries[a.Query]
	if !ok {
		return &AssertionError{Type: a.Type, Expected: "query " + a.Query, Actual: "no such query in script"}
	}

	if a.Code != "" {
		got := CodeOK
		if qr.Err != nil {
			got = string(query.Code(qr.Err))
		}
		if got != a.Code {
			return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("%s: %s", a.Query, a.Code), Actual: got}
		}
		return nil
	}

	if qr.Err != nil {
		return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("%s succeeds", a.Query), Actual: qr.Err.Error()}
	}
	want, err := model.MarshalCanonical(a.Value)
	if err != nil {
		return fmt.Errorf("expected value of %s: %w", a.Query, err)
	}
	got, err := model.MarshalCanonical(model.ValueToAny(qr.Value))
	if err != nil {
		return fmt.Errorf("result of %s: %w", a.Query, err)
	}
	if !bytes.Equal(want, got) {
		return &AssertionError{Type: a.Type, Expected: string(want), Actual: string(got)}
	}
	return nil
}

func assertSequence(kind string, want, got []string) error {
	if slices.Equal(want, got) {
		return nil
	}
	if len(want) == 0 && len(got) == 0 {
		return nil
	}
	return &AssertionError{
		Type:     kind,
		Expected: "[" + strings.Join(want, ", ") + "]",
		Actual:   "[" + strings.Join(got, ", ") + "]",
	}
}
