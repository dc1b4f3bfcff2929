package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completed(id string, outcome TriggerCompletedOutcome) TriggerCompletedEvent {
	return TriggerCompletedEvent{TriggerID: TriggerID(id), Outcome: outcome}
}

func TestAcceptAllMatchesEveryOutcome(t *testing.T) {
	f := AcceptAllFilter{}
	assert.True(t, f.Matches(completed("T1", OutcomeSuccess())))
	assert.True(t, f.Matches(completed("T1", OutcomeFailure("x"))))
	assert.True(t, f.Matches(completed("other", OutcomeFailure(""))))
}

func TestTriggerCompletedFilterMatches(t *testing.T) {
	t1 := TriggerID("T1")
	success := OutcomeTypeSuccess
	failure := OutcomeTypeFailure

	tests := []struct {
		name   string
		filter TriggerCompletedEventFilter
		event  TriggerCompletedEvent
		want   bool
	}{
		{"wildcard success", TriggerCompletedEventFilter{}, completed("T1", OutcomeSuccess()), true},
		{"wildcard failure", TriggerCompletedEventFilter{}, completed("T9", OutcomeFailure("boom")), true},
		{"id match any outcome", TriggerCompletedEventFilter{TriggerID: &t1}, completed("T1", OutcomeFailure("x")), true},
		{"id mismatch", TriggerCompletedEventFilter{TriggerID: &t1}, completed("T2", OutcomeSuccess()), false},
		{"failure only rejects success", TriggerCompletedEventFilter{OutcomeType: &failure}, completed("T1", OutcomeSuccess()), false},
		{"failure only any id", TriggerCompletedEventFilter{OutcomeType: &failure}, completed("T7", OutcomeFailure("x")), true},
		{"both set, outcome disagrees", TriggerCompletedEventFilter{TriggerID: &t1, OutcomeType: &success}, completed("T1", OutcomeFailure("x")), false},
		{"both set, both agree", TriggerCompletedEventFilter{TriggerID: &t1, OutcomeType: &success}, completed("T1", OutcomeSuccess()), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Matches(tt.event))
		})
	}
}

func TestTriggerCompletedFilterIgnoresReason(t *testing.T) {
	f := TriggerCompletedEventFilter{}.ForOutcome(OutcomeTypeFailure)
	assert.True(t, f.Matches(completed("T1", OutcomeFailure("a"))))
	assert.True(t, f.Matches(completed("T1", OutcomeFailure("completely different"))))
}

func TestNotificationEventJSONRoundTrip(t *testing.T) {
	for _, ev := range []TriggerCompletedEvent{
		completed("T1", OutcomeSuccess()),
		completed("T1", OutcomeFailure("x")),
	} {
		data, err := json.Marshal(ev)
		require.NoError(t, err)

		decoded, err := UnmarshalNotificationEvent(data)
		require.NoError(t, err)
		assert.Equal(t, ev, decoded)
	}
}

func TestNotificationEventJSONShape(t *testing.T) {
	data, err := json.Marshal(completed("T1", OutcomeFailure("x")))
	require.NoError(t, err)
	assert.JSONEq(t, `{"TriggerCompleted":{"trigger_id":"T1","outcome":{"Failure":"x"}}}`, string(data))
}

func TestNotificationFilterJSONKeepsWildcards(t *testing.T) {
	data, err := json.Marshal(TriggerCompletedEventFilter{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"TriggerCompleted":{"trigger_id":null,"outcome_type":null}}`, string(data))

	decoded, err := UnmarshalNotificationFilter(data)
	require.NoError(t, err)
	assert.Equal(t, TriggerCompletedEventFilter{}, decoded)
}

func TestNotificationFilterJSONRoundTrip(t *testing.T) {
	filters := []NotificationEventFilter{
		AcceptAllFilter{},
		TriggerCompletedEventFilter{}.ForTrigger("T1"),
		TriggerCompletedEventFilter{}.ForOutcome(OutcomeTypeFailure),
		TriggerCompletedEventFilter{}.ForTrigger("T1").ForOutcome(OutcomeTypeSuccess),
	}
	for _, f := range filters {
		data, err := json.Marshal(f)
		require.NoError(t, err)

		decoded, err := UnmarshalNotificationFilter(data)
		require.NoError(t, err, string(data))
		assert.Equal(t, f, decoded)
	}
}

func TestNotificationFilterMissingFieldIsWildcard(t *testing.T) {
	decoded, err := UnmarshalNotificationFilter([]byte(`{"TriggerCompleted":{"trigger_id":"T1"}}`))
	require.NoError(t, err)

	f, ok := decoded.(TriggerCompletedEventFilter)
	require.True(t, ok)
	require.NotNil(t, f.TriggerID)
	assert.Equal(t, TriggerID("T1"), *f.TriggerID)
	assert.Nil(t, f.OutcomeType)
}

func TestNotificationFilterRejectsUnknownVariant(t *testing.T) {
	_, err := UnmarshalNotificationFilter([]byte(`"Nothing"`))
	assert.Error(t, err)

	_, err = UnmarshalNotificationFilter([]byte(`{"BlockCommitted":{}}`))
	assert.Error(t, err)
}

func TestOutcomeTypeText(t *testing.T) {
	got, err := ParseOutcomeType("Failure")
	require.NoError(t, err)
	assert.Equal(t, OutcomeTypeFailure, got)

	_, err = ParseOutcomeType("failure")
	assert.Error(t, err)
	assert.Equal(t, "Success", OutcomeSuccess().Type().String())
}
