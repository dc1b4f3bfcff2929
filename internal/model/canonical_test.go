package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonicalBasic(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected string
	}{
		{"null", Null{}, "null"},
		{"string", String("hello"), `"hello"`},
		{"int", Int(-42), "-42"},
		{"bool", Bool(true), "true"},
		{"trigger id", TriggerID("T1"), `"T1"`},
		{"account id", MustAccountID("alice@wonderland"), `"alice@wonderland"`},
		{"vec", Vec{Int(1), String("a")}, `[1,"a"]`},
		{"empty map", Map{}, "{}"},
		{"no html escaping", String("<a&b>"), `"<a&b>"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := MarshalCanonical(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(result))
		})
	}
}

func TestMarshalCanonicalSortedKeys(t *testing.T) {
	result, err := MarshalCanonical(Map{"zebra": Int(1), "alpha": Int(2), "beta": Map{"b": Int(1), "a": Int(2)}})
	require.NoError(t, err)
	assert.Equal(t, `{"alpha":2,"beta":{"a":2,"b":1},"zebra":1}`, string(result))
}

func TestMarshalCanonicalUTF16Ordering(t *testing.T) {
	// U+10000 encodes as a surrogate pair starting 0xD800, which sorts
	// before 0xE000 in UTF-16 even though UTF-8 orders them the other way.
	obj := Map{
		"\uE000":     Int(1),
		"\U00010000": Int(2),
	}
	result, err := MarshalCanonical(obj)
	require.NoError(t, err)
	assert.Equal(t, "{\"\U00010000\":2,\"\uE000\":1}", string(result))
}

func TestMarshalCanonicalNFC(t *testing.T) {
	decomposed := "e\u0301"
	result, err := MarshalCanonical(String(decomposed))
	require.NoError(t, err)
	assert.Equal(t, "\"\u00e9\"", string(result))
}

func TestMarshalCanonicalLineSeparatorsStayLiteral(t *testing.T) {
	result, err := MarshalCanonical(String("a\u2028b"))
	require.NoError(t, err)
	assert.Equal(t, "\"a\u2028b\"", string(result))

	// An escaped backslash followed by the text u2028 is not an escape.
	result, err = MarshalCanonical(String(`a\u2028`))
	require.NoError(t, err)
	assert.Equal(t, `"a\\u2028"`, string(result))
}

func TestMarshalCanonicalRejectsFloats(t *testing.T) {
	_, err := MarshalCanonical(map[string]any{"x": 1.5})
	assert.Error(t, err)
}

func TestTriggerEventIDDeterminism(t *testing.T) {
	id1 := MustTriggerEventID(Created("T1"), 1, 1)
	id2 := MustTriggerEventID(Created("T1"), 1, 1)
	assert.Equal(t, id1, id2)
	assert.Len(t, id1, 64)

	assert.NotEqual(t, id1, MustTriggerEventID(Created("T1"), 1, 2))
	assert.NotEqual(t, id1, MustTriggerEventID(Created("T1"), 2, 1))
	assert.NotEqual(t, id1, MustTriggerEventID(Deleted("T1"), 1, 1))
}

func TestNotificationIDDistinguishesOutcome(t *testing.T) {
	ok, err := NotificationID(completed("T1", OutcomeSuccess()), 1, 1)
	require.NoError(t, err)
	failed, err := NotificationID(completed("T1", OutcomeFailure("x")), 1, 1)
	require.NoError(t, err)
	otherReason, err := NotificationID(completed("T1", OutcomeFailure("y")), 1, 1)
	require.NoError(t, err)

	assert.NotEqual(t, ok, failed)
	assert.NotEqual(t, failed, otherReason)
}

func TestValueFromAny(t *testing.T) {
	v, err := ValueFromAny(map[string]any{"n": 3, "s": "x", "l": []any{true, nil}})
	require.NoError(t, err)
	assert.Equal(t, Map{"n": Int(3), "s": String("x"), "l": Vec{Bool(true), Null{}}}, v)

	_, err = ValueFromAny(2.5)
	assert.Error(t, err)
}
