package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateName(t *testing.T) {
	assert.NoError(t, ValidateName("T1"))
	assert.NoError(t, ValidateName("ticker_trigger"))

	for _, bad := range []string{"", "a b", "a\tb", "x@y", "x#y"} {
		err := ValidateName(bad)
		require.Error(t, err, bad)
		var ne *NameError
		assert.ErrorAs(t, err, &ne)
	}
}

func TestParseAccountID(t *testing.T) {
	id, err := ParseAccountID("alice@wonderland")
	require.NoError(t, err)
	assert.Equal(t, AccountID{Name: "alice", Domain: "wonderland"}, id)
	assert.Equal(t, "alice@wonderland", id.String())

	for _, bad := range []string{"alice", "@wonderland", "alice@", "a@b@c"} {
		_, err := ParseAccountID(bad)
		assert.Error(t, err, bad)
	}
}

func TestTriggerIDTextRoundTrip(t *testing.T) {
	var id TriggerID
	require.NoError(t, id.UnmarshalText([]byte("T1")))
	assert.Equal(t, TriggerID("T1"), id)
	assert.Error(t, id.UnmarshalText([]byte("bad id")))
}
