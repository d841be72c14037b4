package interfaces

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZeroVerdictIsNotOK(t *testing.T) {
	var verdict Verdict
	assert.Equal(t, ReasonUnknown, verdict.Reason)
	assert.NotEqual(t, ReasonOK, verdict.Reason)

	data, err := json.Marshal(verdict)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(data, &fields))
	assert.Equal(t, "UNKNOWN", fields["reason"])
	assert.Equal(t, false, fields["valid"])
}

func TestReasonCodeText(t *testing.T) {
	for _, code := range []ReasonCode{ReasonUnknown, ReasonOK, ReasonNotFound, ReasonRevoked, ReasonIssuerNotAuthorized} {
		text, err := code.MarshalText()
		require.NoError(t, err)

		var decoded ReasonCode
		require.NoError(t, decoded.UnmarshalText(text))
		assert.Equal(t, code, decoded)
	}

	_, err := ReasonCode(42).MarshalText()
	assert.Error(t, err)
	assert.Equal(t, "REASON(42)", ReasonCode(42).String())

	var decoded ReasonCode
	assert.Error(t, decoded.UnmarshalText([]byte("MAYBE")))
}
