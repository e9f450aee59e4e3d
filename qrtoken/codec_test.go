package qrtoken

import (
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignVerifyRoundTrip(t *testing.T) {
	codec := NewCodec("test-secret")

	p := Payload{TicketID: "42", EventID: "7", IssuedAt: time.Now().UnixMilli()}
	token, err := codec.Sign(p)
	require.NoError(t, err)

	got, err := codec.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestVerifyRejectsTamperedPayload(t *testing.T) {
	codec := NewCodec("test-secret")

	token, err := codec.Sign(Payload{TicketID: "42", EventID: "7", IssuedAt: 1700000000000})
	require.NoError(t, err)

	raw, err := base64.RawURLEncoding.DecodeString(token)
	require.NoError(t, err)

	var claims map[string]any
	require.NoError(t, json.Unmarshal(raw, &claims))
	claims["tid"] = "43" // point it at someone else's ticket
	forged, err := json.Marshal(claims)
	require.NoError(t, err)

	_, err = codec.Verify(base64.RawURLEncoding.EncodeToString(forged))
	assert.ErrorIs(t, err, ErrBadSignature)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	token, err := NewCodec("secret-a").Sign(Payload{TicketID: "1", EventID: "1", IssuedAt: 1})
	require.NoError(t, err)

	_, err = NewCodec("secret-b").Verify(token)
	assert.ErrorIs(t, err, ErrBadSignature)
}

func TestVerifyMalformedInput(t *testing.T) {
	codec := NewCodec("test-secret")

	for _, token := range []string{
		"",
		"!!!!not-base64!!!!",
		base64.RawURLEncoding.EncodeToString([]byte("not json")),
		base64.RawURLEncoding.EncodeToString([]byte(`{"tid":"1"}`)), // missing sig
	} {
		_, err := codec.Verify(token)
		assert.Error(t, err, "token %q", token)
	}
}

func TestTokensDifferByIssuedAt(t *testing.T) {
	codec := NewCodec("test-secret")

	a, err := codec.Sign(Payload{TicketID: "1", EventID: "1", IssuedAt: 1})
	require.NoError(t, err)
	b, err := codec.Sign(Payload{TicketID: "1", EventID: "1", IssuedAt: 2})
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}
