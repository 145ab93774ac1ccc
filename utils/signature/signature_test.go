package signature

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestSignKnownVector(t *testing.T) {
	// RFC 4231 test case 2
	got := Sign("Jefe", []byte("what do ya want for nothing?"))
	assert.Equal(t, "5bdcc146bf60754e6a042426089575c75a003f089d2739839dec58b964ec3843", got)
}

func TestVerifyRoundTrip(t *testing.T) {
	payload := []byte(`{"event":"transaction.created","amount":1200}`)
	sig := Header("whsec_a", payload)

	assert.True(t, strings.HasPrefix(sig, SchemePrefix))
	assert.True(t, Verify("whsec_a", payload, sig))
	assert.True(t, Verify("whsec_a", payload, Sign("whsec_a", payload)))
	assert.False(t, Verify("whsec_b", payload, sig))
	assert.False(t, Verify("whsec_a", append(payload, ' '), sig))
	assert.False(t, Verify("whsec_a", payload, "sha256=not-hex"))
}

func TestNewSecret(t *testing.T) {
	a, err := NewSecret()
	require.NoError(t, err)
	b, err := NewSecret()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.Len(t, a, len("whsec_")+64)
}

func TestSignatureProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		secret := rapid.StringN(1, 64, -1).Draw(t, "secret")
		other := rapid.StringN(1, 64, -1).Draw(t, "other")
		payload := rapid.SliceOf(rapid.Byte()).Draw(t, "payload")

		sig := Sign(secret, payload)
		if sig != Sign(secret, payload) {
			t.Fatalf("signature not deterministic")
		}
		if !Verify(secret, payload, sig) {
			t.Fatalf("verification with same secret failed")
		}
		if other != secret && Verify(other, payload, sig) {
			t.Fatalf("verification with a different secret succeeded")
		}
	})
}
