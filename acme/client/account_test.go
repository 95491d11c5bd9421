package client

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"testing"

	jose "github.com/go-jose/go-jose/v4"
	"github.com/stretchr/testify/require"

	"github.com/cpu/acmeshell/acme/keys"
)

// TestKeyRolloverInnerJWSOmitsNonceAndVerifies guards against a regression
// where the inner JWS of a key-rollover request was signed with a nonce
// header and then had "nonce" stripped from the protected header after the
// fact, leaving a protected header whose bytes no longer matched what the
// signature actually covered. RFC 8555 §7.3.5 requires the inner JWS to
// carry no nonce at all, and the signature must verify against whatever
// protected header is actually sent.
func TestKeyRolloverInnerJWSOmitsNonceAndVerifies(t *testing.T) {
	newKey, err := keys.NewSigner(keys.ES256)
	require.NoError(t, err)

	innerResult, err := sign(context.Background(), "https://example.com/key-change", "", []byte(`{"account":"https://example.com/acct/1"}`), SigningOptions{
		EmbedKey: true,
		Signer:   newKey,
	})
	require.NoError(t, err)

	var flat struct {
		Protected string `json:"protected"`
	}
	require.NoError(t, json.Unmarshal(innerResult.SerializedJWS, &flat))

	protectedJSON, err := base64.RawURLEncoding.DecodeString(flat.Protected)
	require.NoError(t, err)
	var header map[string]interface{}
	require.NoError(t, json.Unmarshal(protectedJSON, &header))
	require.NotContains(t, header, "nonce")

	parsed, err := jose.ParseSigned(string(innerResult.SerializedJWS), []jose.SignatureAlgorithm{
		jose.RS256, jose.ES256, jose.ES384, jose.ES512,
	})
	require.NoError(t, err)

	_, err = parsed.Verify(newKey.Public())
	require.NoError(t, err, "inner JWS signature must verify against its own (unmodified) protected header")
}
