package keys

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlgorithmForSigner(t *testing.T) {
	rsaKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	p256Key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	p384Key, err := ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
	require.NoError(t, err)
	p521Key, err := ecdsa.GenerateKey(elliptic.P521(), rand.Reader)
	require.NoError(t, err)

	alg, err := AlgorithmForSigner(rsaKey)
	require.NoError(t, err)
	assert.Equal(t, RS256, alg)

	alg, err = AlgorithmForSigner(p256Key)
	require.NoError(t, err)
	assert.Equal(t, ES256, alg)

	alg, err = AlgorithmForSigner(p384Key)
	require.NoError(t, err)
	assert.Equal(t, ES384, alg)

	alg, err = AlgorithmForSigner(p521Key)
	require.NoError(t, err)
	assert.Equal(t, ES512, alg)

	_, err = AlgorithmForSigner(nil)
	assert.ErrorIs(t, err, ErrInvalidKey)
}

// Thumbprint of a JWK is stable under any re-serialization of the same key
// (spec testable property 3).
func TestThumbprintStable(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	first, err := Thumbprint(key)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		again, err := Thumbprint(key)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}

	jwkJSON := JWKJSON(key)
	assert.NotEmpty(t, jwkJSON)
}

func TestKeyAuthorization(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	thumbprint, err := Thumbprint(key)
	require.NoError(t, err)

	keyAuth, err := KeyAuthorization(key, "tok-xyz")
	require.NoError(t, err)
	assert.Equal(t, "tok-xyz."+thumbprint, keyAuth)
}

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	for _, alg := range []Algorithm{RS256, ES256, ES384, ES512} {
		alg := alg
		t.Run(string(alg), func(t *testing.T) {
			key, err := NewSigner(alg)
			require.NoError(t, err)

			keyBytes, keyType, err := MarshalSigner(key)
			require.NoError(t, err)

			restored, err := UnmarshalSigner(keyBytes, keyType)
			require.NoError(t, err)

			originalThumb, err := Thumbprint(key)
			require.NoError(t, err)
			restoredThumb, err := Thumbprint(restored)
			require.NoError(t, err)
			assert.Equal(t, originalThumb, restoredThumb)
		})
	}
}

func TestUnmarshalSignerUnknownType(t *testing.T) {
	_, err := UnmarshalSigner([]byte("garbage"), "dsa")
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestSignerToPEM(t *testing.T) {
	key, err := NewSigner(ES256)
	require.NoError(t, err)

	pemStr, err := SignerToPEM(key)
	require.NoError(t, err)
	assert.Contains(t, pemStr, "EC PRIVATE KEY")
}
