package challenge

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cpu/acmeshell/acme/keys"
	"github.com/cpu/acmeshell/acme/resources"
)

func testSigner(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	return key
}

func TestMaterializeHTTP01(t *testing.T) {
	signer := testSigner(t)
	chall := resources.Challenge{Type: "http-01", Token: "tok123"}

	resp, err := Materialize(chall, "example.com", signer)
	require.NoError(t, err)
	require.NotNil(t, resp.HTTP01)
	assert.Equal(t, "/.well-known/acme-challenge/tok123", resp.HTTP01.Path)

	keyAuth, err := keys.KeyAuthorization(signer, "tok123")
	require.NoError(t, err)
	assert.Equal(t, keyAuth, resp.HTTP01.Body)
}

func TestMaterializeDNS01Length(t *testing.T) {
	signer := testSigner(t)
	chall := resources.Challenge{Type: "dns-01", Token: "tok456"}

	resp, err := Materialize(chall, "example.com", signer)
	require.NoError(t, err)
	require.NotNil(t, resp.DNS01)
	assert.Equal(t, "_acme-challenge.example.com", resp.DNS01.Name)
	assert.Len(t, resp.DNS01.Value, 43)
}

func TestMaterializeTLSALPN01Extension(t *testing.T) {
	signer := testSigner(t)
	chall := resources.Challenge{Type: "tls-alpn-01", Token: "tok789"}

	resp, err := Materialize(chall, "example.com", signer)
	require.NoError(t, err)
	require.NotNil(t, resp.TLSALPN01)

	cert, err := x509.ParseCertificate(resp.TLSALPN01.Certificate.Certificate[0])
	require.NoError(t, err)

	found := false
	for _, ext := range cert.Extensions {
		if ext.Id.Equal(idPeACMEIdentifier) {
			found = true
			assert.True(t, ext.Critical)
		}
	}
	assert.True(t, found, "expected acmeIdentifier extension")
}

func TestMaterializeUnsupportedType(t *testing.T) {
	signer := testSigner(t)
	chall := resources.Challenge{Type: "oob-08", Token: "tok"}

	_, err := Materialize(chall, "example.com", signer)
	assert.Error(t, err)
}
