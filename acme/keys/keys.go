// Package keys offers utility functions for working with crypto.Signers, JWS,
// JWKs and PEM serialization for ACME account and CSR keys.
package keys

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"

	jose "github.com/go-jose/go-jose/v4"
)

// Algorithm identifies one of the four JWS signature algorithms this package
// supports for ACME account keys, per RFC 7518.
type Algorithm string

const (
	RS256 Algorithm = "RS256"
	ES256 Algorithm = "ES256"
	ES384 Algorithm = "ES384"
	ES512 Algorithm = "ES512"
)

var (
	// ErrUnsupportedAlgorithm is returned when a crypto.Signer's key type or
	// curve doesn't map to one of RS256/ES256/ES384/ES512.
	ErrUnsupportedAlgorithm = errors.New("keys: unsupported algorithm")
	// ErrInvalidKey is returned when key material can't be parsed or is
	// otherwise malformed.
	ErrInvalidKey = errors.New("keys: invalid key")
)

// AlgorithmForSigner inspects a crypto.Signer's public key to determine which
// of the four supported JWS algorithms it uses.
func AlgorithmForSigner(signer crypto.Signer) (Algorithm, error) {
	if signer == nil {
		return "", fmt.Errorf("%w: nil signer", ErrInvalidKey)
	}
	switch pub := signer.Public().(type) {
	case *rsa.PublicKey:
		return RS256, nil
	case *ecdsa.PublicKey:
		switch pub.Curve {
		case elliptic.P256():
			return ES256, nil
		case elliptic.P384():
			return ES384, nil
		case elliptic.P521():
			return ES512, nil
		default:
			return "", fmt.Errorf("%w: ECDSA curve %s", ErrUnsupportedAlgorithm, pub.Curve.Params().Name)
		}
	default:
		return "", fmt.Errorf("%w: key type %T", ErrUnsupportedAlgorithm, signer)
	}
}

func joseAlgorithm(alg Algorithm) (jose.SignatureAlgorithm, error) {
	switch alg {
	case RS256:
		return jose.RS256, nil
	case ES256:
		return jose.ES256, nil
	case ES384:
		return jose.ES384, nil
	case ES512:
		return jose.ES512, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, alg)
	}
}

// jwkKty returns the JWK key-family label ("RSA"/"EC") used when embedding
// a JWK in an ACME request (e.g. the keyChange "oldKey" field).
func jwkKty(signer crypto.Signer) string {
	switch signer.(type) {
	case *ecdsa.PrivateKey:
		return "EC"
	case *rsa.PrivateKey:
		return "RSA"
	}
	return "unknown"
}

// PublicJWK returns the canonical public JWK for the given signer. Field
// ordering and omission of private material is handled by go-jose, which
// already produces the RFC 7638 canonical form used for thumbprinting.
func PublicJWK(signer crypto.Signer) (jose.JSONWebKey, error) {
	if _, err := AlgorithmForSigner(signer); err != nil {
		return jose.JSONWebKey{}, err
	}
	return jose.JSONWebKey{
		Key:       signer.Public(),
		Algorithm: jwkKty(signer),
	}, nil
}

// JWKJSON returns the JSON serialization of the signer's public JWK, or an
// empty string if the signer's algorithm is unsupported.
func JWKJSON(signer crypto.Signer) string {
	jwk, err := PublicJWK(signer)
	if err != nil {
		return ""
	}
	jwkJSON, err := json.Marshal(&jwk)
	if err != nil {
		return ""
	}
	return string(jwkJSON)
}

// ThumbprintBytes returns the raw SHA-256 JWK thumbprint bytes (RFC 7638) for
// the signer's public key.
func ThumbprintBytes(signer crypto.Signer) ([]byte, error) {
	jwk, err := PublicJWK(signer)
	if err != nil {
		return nil, err
	}
	return jwk.Thumbprint(crypto.SHA256)
}

// Thumbprint returns the base64url-unpadded SHA-256 JWK thumbprint (RFC 7638)
// for the signer's public key.
func Thumbprint(signer crypto.Signer) (string, error) {
	thumbBytes, err := ThumbprintBytes(signer)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(thumbBytes), nil
}

// KeyAuthorization returns the ACME key authorization for a challenge token:
// token || "." || thumbprint(signer).
func KeyAuthorization(signer crypto.Signer, token string) (string, error) {
	thumbprint, err := Thumbprint(signer)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s.%s", token, thumbprint), nil
}

// SigningKeyForSigner builds a jose.SigningKey for the given signer. If keyID
// is non-empty it is embedded as the JWK "kid" for use with a KeyID (rather
// than embedded-JWK) JWS header.
func SigningKeyForSigner(signer crypto.Signer, keyID string) (jose.SigningKey, error) {
	alg, err := AlgorithmForSigner(signer)
	if err != nil {
		return jose.SigningKey{}, err
	}
	sigAlg, err := joseAlgorithm(alg)
	if err != nil {
		return jose.SigningKey{}, err
	}
	if keyID == "" {
		return jose.SigningKey{Key: signer, Algorithm: sigAlg}, nil
	}
	jwk := jose.JSONWebKey{
		Key:       signer,
		Algorithm: string(sigAlg),
		KeyID:     keyID,
	}
	return jose.SigningKey{Key: jwk, Algorithm: sigAlg}, nil
}

// NewSigner generates a fresh private key appropriate for the given
// algorithm: RSA-2048 for RS256, and the curve-matched ECDSA key for the EC
// variants.
func NewSigner(alg Algorithm) (crypto.Signer, error) {
	switch alg {
	case RS256:
		return rsa.GenerateKey(rand.Reader, 2048)
	case ES256:
		return ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	case ES384:
		return ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
	case ES512:
		return ecdsa.GenerateKey(elliptic.P521(), rand.Reader)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, alg)
	}
}

// MarshalSigner serializes a signer's private key to DER bytes along with
// a key type tag ("rsa" or "ecdsa") that UnmarshalSigner can use to parse it
// back.
func MarshalSigner(signer crypto.Signer) ([]byte, string, error) {
	switch k := signer.(type) {
	case *ecdsa.PrivateKey:
		keyBytes, err := x509.MarshalECPrivateKey(k)
		if err != nil {
			return nil, "", fmt.Errorf("%w: %s", ErrInvalidKey, err)
		}
		return keyBytes, "ecdsa", nil
	case *rsa.PrivateKey:
		return x509.MarshalPKCS1PrivateKey(k), "rsa", nil
	default:
		return nil, "", fmt.Errorf("%w: signer type %T", ErrUnsupportedAlgorithm, k)
	}
}

// UnmarshalSigner parses a private key previously serialized by
// MarshalSigner.
func UnmarshalSigner(keyBytes []byte, keyType string) (crypto.Signer, error) {
	var privKey crypto.Signer
	var err error
	switch keyType {
	case "ecdsa":
		privKey, err = x509.ParseECPrivateKey(keyBytes)
	case "rsa":
		privKey, err = x509.ParsePKCS1PrivateKey(keyBytes)
	default:
		return nil, fmt.Errorf("%w: unknown key type %q", ErrInvalidKey, keyType)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidKey, err)
	}
	return privKey, nil
}

// SignerToPEM returns the PEM encoding of a signer's private key.
func SignerToPEM(signer crypto.Signer) (string, error) {
	keyBytes, keyType, err := MarshalSigner(signer)
	if err != nil {
		return "", err
	}
	var keyHeader string
	switch keyType {
	case "ecdsa":
		keyHeader = "EC PRIVATE KEY"
	case "rsa":
		keyHeader = "RSA PRIVATE KEY"
	}
	pemBytes := pem.EncodeToMemory(&pem.Block{
		Type:  keyHeader,
		Bytes: keyBytes,
	})
	return string(pemBytes), nil
}

// SignerFromPEM parses a private key PEM block produced by SignerToPEM (or
// any EC/RSA "-----BEGIN ... PRIVATE KEY-----" block in that form).
func SignerFromPEM(pemBytes []byte) (crypto.Signer, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, fmt.Errorf("%w: no PEM block found", ErrInvalidKey)
	}
	switch block.Type {
	case "EC PRIVATE KEY":
		return UnmarshalSigner(block.Bytes, "ecdsa")
	case "RSA PRIVATE KEY":
		return UnmarshalSigner(block.Bytes, "rsa")
	default:
		return nil, fmt.Errorf("%w: unsupported PEM block type %q", ErrInvalidKey, block.Type)
	}
}
