package client

import (
	"context"
	"crypto"
	"fmt"

	"github.com/cpu/acmeshell/acme/keys"

	jose "github.com/go-jose/go-jose/v4"
)

// SigningOptions allows specifying signature related options when producing
// a JWS for an ACME request.
type SigningOptions struct {
	// If true, embed the public key as a JWK in the signed JWS instead of
	// using a KeyID header. This is required for endpoints like NewAccount
	// where the server has no KeyID to look up yet. Mutually exclusive with
	// a non-empty KeyID.
	EmbedKey bool
	// If not-empty, the JWS Key ID header value (the ACME account URL).
	// Mutually exclusive with EmbedKey.
	KeyID string
	// The Signer to use. May be any of the four algorithms acme/keys
	// supports; the algorithm is inferred from the key type.
	Signer crypto.Signer
}

func (opts *SigningOptions) validate() error {
	if opts.KeyID != "" && opts.EmbedKey {
		return fmt.Errorf("SigningOptions: cannot specify both KeyID and EmbedKey")
	}
	if opts.KeyID == "" && !opts.EmbedKey {
		return fmt.Errorf("SigningOptions: must specify a KeyID or EmbedKey")
	}
	if opts.Signer == nil {
		return fmt.Errorf("SigningOptions: must specify a Signer")
	}
	return nil
}

// SignResult holds the input and output of a signing operation.
type SignResult struct {
	InputURL      string
	InputData     []byte
	JWS           *jose.JSONWebSignature
	SerializedJWS []byte
}

// sign produces a flattened-serialization JWS for data, protecting it with
// the given URL and nonce headers per RFC 8555 §6.2.
func sign(ctx context.Context, url string, nonce string, data []byte, opts SigningOptions) (*SignResult, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	signingKey, err := keys.SigningKeyForSigner(opts.Signer, signingKeyID(opts))
	if err != nil {
		return nil, &CryptoError{Op: "build signing key", Err: err}
	}

	signerOpts := &jose.SignerOptions{
		EmbedJWK: opts.EmbedKey,
		ExtraHeaders: map[jose.HeaderKey]interface{}{
			"url": url,
		},
	}
	// A KeyRollover inner JWS (RFC 8555 §7.3.5) is signed with nonce == "" and
	// must omit the "nonce" protected header entirely; only attach a
	// NonceSource when the caller actually has one, so go-jose never writes a
	// nonce header that the signature itself wouldn't cover after the fact.
	if nonce != "" {
		signerOpts.NonceSource = staticNonceSource(nonce)
	}

	joseSigner, err := jose.NewSigner(signingKey, signerOpts)
	if err != nil {
		return nil, &CryptoError{Op: "build signer", Err: err}
	}

	signed, err := joseSigner.Sign(data)
	if err != nil {
		return nil, &CryptoError{Op: "sign", Err: err}
	}

	serialized := []byte(signed.FullSerialize())
	parsedJWS, err := jose.ParseSigned(string(serialized), []jose.SignatureAlgorithm{
		jose.RS256, jose.ES256, jose.ES384, jose.ES512,
	})
	if err != nil {
		return nil, &CryptoError{Op: "reparse signed JWS", Err: err}
	}

	return &SignResult{
		InputURL:      url,
		InputData:     data,
		JWS:           parsedJWS,
		SerializedJWS: serialized,
	}, nil
}

// signingKeyID returns the KeyID to embed in the JWK (when EmbedKey is set,
// go-jose ignores it; when signing by KeyID, keys.SigningKeyForSigner needs
// it to build the "kid" protected header).
func signingKeyID(opts SigningOptions) string {
	if opts.EmbedKey {
		return ""
	}
	return opts.KeyID
}

// staticNonceSource adapts a single, already-acquired nonce to go-jose's
// jose.NonceSource interface. Client.Send acquires the nonce from the
// NoncePool before calling sign, so this never performs I/O itself.
type staticNonceSource string

func (s staticNonceSource) Nonce() (string, error) {
	return string(s), nil
}
