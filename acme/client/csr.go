package client

import (
	"crypto"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"

	"github.com/cpu/acmeshell/acme/keys"
)

// CSROptions controls BuildCSR.
type CSROptions struct {
	// CommonName to use as the CSR subject. If empty the first of Names is
	// used, matching RFC 8555 §11.1's non-binding recommendation that CSR
	// subjects be derived from the requested identifiers.
	CommonName string
	// Signer to use for the CSR. If nil a fresh ES256 key is generated;
	// RFC 8555 §11.1 requires this key be distinct from the account key.
	Signer crypto.Signer
}

// BuildCSR produces a DER encoded PKCS#10 certificate signing request for
// the given DNS names.
func BuildCSR(names []string, opts CSROptions) ([]byte, crypto.Signer, error) {
	if len(names) == 0 {
		return nil, nil, &StateViolation{Resource: "csr", Expected: "at least one name", Actual: "none"}
	}

	commonName := opts.CommonName
	if commonName == "" {
		commonName = names[0]
	}

	signer := opts.Signer
	if signer == nil {
		newSigner, err := keys.NewSigner(keys.ES256)
		if err != nil {
			return nil, nil, &CryptoError{Op: "generate CSR key", Err: err}
		}
		signer = newSigner
	}

	template := x509.CertificateRequest{
		Subject:  pkix.Name{CommonName: commonName},
		DNSNames: names,
	}

	csrDER, err := x509.CreateCertificateRequest(rand.Reader, &template, signer)
	if err != nil {
		return nil, nil, &CryptoError{Op: "create CSR", Err: err}
	}
	return csrDER, signer, nil
}
