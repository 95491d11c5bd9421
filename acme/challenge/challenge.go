// Package challenge materializes the response a client must publish to
// satisfy an ACME challenge, for each of the http-01, dns-01 and
// tls-alpn-01 challenge types.
//
// Materialize is a pure function: it performs no I/O and holds no reference
// to a client. The caller is responsible for publishing the returned
// Response (serving an HTTP response, adding a DNS record, presenting a TLS
// certificate) and for telling the server the challenge is ready via
// client.AnswerChallenge.
package challenge

import (
	"crypto"
	"crypto/rand"
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/base64"
	"fmt"
	"math/big"
	"time"

	"github.com/cpu/acmeshell/acme/keys"
	"github.com/cpu/acmeshell/acme/resources"
)

// idPeACMEIdentifier is the critical X.509 extension OID carrying the
// tls-alpn-01 validation value (RFC 8737 §3).
var idPeACMEIdentifier = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 1, 31}

const acmeTLS1Protocol = "acme-tls/1"

// Type identifies which of the three challenge response shapes a Response
// carries.
type Type string

const (
	HTTP01    Type = "http-01"
	DNS01     Type = "dns-01"
	TLSALPN01 Type = "tls-alpn-01"
)

// HTTP01Response is the response to publish at
// http://{identifier}/.well-known/acme-challenge/{token} (RFC 8555 §8.3).
type HTTP01Response struct {
	Path        string
	Body        string
	ContentType string
}

// DNS01Response is the TXT record to publish at
// _acme-challenge.{identifier} (RFC 8555 §8.4).
type DNS01Response struct {
	Name  string
	Value string
}

// TLSALPN01Response is the self-signed certificate to present when a TLS
// connection negotiates the "acme-tls/1" ALPN protocol (RFC 8737).
type TLSALPN01Response struct {
	Certificate tls.Certificate
}

// Response is a tagged variant: Type names which of the three fields below
// is populated. Modeled this way (rather than three separate exported types
// sharing a base struct) because callers dispatch on challenge type once and
// then only ever need the one matching field.
type Response struct {
	Type      Type
	HTTP01    *HTTP01Response
	DNS01     *DNS01Response
	TLSALPN01 *TLSALPN01Response
}

// Materialize computes the response for chall, using signer's key to derive
// the key authorization (RFC 8555 §8.1). identifier is the DNS name (or IP)
// the challenge's authorization is for.
func Materialize(chall resources.Challenge, identifier string, signer crypto.Signer) (*Response, error) {
	keyAuth, err := keys.KeyAuthorization(signer, chall.Token)
	if err != nil {
		return nil, fmt.Errorf("challenge: computing key authorization: %w", err)
	}

	switch Type(chall.Type) {
	case HTTP01:
		return &Response{
			Type: HTTP01,
			HTTP01: &HTTP01Response{
				Path:        "/.well-known/acme-challenge/" + chall.Token,
				Body:        keyAuth,
				ContentType: "application/octet-stream",
			},
		}, nil
	case DNS01:
		digest := sha256.Sum256([]byte(keyAuth))
		value := base64.RawURLEncoding.EncodeToString(digest[:])
		if len(value) != 43 {
			return nil, fmt.Errorf("challenge: dns-01 value has length %d, expected 43", len(value))
		}
		return &Response{
			Type: DNS01,
			DNS01: &DNS01Response{
				Name:  "_acme-challenge." + identifier,
				Value: value,
			},
		}, nil
	case TLSALPN01:
		cert, err := tlsALPN01Certificate(identifier, keyAuth)
		if err != nil {
			return nil, fmt.Errorf("challenge: building tls-alpn-01 certificate: %w", err)
		}
		return &Response{
			Type:      TLSALPN01,
			TLSALPN01: &TLSALPN01Response{Certificate: *cert},
		}, nil
	default:
		return nil, fmt.Errorf("challenge: unsupported challenge type %q", chall.Type)
	}
}

// tlsALPN01Certificate builds a self-signed certificate for identifier
// carrying the critical acmeIdentifier extension required by RFC 8737 §3:
// its value is the DER encoding of an ASN.1 OCTET STRING wrapping
// SHA-256(keyAuth).
func tlsALPN01Certificate(identifier string, keyAuth string) (*tls.Certificate, error) {
	digest := sha256.Sum256([]byte(keyAuth))
	extValue, err := asn1.Marshal(digest[:])
	if err != nil {
		return nil, err
	}

	signer, err := keys.NewSigner(keys.ES256)
	if err != nil {
		return nil, err
	}

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, err
	}

	template := &x509.Certificate{
		SerialNumber: serial,
		Subject:      pkix.Name{CommonName: identifier},
		DNSNames:     []string{identifier},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
		ExtraExtensions: []pkix.Extension{
			{
				Id:       idPeACMEIdentifier,
				Critical: true,
				Value:    extValue,
			},
		},
	}

	certDER, err := x509.CreateCertificate(rand.Reader, template, template, signer.Public(), signer)
	if err != nil {
		return nil, err
	}

	tlsCert := tls.Certificate{
		Certificate: [][]byte{certDER},
		PrivateKey:  signer,
		Leaf:        template,
	}
	return &tlsCert, nil
}
