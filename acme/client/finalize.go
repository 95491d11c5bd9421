package client

import (
	"context"
	"crypto"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"

	"github.com/cpu/acmeshell/acme/resources"
	acmenet "github.com/cpu/acmeshell/net"
)

// NewPollBackoff returns the default backoff policy used by
// WaitForAuthorizations and WaitForCertificate: exponential backoff starting
// at 500ms, capped at 10s between attempts, with no overall elapsed-time
// limit (the caller's context governs how long polling may run).
func NewPollBackoff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 0
	return b
}

// pollUntil polls refresh (which mutates the target resource in place and
// returns any server "Retry-After" delay) until terminal() reports true, or
// ctx is done.
func pollUntil(ctx context.Context, resourceName string, policy backoff.BackOff, refresh func(ctx context.Context) (retryAfter time.Duration, err error), terminal func() bool) error {
	for {
		if terminal() {
			return nil
		}

		retryAfter, err := refresh(ctx)
		if err != nil {
			return err
		}
		if terminal() {
			return nil
		}

		delay := policy.NextBackOff()
		if delay == backoff.Stop {
			return &Timeout{Resource: resourceName}
		}
		if retryAfter > 0 {
			delay = retryAfter
		}

		select {
		case <-ctx.Done():
			if ctx.Err() == context.DeadlineExceeded {
				return &Timeout{Resource: resourceName}
			}
			return &Cancelled{Resource: resourceName}
		case <-time.After(delay):
		}
	}
}

// WaitForAuthorizations polls all of order's authorizations concurrently
// until every one reaches a terminal status (valid, invalid, deactivated,
// expired or revoked), honoring any server "Retry-After" header as
// authoritative over newPolicy's delay. A non-valid terminal status is not
// itself treated as an error, since callers may want to inspect which
// authorizations failed. newPolicy is called once per authorization so each
// poll loop gets its own backoff.BackOff state; pass a closure over
// NewPollBackoff if nil isn't suitable. If ctx is cancelled, the remaining
// in-flight polls are stopped and the first error is returned.
func (c *Client) WaitForAuthorizations(ctx context.Context, order *resources.Order, newPolicy func() backoff.BackOff) error {
	if newPolicy == nil {
		newPolicy = NewPollBackoff
	}

	group, groupCtx := errgroup.WithContext(ctx)
	for _, authzURL := range order.Authorizations {
		authzURL := authzURL
		group.Go(func() error {
			authz := &resources.Authorization{ID: authzURL}
			return pollUntil(groupCtx, authzURL, newPolicy(),
				func(ctx context.Context) (time.Duration, error) {
					headers, err := c.fetchWithHeaders(ctx, authzURL, authz)
					if err != nil {
						return 0, err
					}
					return retryAfterDelay(headers), nil
				},
				func() bool { return authorizationTerminal(authz.Status) },
			)
		})
	}
	return group.Wait()
}

// WaitForCertificate polls order until it reaches a terminal status (valid
// with a certificate URL, or invalid).
func (c *Client) WaitForCertificate(ctx context.Context, order *resources.Order, policy backoff.BackOff) error {
	if policy == nil {
		policy = NewPollBackoff()
	}
	return pollUntil(ctx, order.ID, policy,
		func(ctx context.Context) (time.Duration, error) {
			headers, err := c.fetchWithHeaders(ctx, order.ID, order)
			if err != nil {
				return 0, err
			}
			return retryAfterDelay(headers), nil
		},
		func() bool { return order.Terminal() },
	)
}

func (c *Client) fetchWithHeaders(ctx context.Context, url string, out interface{}) (http.Header, error) {
	if c.PostAsGet {
		return c.postAsGet(ctx, url, out)
	}
	return c.get(ctx, url, out)
}

func retryAfterDelay(headers http.Header) time.Duration {
	if headers == nil {
		return 0
	}
	v := headers.Get("Retry-After")
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	if when, err := http.ParseTime(v); err == nil {
		if d := time.Until(when); d > 0 {
			return d
		}
	}
	return 0
}

func authorizationTerminal(status resources.AuthorizationStatus) bool {
	switch status {
	case resources.AuthorizationValid, resources.AuthorizationInvalid,
		resources.AuthorizationDeactivated, resources.AuthorizationExpired,
		resources.AuthorizationRevoked:
		return true
	default:
		return false
	}
}

// FinalizeOrder submits csrDER to order's finalize URL and polls to
// a terminal state. It is only permitted when order.Status is "ready";
// otherwise it returns a StateViolation without making a request.
func (c *Client) FinalizeOrder(ctx context.Context, order *resources.Order, csrDER []byte, policy backoff.BackOff) error {
	if order.Status != resources.OrderReady {
		return &StateViolation{Resource: "order", Expected: string(resources.OrderReady), Actual: string(order.Status)}
	}

	reqBody, err := json.Marshal(struct {
		CSR string `json:"csr"`
	}{CSR: base64URLEncode(csrDER)})
	if err != nil {
		return err
	}

	account := order.Account
	if _, _, err := c.Send(ctx, order.Finalize, reqBody, SendOptions{}, order); err != nil {
		return err
	}
	order.Account = account

	return c.WaitForCertificate(ctx, order, policy)
}

// DownloadedCertificate holds the result of DownloadCertificate: the leaf
// chain's certificates in the order the server returned them, plus any
// "alternate" chain URLs advertised via RFC 8555 §7.4.2 Link headers.
type DownloadedCertificate struct {
	Chain      []*x509.Certificate
	Alternates []string
}

// DownloadCertificate fetches order's issued certificate chain and splits
// the PEM response into its constituent certificates, and enumerates any
// Link: rel="alternate" header values naming alternate chains the server
// also offers.
func (c *Client) DownloadCertificate(ctx context.Context, order *resources.Order) (*DownloadedCertificate, error) {
	if order.Certificate == "" {
		return nil, &StateViolation{Resource: "order", Expected: "has certificate URL", Actual: "none"}
	}

	var status int
	var headers http.Header
	var body []byte
	var err error
	if c.PostAsGet {
		nonce, nerr := c.nonces.Take(ctx)
		if nerr != nil {
			return nil, nerr
		}
		signResult, serr := sign(ctx, order.Certificate, nonce, []byte(""), SigningOptions{
			Signer: c.ActiveAccount.Signer, KeyID: c.ActiveAccount.ID,
		})
		if serr != nil {
			return nil, serr
		}
		status, headers, body, err = c.transport.Send(ctx, http.MethodPost, order.Certificate,
			http.Header{"Content-Type": []string{"application/jose+json"}}, signResult.SerializedJWS)
	} else {
		status, headers, body, err = c.transport.Send(ctx, http.MethodGet, order.Certificate, nil, nil)
	}
	if err != nil {
		return nil, &TransportError{URL: order.Certificate, Err: err}
	}
	c.nonces.StashFromHeaders(headers)
	if status != http.StatusOK {
		return nil, &UnexpectedStatus{URL: order.Certificate, Expected: http.StatusOK, Actual: status}
	}

	chain, err := splitPEMChain(body)
	if err != nil {
		return nil, &CryptoError{Op: "parse certificate chain", Err: err}
	}

	links := acmenet.ParseLinkHeader(headers)
	return &DownloadedCertificate{Chain: chain, Alternates: links["alternate"]}, nil
}

func splitPEMChain(body []byte) ([]*x509.Certificate, error) {
	var certs []*x509.Certificate
	rest := body
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, err
		}
		certs = append(certs, cert)
	}
	return certs, nil
}

// RevokeOptions selects the signing mode for RevokeCertificate
// (RFC 8555 §7.6): either by an already-registered Account (kid), or by an
// embedded JWK of the certificate's own key (for revoking a certificate
// whose account is unknown or unavailable, as long as the caller holds its
// private key).
type RevokeOptions struct {
	Account *resources.Account
	CertKey crypto.Signer
}

// RevokeCertificate requests the server revoke certDER, optionally
// specifying a CRLReason code.
func (c *Client) RevokeCertificate(ctx context.Context, certDER []byte, reason *int, opts RevokeOptions) error {
	revokeURL, ok := c.directory.RevokeCert, c.directory.RevokeCert != ""
	if !ok {
		return &StateViolation{Resource: "directory", Expected: "revokeCert present", Actual: "missing"}
	}

	reqBody, err := json.Marshal(struct {
		Certificate string `json:"certificate"`
		Reason      *int   `json:"reason,omitempty"`
	}{
		Certificate: base64URLEncode(certDER),
		Reason:      reason,
	})
	if err != nil {
		return err
	}

	var signOpts *SigningOptions
	switch {
	case opts.Account != nil:
		signOpts = &SigningOptions{Signer: opts.Account.Signer, KeyID: opts.Account.ID}
	case opts.CertKey != nil:
		signOpts = &SigningOptions{Signer: opts.CertKey, EmbedKey: true}
	default:
		return &StateViolation{Resource: "revoke", Expected: "Account or CertKey set", Actual: "neither"}
	}

	_, _, err = c.Send(ctx, revokeURL, reqBody, SendOptions{
		Signing:      signOpts,
		ExpectStatus: http.StatusOK,
	}, nil)
	return err
}
