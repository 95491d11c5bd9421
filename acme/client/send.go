package client

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/cpu/acmeshell/acme/resources"
)

// SendOptions configures a Client.Send call.
type SendOptions struct {
	// Signing identifies which key and JWS header style (embedded JWK vs
	// KeyID) to use. If nil, the ActiveAccount's keypair is used with its ID
	// as the KeyID.
	Signing *SigningOptions
	// ExpectStatus, if non-zero, is checked against the response status and
	// surfaced as UnexpectedStatus on mismatch.
	ExpectStatus int
}

// Send implements the request algorithm every ACME write operation in this
// package shares (RFC 8555 §6.2-6.5):
//
//  1. acquire a nonce from the NoncePool
//  2. build a JWS over payload, protecting url and the acquired nonce
//  3. POST the JWS to url
//  4. stash the response's Replay-Nonce header for reuse
//  5. on a "badNonce" problem response, retry exactly once with a freshly
//     acquired nonce
//  6. any other problem response surfaces unchanged as a ProtocolError; a
//     second badNonce surfaces as BadNonceExhausted
//
// On success the response body is unmarshalled into out (which may be nil to
// discard the body) and the raw status/headers are returned so callers can
// inspect Location/Link.
func (c *Client) Send(ctx context.Context, url string, payload []byte, opts SendOptions, out interface{}) (int, http.Header, error) {
	status, headers, body, err := c.sendOnce(ctx, url, payload, opts)
	if err != nil {
		return 0, nil, err
	}

	if status >= 400 {
		problem, perr := parseProblem(body)
		if perr == nil && problem.Type == "urn:ietf:params:acme:error:badNonce" {
			status, headers, body, err = c.sendOnce(ctx, url, payload, opts)
			if err != nil {
				return 0, nil, err
			}
			if status >= 400 {
				retryProblem, rerr := parseProblem(body)
				if rerr == nil && retryProblem.Type == "urn:ietf:params:acme:error:badNonce" {
					return 0, nil, &BadNonceExhausted{URL: url}
				}
				if rerr == nil {
					return 0, nil, &ProtocolError{URL: url, Problem: retryProblem}
				}
				return 0, nil, &UnexpectedStatus{URL: url, Expected: 200, Actual: status}
			}
		} else if perr == nil {
			return 0, nil, &ProtocolError{URL: url, Problem: problem}
		} else {
			return 0, nil, &UnexpectedStatus{URL: url, Expected: 200, Actual: status}
		}
	}

	if opts.ExpectStatus != 0 && status != opts.ExpectStatus {
		return status, headers, &UnexpectedStatus{URL: url, Expected: opts.ExpectStatus, Actual: status}
	}

	if out != nil && len(body) > 0 {
		if err := json.Unmarshal(body, out); err != nil {
			return status, headers, &ProtocolError{URL: url, Problem: &resources.Problem{
				Type:   "urn:ietf:params:acme:error:malformed",
				Detail: "server returned invalid JSON: " + err.Error(),
			}}
		}
	}

	return status, headers, nil
}

func (c *Client) sendOnce(ctx context.Context, url string, payload []byte, opts SendOptions) (int, http.Header, []byte, error) {
	nonce, err := c.nonces.Take(ctx)
	if err != nil {
		return 0, nil, nil, err
	}

	signOpts := opts.Signing
	if signOpts == nil {
		if c.ActiveAccount == nil {
			return 0, nil, nil, &StateViolation{Resource: "client", Expected: "ActiveAccount set", Actual: "nil"}
		}
		signOpts = &SigningOptions{Signer: c.ActiveAccount.Signer, KeyID: c.ActiveAccount.ID}
	}

	signResult, err := sign(ctx, url, nonce, payload, *signOpts)
	if err != nil {
		return 0, nil, nil, err
	}

	if c.Output.PrintSignedData {
		log.Printf("Signing:\n%s\n", payload)
	}
	if c.Output.PrintJWS {
		log.Printf("JWS:\n%s\n", signResult.SerializedJWS)
	}

	headers := http.Header{"Content-Type": []string{"application/jose+json"}}
	status, respHeaders, respBody, err := c.transport.Send(ctx, http.MethodPost, url, headers, signResult.SerializedJWS)
	if err != nil {
		return 0, nil, nil, &TransportError{URL: url, Err: err}
	}
	c.nonces.StashFromHeaders(respHeaders)
	return status, respHeaders, respBody, nil
}

// postAsGet issues a POST-as-GET request (RFC 8555 §6.3): an empty-string
// payload signed and POSTed in place of a GET, used for Order/Authorization/
// Challenge/Certificate retrieval when the server requires authenticated
// reads.
func (c *Client) postAsGet(ctx context.Context, url string, out interface{}) (http.Header, error) {
	_, headers, err := c.Send(ctx, url, []byte(""), SendOptions{}, out)
	return headers, err
}

// get issues a plain unauthenticated GET, used when PostAsGet is false.
func (c *Client) get(ctx context.Context, url string, out interface{}) (http.Header, error) {
	status, headers, body, err := c.transport.Send(ctx, http.MethodGet, url, nil, nil)
	if err != nil {
		return nil, &TransportError{URL: url, Err: err}
	}
	if status >= 400 {
		if problem, perr := parseProblem(body); perr == nil {
			return nil, &ProtocolError{URL: url, Problem: problem}
		}
		return nil, &UnexpectedStatus{URL: url, Expected: 200, Actual: status}
	}
	if out != nil && len(body) > 0 {
		if err := json.Unmarshal(body, out); err != nil {
			return nil, &ProtocolError{URL: url, Problem: &resources.Problem{
				Type:   "urn:ietf:params:acme:error:malformed",
				Detail: "server returned invalid JSON: " + err.Error(),
			}}
		}
	}
	return headers, nil
}

// fetch performs either a GET or POST-as-GET depending on c.PostAsGet.
func (c *Client) fetch(ctx context.Context, url string, out interface{}) (http.Header, error) {
	if c.PostAsGet {
		return c.postAsGet(ctx, url, out)
	}
	return c.get(ctx, url, out)
}

func parseProblem(body []byte) (*resources.Problem, error) {
	if len(body) == 0 {
		return nil, errors.New("empty response body")
	}
	var problem resources.Problem
	if err := json.Unmarshal(body, &problem); err != nil {
		return nil, err
	}
	if problem.Type == "" {
		return nil, errors.New("response body is not a problem document")
	}
	return &problem, nil
}
