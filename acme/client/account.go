package client

import (
	"context"
	"crypto"
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/cpu/acmeshell/acme/keys"
	"github.com/cpu/acmeshell/acme/resources"

	jose "github.com/go-jose/go-jose/v4"
)

// CreateAccountOptions controls CreateAccount beyond the contacts already
// set on the Account passed in.
type CreateAccountOptions struct {
	// TermsOfServiceAgreed is sent as the RFC 8555 "termsOfServiceAgreed"
	// field.
	TermsOfServiceAgreed bool
	// OnlyReturnExisting maps to RFC 8555 "onlyReturnExisting": request
	// that the server return an existing account for this key instead of
	// creating a new one, failing if none exists.
	OnlyReturnExisting bool
}

// CreateAccount creates the given Account resource with the ACME server. On
// success acct.ID, acct.Status and acct.Orders are populated from the
// server's response.
//
// If opts.OnlyReturnExisting is true and the server replies with HTTP 200
// (rather than 201), the existing account's details are populated the same
// way: RFC 8555 doesn't distinguish the two cases in the response body, only
// in the status code.
//
// See https://tools.ietf.org/html/rfc8555#section-7.3
func (c *Client) CreateAccount(ctx context.Context, acct *resources.Account, opts CreateAccountOptions) error {
	if acct.ID != "" {
		return &StateViolation{Resource: "account", Expected: "no ID", Actual: acct.ID}
	}

	newAcctURL, ok := c.directory.NewAccount, c.directory.NewAccount != ""
	if !ok {
		return &StateViolation{Resource: "directory", Expected: "newAccount present", Actual: "missing"}
	}

	reqBody, err := json.Marshal(struct {
		Contact              []string `json:"contact,omitempty"`
		TermsOfServiceAgreed bool     `json:"termsOfServiceAgreed"`
		OnlyReturnExisting   bool     `json:"onlyReturnExisting,omitempty"`
	}{
		Contact:              acct.Contact,
		TermsOfServiceAgreed: opts.TermsOfServiceAgreed,
		OnlyReturnExisting:   opts.OnlyReturnExisting,
	})
	if err != nil {
		return err
	}

	var body resources.Account
	status, headers, err := c.Send(ctx, newAcctURL, reqBody, SendOptions{
		Signing: &SigningOptions{EmbedKey: true, Signer: acct.Signer},
	}, &body)
	if err != nil {
		return err
	}
	if status != http.StatusCreated && status != http.StatusOK {
		return &UnexpectedStatus{URL: newAcctURL, Expected: http.StatusCreated, Actual: status}
	}

	locHeader := headers.Get("Location")
	if locHeader == "" {
		return &ProtocolError{URL: newAcctURL, Problem: &resources.Problem{
			Type:   "urn:ietf:params:acme:error:malformed",
			Detail: "account creation response had no Location header",
		}}
	}

	acct.ID = locHeader
	acct.Status = body.Status
	acct.Orders = body.Orders
	acct.TermsOfServiceAgreed = opts.TermsOfServiceAgreed
	return nil
}

// UpdateAccount sends a POST to the account's own URL (as its kid) with the
// given field updates (e.g. new contacts), per RFC 8555 §7.3.2.
func (c *Client) UpdateAccount(ctx context.Context, acct *resources.Account, fields map[string]interface{}) error {
	if acct.ID == "" {
		return &StateViolation{Resource: "account", Expected: "has ID", Actual: "none"}
	}

	reqBody, err := json.Marshal(fields)
	if err != nil {
		return err
	}

	var body resources.Account
	_, _, err = c.Send(ctx, acct.ID, reqBody, SendOptions{
		Signing:      &SigningOptions{Signer: acct.Signer, KeyID: acct.ID},
		ExpectStatus: http.StatusOK,
	}, &body)
	if err != nil {
		return err
	}

	acct.Status = body.Status
	acct.Contact = body.Contact
	acct.Orders = body.Orders
	return nil
}

// DeactivateAccount requests the server deactivate the account
// (RFC 8555 §7.3.6). Once deactivated the account's key can no longer be
// used to authenticate requests.
func (c *Client) DeactivateAccount(ctx context.Context, acct *resources.Account) error {
	return c.UpdateAccount(ctx, acct, map[string]interface{}{"status": "deactivated"})
}

// KeyRollover replaces acct's keypair with newKey using the nested-JWS
// protocol of RFC 8555 §7.3.5: the outer JWS is signed by the old key with
// a kid header, the inner JWS is signed by the new key with an embedded jwk,
// and the inner payload identifies the account being rolled over and the
// key being replaced.
func (c *Client) KeyRollover(ctx context.Context, acct *resources.Account, newKey crypto.Signer) error {
	if acct.ID == "" {
		return &StateViolation{Resource: "account", Expected: "has ID", Actual: "none"}
	}

	keyChangeURL, ok := c.directory.KeyChange, c.directory.KeyChange != ""
	if !ok {
		return &StateViolation{Resource: "directory", Expected: "keyChange present", Actual: "missing"}
	}

	oldJWK, err := keys.PublicJWK(acct.Signer)
	if err != nil {
		return &CryptoError{Op: "build old key JWK", Err: err}
	}

	innerPayload, err := json.Marshal(struct {
		Account string          `json:"account"`
		OldKey  jose.JSONWebKey `json:"oldKey"`
	}{
		Account: acct.ID,
		OldKey:  oldJWK,
	})
	if err != nil {
		return err
	}

	// The inner JWS is signed but never sent through the NoncePool/Send
	// machinery: RFC 8555 requires its protected header to omit "nonce"
	// entirely, carrying only "alg", "jwk" and "url". Passing nonce == ""
	// to sign means go-jose never attaches a NonceSource, so no "nonce"
	// member is added to the protected header that the signature covers.
	innerResult, err := sign(ctx, keyChangeURL, "", innerPayload, SigningOptions{
		EmbedKey: true,
		Signer:   newKey,
	})
	if err != nil {
		return err
	}

	_, _, err = c.Send(ctx, keyChangeURL, innerResult.SerializedJWS, SendOptions{
		Signing:      &SigningOptions{Signer: acct.Signer, KeyID: acct.ID},
		ExpectStatus: http.StatusOK,
	}, nil)
	if err != nil {
		return err
	}

	acct.Signer = newKey
	return nil
}

func base64URLEncode(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}
