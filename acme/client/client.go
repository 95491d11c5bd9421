// Package client implements a low-level ACME v2 (RFC 8555) client: directory
// discovery, nonce management, JWS signing and the account/order/
// authorization/challenge/finalize operations built on top of them.
package client

import (
	"context"
	"crypto"
	"encoding/json"
	"fmt"
	"net/mail"
	"strings"

	"github.com/cpu/acmeshell/acme/resources"
	acmenet "github.com/cpu/acmeshell/net"
)

// Client allows interaction with an ACME server. A Client may track many
// Accounts, each corresponding to a keypair and a server-side Account
// resource; the ActiveAccount is used to authenticate requests unless an
// operation is given an explicit signer. Client owns its own NoncePool: there
// is no process-wide nonce state, so multiple Clients in the same process
// (e.g. for different accounts under test) never race on nonce reuse.
type Client struct {
	// ActiveAccount is used to authenticate requests that don't specify
	// their own signer.
	ActiveAccount *resources.Account
	// Accounts is the set of Accounts this Client knows about.
	Accounts []*resources.Account
	// Keys holds private keys known to this Client by ID: account keys
	// (keyed by account ID) and standalone keys, e.g. a key to roll an
	// account over to or a certificate key for revocation. The Client's own
	// operations do not read it.
	Keys map[string]crypto.Signer
	// PostAsGet switches GET requests to Order/Authorization/Challenge/
	// Certificate resources to POST-as-GET requests (RFC 8555 §6.3).
	PostAsGet bool
	// Output controls request/response/JWS printing for debugging.
	Output OutputOptions

	transport acmenet.Transport
	nonces    *NoncePool
	directory resources.Directory
}

// OutputOptions holds runtime output settings for a Client.
type OutputOptions struct {
	PrintSignedData bool
	PrintJWS        bool
}

// Config configures a new Client.
type Config struct {
	// DirectoryURL is the ACME server's directory endpoint. Required.
	DirectoryURL string
	// CACert is an optional path to PEM encoded CA certificates to trust
	// for HTTPS requests to the ACME server. If empty the system roots
	// are used.
	CACert string
	// Transport overrides the default HTTPTransport, primarily for tests.
	Transport acmenet.Transport
	// InitialOutput sets the Client's initial OutputOptions.
	InitialOutput OutputOptions
}

func (c *Config) normalize() error {
	c.DirectoryURL = strings.TrimSpace(c.DirectoryURL)
	if c.DirectoryURL == "" {
		return fmt.Errorf("client: Config.DirectoryURL must not be empty")
	}
	return nil
}

// New creates a Client from the given Config, fetching and caching the ACME
// server's directory. The Client has no ActiveAccount until one is created
// or restored by the caller.
func New(ctx context.Context, config Config) (*Client, error) {
	if err := config.normalize(); err != nil {
		return nil, err
	}

	transport := config.Transport
	if transport == nil {
		t, err := acmenet.NewHTTPTransport(acmenet.Config{CABundlePath: config.CACert})
		if err != nil {
			return nil, err
		}
		transport = t
	}

	client := &Client{
		Keys:      map[string]crypto.Signer{},
		Output:    config.InitialOutput,
		transport: transport,
	}
	client.nonces = newNoncePool(transport, func() (string, bool) {
		return client.directory.NewNonce, client.directory.NewNonce != ""
	})

	if err := client.UpdateDirectory(ctx, config.DirectoryURL); err != nil {
		return nil, err
	}

	return client, nil
}

// UpdateDirectory fetches and caches the ACME server's Directory resource.
func (c *Client) UpdateDirectory(ctx context.Context, directoryURL string) error {
	status, _, body, err := c.transport.Send(ctx, "GET", directoryURL, nil, nil)
	if err != nil {
		return &TransportError{URL: directoryURL, Err: err}
	}
	if status != 200 {
		return &UnexpectedStatus{URL: directoryURL, Expected: 200, Actual: status}
	}

	var dir resources.Directory
	if err := json.Unmarshal(body, &dir); err != nil {
		return &ProtocolError{URL: directoryURL, Problem: &resources.Problem{
			Type:   "urn:ietf:params:acme:error:malformed",
			Detail: fmt.Sprintf("invalid directory JSON: %s", err),
		}}
	}
	c.directory = dir
	return nil
}

// Directory returns the cached ACME server Directory.
func (c *Client) Directory() resources.Directory {
	return c.directory
}

// ActiveAccountID returns the ActiveAccount's server-assigned ID, or an empty
// string if there is no ActiveAccount or it hasn't been created server-side.
func (c *Client) ActiveAccountID() string {
	if c.ActiveAccount == nil {
		return ""
	}
	return c.ActiveAccount.ID
}

// validateContact normalizes and validates a single contact email address.
func validateContact(email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", nil
	}
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return "", fmt.Errorf("client: invalid contact email %q: %w", email, err)
	}
	return addr.Address, nil
}
