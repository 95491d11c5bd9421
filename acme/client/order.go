package client

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/cpu/acmeshell/acme/resources"
)

// CreateOrderOptions carries the optional RFC 8555 §7.1.3 order fields
// beyond the identifiers themselves.
type CreateOrderOptions struct {
	// NotBefore/NotAfter, if non-empty, request RFC 3339 validity bounds
	// for the issued certificate.
	NotBefore string
	NotAfter  string
}

// CreateOrder creates a new Order for the given identifiers with the ACME
// server, using the Client's ActiveAccount. On success the returned Order's
// ID, Status, Authorizations and Finalize fields are populated from the
// server's response.
//
// See https://tools.ietf.org/html/rfc8555#section-7.4
func (c *Client) CreateOrder(ctx context.Context, identifiers []resources.Identifier, opts CreateOrderOptions) (*resources.Order, error) {
	if c.ActiveAccountID() == "" {
		return nil, &StateViolation{Resource: "client", Expected: "ActiveAccount set", Actual: "nil"}
	}
	if len(identifiers) == 0 {
		return nil, &StateViolation{Resource: "order", Expected: "at least one identifier", Actual: "none"}
	}

	newOrderURL, ok := c.directory.NewOrder, c.directory.NewOrder != ""
	if !ok {
		return nil, &StateViolation{Resource: "directory", Expected: "newOrder present", Actual: "missing"}
	}

	reqBody, err := json.Marshal(struct {
		Identifiers []resources.Identifier `json:"identifiers"`
		NotBefore   string                 `json:"notBefore,omitempty"`
		NotAfter    string                 `json:"notAfter,omitempty"`
	}{
		Identifiers: identifiers,
		NotBefore:   opts.NotBefore,
		NotAfter:    opts.NotAfter,
	})
	if err != nil {
		return nil, err
	}

	order := &resources.Order{}
	status, headers, err := c.Send(ctx, newOrderURL, reqBody, SendOptions{}, order)
	if err != nil {
		return nil, err
	}
	if status != http.StatusCreated {
		return nil, &UnexpectedStatus{URL: newOrderURL, Expected: http.StatusCreated, Actual: status}
	}

	locHeader := headers.Get("Location")
	if locHeader == "" {
		return nil, &ProtocolError{URL: newOrderURL, Problem: &resources.Problem{
			Type:   "urn:ietf:params:acme:error:malformed",
			Detail: "order creation response had no Location header",
		}}
	}
	order.ID = locHeader
	order.Account = c.ActiveAccount
	c.ActiveAccount.Orders = append(c.ActiveAccount.Orders, order.ID)
	return order, nil
}

// RefreshOrder fetches the latest server-side state for order and mutates it
// in place, using a GET or POST-as-GET depending on c.PostAsGet.
func (c *Client) RefreshOrder(ctx context.Context, order *resources.Order) error {
	if order == nil || order.ID == "" {
		return &StateViolation{Resource: "order", Expected: "has ID", Actual: "none"}
	}
	account := order.Account
	if _, err := c.fetch(ctx, order.ID, order); err != nil {
		return err
	}
	order.Account = account
	return nil
}
