package client

import (
	"context"
	"fmt"

	"github.com/cpu/acmeshell/acme/resources"
)

// RefreshAuthorization fetches the latest server-side state for authz and
// mutates it in place.
//
// If authz.Wildcard is true, RFC 8555 §7.1.4 forbids the server from
// offering http-01 or tls-alpn-01 challenges for it (only dns-01 can prove
// control of a wildcard name). RefreshAuthorization enforces this as
// a StateViolation rather than silently trusting a non-conformant server.
func (c *Client) RefreshAuthorization(ctx context.Context, authz *resources.Authorization) error {
	if authz == nil || authz.ID == "" {
		return &StateViolation{Resource: "authorization", Expected: "has ID", Actual: "none"}
	}
	if _, err := c.fetch(ctx, authz.ID, authz); err != nil {
		return err
	}

	if authz.Wildcard {
		for _, chall := range authz.Challenges {
			if chall.Type == "http-01" || chall.Type == "tls-alpn-01" {
				return &StateViolation{
					Resource: fmt.Sprintf("authorization %s", authz.ID),
					Expected: "wildcard authorization offers only dns-01",
					Actual:   fmt.Sprintf("offered %s", chall.Type),
				}
			}
		}
	}
	return nil
}

// AuthorizationByIdentifier fetches each of order's authorizations until one
// matching identifier is found.
func (c *Client) AuthorizationByIdentifier(ctx context.Context, order *resources.Order, identifier string) (*resources.Authorization, error) {
	if order == nil {
		return nil, &StateViolation{Resource: "order", Expected: "non-nil", Actual: "nil"}
	}
	for _, authzURL := range order.Authorizations {
		authz := &resources.Authorization{ID: authzURL}
		if err := c.RefreshAuthorization(ctx, authz); err != nil {
			return nil, err
		}
		if authz.Identifier.Value == identifier {
			return authz, nil
		}
	}
	return nil, &StateViolation{
		Resource: fmt.Sprintf("order %s", order.ID),
		Expected: fmt.Sprintf("an authorization for %q", identifier),
		Actual:   "none found",
	}
}

// DeactivateAuthorization requests the server deactivate the authorization
// (RFC 8555 §7.5.2).
func (c *Client) DeactivateAuthorization(ctx context.Context, authz *resources.Authorization) error {
	if authz == nil || authz.ID == "" {
		return &StateViolation{Resource: "authorization", Expected: "has ID", Actual: "none"}
	}
	reqBody := []byte(`{"status":"deactivated"}`)
	_, _, err := c.Send(ctx, authz.ID, reqBody, SendOptions{}, authz)
	return err
}
