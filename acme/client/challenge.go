package client

import (
	"context"

	"github.com/cpu/acmeshell/acme/resources"
)

// RefreshChallenge fetches the latest server-side state for chall and
// mutates it in place.
func (c *Client) RefreshChallenge(ctx context.Context, chall *resources.Challenge) error {
	if chall == nil || chall.URL == "" {
		return &StateViolation{Resource: "challenge", Expected: "has URL", Actual: "none"}
	}
	_, err := c.fetch(ctx, chall.URL, chall)
	return err
}

// AnswerChallenge tells the server the client is ready for it to validate
// chall, by POSTing an empty JSON object to the challenge URL
// (RFC 8555 §7.5.1).
func (c *Client) AnswerChallenge(ctx context.Context, chall *resources.Challenge) error {
	if chall == nil || chall.URL == "" {
		return &StateViolation{Resource: "challenge", Expected: "has URL", Actual: "none"}
	}
	_, _, err := c.Send(ctx, chall.URL, []byte("{}"), SendOptions{}, chall)
	return err
}
