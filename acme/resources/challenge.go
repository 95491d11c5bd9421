package resources

// ChallengeStatus is the lifecycle status of an ACME challenge
// (RFC 8555 §7.1.6).
type ChallengeStatus string

const (
	ChallengePending    ChallengeStatus = "pending"
	ChallengeProcessing ChallengeStatus = "processing"
	ChallengeValid      ChallengeStatus = "valid"
	ChallengeInvalid    ChallengeStatus = "invalid"
)

// The ACME Challenge resource represents an action that the client must take to
// authorize a given account for a specific identifier in order to issue
// a certificate containing that identifier.
//
// For information about the Challenge resource see
// https://ietf-wg-acme.github.io/acme/draft-ietf-acme-acme.html#rfc.section.7.1.5
//
// To understand the Challenge types specified by ACME see
// https://ietf-wg-acme.github.io/acme/draft-ietf-acme-acme.html#rfc.section.8
//
// To understand the Challenge Status changes specified by ACME see
// https://ietf-wg-acme.github.io/acme/draft-ietf-acme-acme.html#rfc.section.7.1.6
type Challenge struct {
	// The Type of the challenge (expected values include "http-01", "dns-01", "tls-alpn-01")
	Type string
	// The URL/ID of the challenge (provided by the server in the associated
	// Authorization)
	//
	// TODO(@cpu): This should be renamed to ID for consistency with
	// Authorization, Order and Account.
	URL string
	// The Token used for constructing the challenge response for this challenge.
	Token string
	// The Status of the challenge.
	Status ChallengeStatus
	// An RFC 3339 timestamp at which the server validated this challenge.
	// Only present when Status is valid.
	Validated string `json:",omitempty"`
	// The Error associated with an invalid challenge
	Error *Problem `json:",omitempty"`
}

// String returns the URL of the Challenge.
func (c Challenge) String() string {
	return c.URL
}
