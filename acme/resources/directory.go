package resources

import "encoding/json"

// DirectoryMeta holds the optional "meta" sub-object of an ACME directory
// resource (RFC 8555 §7.1.1).
type DirectoryMeta struct {
	TermsOfService          string   `json:"termsOfService,omitempty"`
	Website                 string   `json:"website,omitempty"`
	CAAIdentities           []string `json:"caaIdentities,omitempty"`
	ExternalAccountRequired bool     `json:"externalAccountRequired,omitempty"`
}

// Directory represents the ACME server's Directory resource: a JSON object
// of service names to endpoint URLs that the client must fetch before
// issuing any other ACME request.
//
// See https://tools.ietf.org/html/rfc8555#section-7.1.1
type Directory struct {
	NewNonce   string `json:"newNonce"`
	NewAccount string `json:"newAccount"`
	NewOrder   string `json:"newOrder"`
	NewAuthz   string `json:"newAuthz,omitempty"`
	RevokeCert string `json:"revokeCert"`
	KeyChange  string `json:"keyChange"`
	Meta       DirectoryMeta `json:"meta,omitempty"`

	// raw preserves the full unmarshalled directory document, including any
	// keys not promoted to a typed field above, so callers can still look up
	// forward-compatible/unknown service names.
	raw map[string]any
}

// UnmarshalJSON populates the typed fields above and retains the full
// document in raw for forward compatibility with directory keys this
// struct doesn't yet know about.
func (d *Directory) UnmarshalJSON(data []byte) error {
	type alias Directory
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*d = Directory(a)

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	d.raw = raw
	return nil
}

// Lookup returns the URL registered under the given directory key, checking
// the raw document for any service name not promoted to a typed field.
func (d Directory) Lookup(name string) (string, bool) {
	v, ok := d.raw[name]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}
