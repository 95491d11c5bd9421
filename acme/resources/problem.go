package resources

import "fmt"

// Subproblem represents one entry of an RFC 8555 §6.7.1 "subproblems" array,
// attributing part of a problem document to a specific identifier.
type Subproblem struct {
	Type       string
	Detail     string
	Identifier *Identifier `json:",omitempty"`
}

// Problem is a struct representing a problem document (RFC 7807) returned by
// the ACME server. Problem implements the error interface so it can be
// returned directly and unwrapped with errors.As by callers that want to
// inspect Type/Status/Subproblems.
type Problem struct {
	Type        string
	Detail      string
	Status      int
	Subproblems []Subproblem `json:"subproblems,omitempty"`
}

// Error returns a human readable summary of the problem document.
func (p *Problem) Error() string {
	if p == nil {
		return ""
	}
	if len(p.Subproblems) == 0 {
		return fmt.Sprintf("%s: %s", p.Type, p.Detail)
	}
	return fmt.Sprintf("%s: %s (%d subproblems)", p.Type, p.Detail, len(p.Subproblems))
}
