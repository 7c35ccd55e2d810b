// Package draft defines the specialist responder output types. A draft is
// the only artifact a responder hands downstream; the reviewer consumes it
// without ever seeing the originating user text.
package draft

// Domain identifies which specialist responder produced an answer.
type Domain string

const (
	DomainOrder   Domain = "order"
	DomainProduct Domain = "product"
	DomainSupport Domain = "support"
)

// Citation records one source a responder drew on.
type Citation struct {
	Source  string `json:"source"`
	Snippet string `json:"snippet"`
}

// Answer is a specialist responder's draft. Exactly one Answer exists per
// non-blocked turn.
type Answer struct {
	Text      string     `json:"text"`
	Citations []Citation `json:"citations,omitempty"`
	Responder Domain     `json:"responder"`
	// Degraded marks drafts produced without an enrichment gateway that the
	// responder would normally have consulted.
	Degraded bool `json:"degraded,omitempty"`
}
