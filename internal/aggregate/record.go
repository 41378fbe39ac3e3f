package aggregate

// Kind identifies which upstream entity family a record came from.
type Kind string

const (
	KindReviewComment   Kind = "review_comment"
	KindIssueComment    Kind = "issue_comment"
	KindCheckRun        Kind = "check_run"
	KindStatusContext   Kind = "status_context"
	KindIssue           Kind = "issue"
	KindSecurityHotspot Kind = "security_hotspot"
)

// kindOrder is the declared output order. Downstream numbering depends on
// this, so it never changes based on payload arrival.
var kindOrder = []Kind{
	KindReviewComment,
	KindIssueComment,
	KindCheckRun,
	KindStatusContext,
	KindIssue,
	KindSecurityHotspot,
}

// KindRank returns the position of k in the declared output order.
// Unknown kinds sort last.
func KindRank(k Kind) int {
	for i, known := range kindOrder {
		if known == k {
			return i
		}
	}
	return len(kindOrder)
}

// Kinds returns all declared kinds in output order.
func Kinds() []Kind {
	out := make([]Kind, len(kindOrder))
	copy(out, kindOrder)
	return out
}

// IsKind reports whether k is a declared kind.
func IsKind(k Kind) bool {
	return KindRank(k) < len(kindOrder)
}

// AuthorType classifies the upstream actor that produced a record.
type AuthorType string

const (
	AuthorBot     AuthorType = "bot"
	AuthorHuman   AuthorType = "human"
	AuthorUnknown AuthorType = "unknown"
)

// Review-comment resolution states. Checks and Sonar records use
// source-specific status strings instead (success/failure/pending,
// open/confirmed/resolved).
const (
	StatusOpen     = "open"
	StatusResolved = "resolved"
)

// NotAvailable is the sentinel returned for attributes a record does not
// carry. Display code assumes every field it asks for has a value.
const NotAvailable = "not available"

// Record is the common shape every payload kind is projected into.
type Record struct {
	Kind Kind   `json:"kind"`
	Key  string `json:"key"`

	// SourceKey identifies the record for cross-source deduplication only:
	// the check name shared by a check run and its legacy status context,
	// or the numeric comment id shared by the REST and GraphQL views of
	// one review comment.
	SourceKey string `json:"sourceKey,omitempty"`

	Author AuthorType `json:"author"`
	Status string     `json:"status,omitempty"`

	// Attributes preserves source-specific fields for display (path, line,
	// diff excerpt, severity, rule, component, URL, timestamps).
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Attr returns the named attribute, or the NotAvailable sentinel when the
// record does not carry it.
func (r Record) Attr(name string) string {
	if v, ok := r.Attributes[name]; ok && v != "" {
		return v
	}
	return NotAvailable
}

// setAttr stores v under name, dropping empty values so Attr's sentinel
// stays authoritative.
func (r *Record) setAttr(name, v string) {
	if v == "" {
		return
	}
	if r.Attributes == nil {
		r.Attributes = make(map[string]string)
	}
	r.Attributes[name] = v
}
