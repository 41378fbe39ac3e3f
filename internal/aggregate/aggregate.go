package aggregate

import (
	"fmt"
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

// AuthorFilter selects records by the actor class that produced them.
type AuthorFilter string

const (
	AuthorsBots   AuthorFilter = "bots"
	AuthorsHumans AuthorFilter = "humans"
	AuthorsAll    AuthorFilter = "all"
)

// Options is the full, immutable filter input for one aggregation pass.
// The zero value means: all authors, all kinds, resolved comments excluded,
// no attribute filters.
type Options struct {
	// Authors defaults to AuthorsAll when empty. The per-command default
	// (the comments command historically lists bots only) is supplied by
	// the caller, never assumed here.
	Authors AuthorFilter

	// Kinds limits output to the listed kinds. Empty means all declared
	// kinds. Requesting a kind absent from the payloads yields an empty
	// set for that kind, not an error.
	Kinds []Kind

	// IncludeResolved keeps review comments whose thread was resolved.
	// Resolved threads are hidden by default.
	IncludeResolved bool

	// Path is an exact match against the path attribute of review
	// comments. Other kinds are unaffected.
	Path string

	// Component, Severity, Rule and Status are exact matches against the
	// corresponding fields of Sonar issue and hotspot records. Other kinds
	// are unaffected.
	Component string
	Severity  string
	Rule      string
	Status    string

	// Key is an exact match against Record.Key, across all kinds.
	Key string
}

// Result is the output of one aggregation pass.
type Result struct {
	RunID string `json:"runId"`

	// Total counts the items the caller will actually see. It always
	// equals len(Items).
	Total int `json:"total"`

	// Fetched counts records after projection and deduplication but
	// before filtering. Reported separately so both numbers stay honest
	// when they differ.
	Fetched int `json:"fetched"`

	Items []Record `json:"items"`

	// Warnings lists sources whose payloads were missing or undecodable
	// and were treated as empty. Partial failure never aborts a run.
	Warnings []string `json:"warnings,omitempty"`
}

// Validate checks the filter enums before any payload is touched. A bad
// author or kind value is the only hard failure this package produces.
func (o Options) Validate() error {
	switch o.Authors {
	case "", AuthorsBots, AuthorsHumans, AuthorsAll:
	default:
		return errors.Newf("invalid author filter %q (want bots, humans, or all)", o.Authors)
	}
	for _, k := range o.Kinds {
		if !IsKind(k) {
			return errors.Newf("invalid type filter %q", k)
		}
	}
	return nil
}

// Aggregate projects, merges, deduplicates, and filters the given payloads.
// Payload order matters twice: within a kind, records keep arrival order,
// and when the same entity appears in two payloads the later payload wins
// conflicting fields.
func Aggregate(payloads []SourcePayload, opts Options) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	records, warnings := project(payloads)
	records = mergeDuplicates(records)
	records = dedupAliases(records)
	orderRecords(records)

	fetched := len(records)
	records = applyFilters(records, opts)

	return &Result{
		RunID:    uuid.NewString(),
		Total:    len(records),
		Fetched:  fetched,
		Items:    records,
		Warnings: warnings,
	}, nil
}

// FallbackFunc lazily produces the complementary-scope payloads for a key
// lookup. It is only invoked when the primary scope yields nothing.
type FallbackFunc func() ([]SourcePayload, error)

// Lookup is the two-phase key search: aggregate the primary payloads, and if
// a key filter is set and matched nothing, retry once against the fallback
// scope (typically the resolved/closed records the primary fetch excluded).
// This retry is deliberate policy, not error recovery: zero matches after
// both phases is an ordinary Total of 0.
func Lookup(primary []SourcePayload, fallback FallbackFunc, opts Options) (*Result, error) {
	result, err := Aggregate(primary, opts)
	if err != nil {
		return nil, err
	}
	if opts.Key == "" || result.Total > 0 || fallback == nil {
		return result, nil
	}

	payloads, err := fallback()
	if err != nil {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("fallback scope unavailable: %v", err))
		return result, nil
	}

	retried, err := Aggregate(payloads, opts)
	if err != nil {
		return nil, err
	}
	retried.Warnings = append(result.Warnings, retried.Warnings...)
	return retried, nil
}

func project(payloads []SourcePayload) ([]Record, []string) {
	var records []Record
	var warnings []string
	for _, p := range payloads {
		proj, ok := projectors[p.Kind]
		if !ok {
			warnings = append(warnings, fmt.Sprintf("%s: unknown payload kind, skipped", p.Kind))
			continue
		}
		if len(p.Document) == 0 {
			warnings = append(warnings, fmt.Sprintf("%s: payload unavailable, treated as empty", p.Kind))
			continue
		}
		projected, err := proj(p.Document)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("%s: %v, treated as empty", p.Kind, err))
			continue
		}
		records = append(records, projected...)
	}
	return records, warnings
}

// mergeDuplicates folds records that share kind and key into one, keeping
// the first arrival position and letting later observations win conflicting
// fields. This is how the REST and GraphQL views of one review comment
// become a single record carrying the union of both.
func mergeDuplicates(records []Record) []Record {
	type identity struct {
		kind Kind
		key  string
	}
	seen := make(map[identity]int, len(records))
	merged := records[:0]
	for _, r := range records {
		id := identity{r.Kind, r.Key}
		at, dup := seen[id]
		if !dup {
			seen[id] = len(merged)
			merged = append(merged, r)
			continue
		}
		existing := &merged[at]
		if r.Author != AuthorUnknown {
			existing.Author = r.Author
		}
		if r.Status != "" {
			existing.Status = r.Status
		}
		for name, v := range r.Attributes {
			existing.setAttr(name, v)
		}
	}
	return merged
}

// dedupAliases drops legacy status contexts that duplicate a check run for
// the same named check. Check runs are the richer mechanism and always take
// precedence.
func dedupAliases(records []Record) []Record {
	checkNames := make(map[string]bool)
	for _, r := range records {
		if r.Kind == KindCheckRun {
			checkNames[r.SourceKey] = true
		}
	}
	if len(checkNames) == 0 {
		return records
	}
	out := records[:0]
	for _, r := range records {
		if r.Kind == KindStatusContext && checkNames[r.SourceKey] {
			continue
		}
		out = append(out, r)
	}
	return out
}

// orderRecords sorts by the declared kind order while preserving arrival
// order within each kind.
func orderRecords(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		return KindRank(records[i].Kind) < KindRank(records[j].Kind)
	})
}

// predicate is a pure filter over one record. Active predicates compose as
// a logical AND; a predicate whose filter does not apply to a record's kind
// passes it through.
type predicate func(Record) bool

func applyFilters(records []Record, opts Options) []Record {
	preds := buildPredicates(opts)
	out := records[:0]
	for _, r := range records {
		keep := true
		for _, p := range preds {
			if !p(r) {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, r)
		}
	}
	return out
}

func buildPredicates(opts Options) []predicate {
	var preds []predicate

	switch opts.Authors {
	case AuthorsBots:
		preds = append(preds, func(r Record) bool { return r.Author == AuthorBot })
	case AuthorsHumans:
		// Humans means "not a declared bot": records with no actor
		// metadata stay visible rather than vanishing from both views.
		preds = append(preds, func(r Record) bool { return r.Author != AuthorBot })
	}

	if len(opts.Kinds) > 0 {
		wanted := make(map[Kind]bool, len(opts.Kinds))
		for _, k := range opts.Kinds {
			wanted[k] = true
		}
		preds = append(preds, func(r Record) bool { return wanted[r.Kind] })
	}

	if !opts.IncludeResolved {
		preds = append(preds, func(r Record) bool {
			return r.Kind != KindReviewComment || r.Status != StatusResolved
		})
	}

	if opts.Path != "" {
		preds = append(preds, func(r Record) bool {
			return r.Kind != KindReviewComment || r.Attributes["path"] == opts.Path
		})
	}

	preds = append(preds, sonarAttrPredicates(opts)...)

	if opts.Key != "" {
		preds = append(preds, func(r Record) bool { return r.Key == opts.Key })
	}

	return preds
}

func sonarAttrPredicates(opts Options) []predicate {
	sonarKind := func(r Record) bool {
		return r.Kind == KindIssue || r.Kind == KindSecurityHotspot
	}
	var preds []predicate
	if opts.Component != "" {
		preds = append(preds, func(r Record) bool {
			return !sonarKind(r) || r.Attributes["component"] == opts.Component
		})
	}
	if opts.Severity != "" {
		preds = append(preds, func(r Record) bool {
			return !sonarKind(r) || r.Attributes["severity"] == opts.Severity
		})
	}
	if opts.Rule != "" {
		preds = append(preds, func(r Record) bool {
			return !sonarKind(r) || r.Attributes["rule"] == opts.Rule
		})
	}
	if opts.Status != "" {
		preds = append(preds, func(r Record) bool {
			return !sonarKind(r) || r.Status == opts.Status
		})
	}
	return preds
}
