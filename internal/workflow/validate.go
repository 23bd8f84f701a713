// Package workflow validates job status transitions against the
// canonical transition graph and its required-field gates.
package workflow

import (
	"fmt"

	"jobhub/internal/status"
)

// Error codes returned by Validate. The HTTP boundary passes these
// through verbatim so callers can distinguish "no such status" from
// "that edge does not exist" from "evidence missing".
const (
	CodeUnknownStatus         = "UNKNOWN_STATUS"
	CodeInvalidTransition     = "INVALID_TRANSITION"
	CodeMissingRequiredFields = "MISSING_REQUIRED_FIELDS"
)

// Fields carries the evidence supplied with a transition request,
// keyed by field name as it appears in the request body.
type Fields map[string]any

// Result is the outcome of validating a single transition.
type Result struct {
	Valid         bool
	From          status.Status // canonical, aliases resolved
	To            status.Status // canonical, aliases resolved
	MissingFields []string      // set only when Code is MISSING_REQUIRED_FIELDS
	Code          string        // empty when Valid
	Err           string        // human-readable, empty when Valid
}

// Validator owns the immutable transition and gate tables. Construct
// one with NewValidator and share it; it has no mutable state.
type Validator struct {
	transitions map[status.Status][]status.Status
	gates       map[edge][]string
}

// NewValidator builds a Validator over the canonical transition graph.
func NewValidator() *Validator {
	return &Validator{
		transitions: buildTransitions(),
		gates:       buildGates(),
	}
}

// Validate resolves both endpoints, checks the edge against the
// transition graph, and checks that every gate field for the edge is
// present. A field is missing when it is absent, nil, or an empty
// string; boolean false and numeric zero are present values — a gate
// flag like safetyGateCleared carries meaning in its negative, which
// is distinct from absence.
func (v *Validator) Validate(from, to status.Status, fields Fields) Result {
	cf := status.Resolve(from)
	ct := status.Resolve(to)

	targets, ok := v.transitions[cf]
	if !ok {
		return Result{
			From: cf, To: ct,
			Code: CodeUnknownStatus,
			Err:  fmt.Sprintf("unknown source status %q", from),
		}
	}
	if !status.IsCanonical(ct) {
		return Result{
			From: cf, To: ct,
			Code: CodeUnknownStatus,
			Err:  fmt.Sprintf("unknown target status %q", to),
		}
	}

	allowed := false
	for _, t := range targets {
		if t == ct {
			allowed = true
			break
		}
	}
	if !allowed {
		return Result{
			From: cf, To: ct,
			Code: CodeInvalidTransition,
			Err:  fmt.Sprintf("cannot transition from %q to %q", cf, ct),
		}
	}

	var missing []string
	for _, name := range v.gates[edge{cf, ct}] {
		if fieldMissing(fields, name) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return Result{
			From: cf, To: ct,
			MissingFields: missing,
			Code:          CodeMissingRequiredFields,
			Err:           fmt.Sprintf("missing required fields: %v", missing),
		}
	}

	return Result{Valid: true, From: cf, To: ct}
}

// Targets returns the allowed successor statuses for the given status,
// aliases resolved. The second return is false when the status is not
// in the transition graph.
func (v *Validator) Targets(from status.Status) ([]status.Status, bool) {
	targets, ok := v.transitions[status.Resolve(from)]
	return targets, ok
}

// Gates returns the required field names for the given edge, aliases
// resolved. Most edges return nil.
func (v *Validator) Gates(from, to status.Status) []string {
	return v.gates[edge{status.Resolve(from), status.Resolve(to)}]
}

func fieldMissing(fields Fields, name string) bool {
	val, ok := fields[name]
	if !ok || val == nil {
		return true
	}
	if s, isStr := val.(string); isStr && s == "" {
		return true
	}
	return false
}
