package status

// Status represents the lifecycle state of a work-order job.
// These values must match the text values stored in the jobs
// collection (jobs.status).
//
// Centralizing these here avoids scattering string literals like
// "pending_qa_review" or "ready_to_submit" across packages.
type Status string

const (
	New               Status = "new"
	AssignedToGF      Status = "assigned_to_gf"
	PreFielding       Status = "pre_fielding"
	Scheduled         Status = "scheduled"
	InProgress        Status = "in_progress"
	Stuck             Status = "stuck"
	PendingGFReview   Status = "pending_gf_review"
	PendingQAReview   Status = "pending_qa_review"
	PendingPMApproval Status = "pending_pm_approval"
	ReadyToSubmit     Status = "ready_to_submit"
	Submitted         Status = "submitted"
	GoBack            Status = "go_back"
	Billed            Status = "billed"
	Invoiced          Status = "invoiced"
)

// aliases maps legacy status strings, still accepted on input for
// backward compatibility, to their canonical values. Aliases are
// resolved before storage or comparison and are never written back.
var aliases = map[Status]Status{
	"pending":     New,
	"pre-field":   PreFielding,
	"in-progress": InProgress,
	"completed":   ReadyToSubmit,
}

// canonical is the set of sanctioned status values.
var canonical = map[Status]bool{
	New:               true,
	AssignedToGF:      true,
	PreFielding:       true,
	Scheduled:         true,
	InProgress:        true,
	Stuck:             true,
	PendingGFReview:   true,
	PendingQAReview:   true,
	PendingPMApproval: true,
	ReadyToSubmit:     true,
	Submitted:         true,
	GoBack:            true,
	Billed:            true,
	Invoiced:          true,
}

// Resolve maps a legacy alias to its canonical status. Canonical
// values, unknown values, and the empty string pass through unchanged;
// rejecting unknown statuses is the transition validator's job, not
// the resolver's.
func Resolve(raw Status) Status {
	if c, ok := aliases[raw]; ok {
		return c
	}
	return raw
}

// IsCanonical reports whether s is one of the sanctioned status values.
// It does not resolve aliases first; call Resolve if the input may be
// a legacy string.
func IsCanonical(s Status) bool {
	return canonical[s]
}

// All returns the canonical status values in lifecycle order. Useful
// for validation messages and admin listings.
func All() []Status {
	return []Status{
		New, AssignedToGF, PreFielding, Scheduled, InProgress, Stuck,
		PendingGFReview, PendingQAReview, PendingPMApproval,
		ReadyToSubmit, Submitted, GoBack, Billed, Invoiced,
	}
}
