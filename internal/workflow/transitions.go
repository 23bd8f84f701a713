package workflow

import "jobhub/internal/status"

// edge identifies a single from→to pair in the transition graph.
type edge struct {
	from, to status.Status
}

// buildTransitions constructs the canonical transition graph: for each
// source status, the set of statuses a job may move to next. This table
// is the single source of truth for what is legal; no handler or store
// method carries its own copy.
//
// stuck is a side branch, not a dead end: jobs reach it from scheduled
// or in_progress and return to either, so schedule and progress context
// is not discarded when field conditions (missing materials, design
// conflicts) halt work.
func buildTransitions() map[status.Status][]status.Status {
	return map[status.Status][]status.Status{
		status.New:               {status.AssignedToGF},
		status.AssignedToGF:      {status.PreFielding},
		status.PreFielding:       {status.Scheduled},
		status.Scheduled:         {status.InProgress, status.Stuck},
		status.Stuck:             {status.Scheduled, status.InProgress},
		status.InProgress:        {status.PendingGFReview, status.Stuck},
		status.PendingGFReview:   {status.PendingQAReview, status.InProgress},
		status.PendingQAReview:   {status.PendingPMApproval, status.PendingGFReview},
		status.PendingPMApproval: {status.ReadyToSubmit, status.PendingQAReview},
		status.ReadyToSubmit:     {status.Submitted},
		status.Submitted:         {status.Billed, status.GoBack},
		status.GoBack:            {status.InProgress, status.PendingGFReview},
		status.Billed:            {status.Invoiced},
		status.Invoiced:          {}, // terminal
	}
}

// buildGates constructs the required-field table. Most edges require no
// evidence; the ones listed here cannot be taken until the named fields
// are present in the request.
func buildGates() map[edge][]string {
	return map[edge][]string{
		{status.New, status.AssignedToGF}:      {"assignedToGF"},
		{status.PreFielding, status.Scheduled}: {"crewScheduledDate"},
		{status.Scheduled, status.InProgress}:  {"safetyGateCleared"},
		{status.Scheduled, status.Stuck}:       {"stuckReason"},
		{status.InProgress, status.Stuck}:      {"stuckReason"},
	}
}
