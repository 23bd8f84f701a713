package metrics

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Simple Prometheus-style metrics for HTTP requests and workflow
// activity. This is intentionally minimal and in-memory only.

var (
	mu             sync.RWMutex
	requestsTotal  = make(map[reqKey]int64)
	latencyMsSum   = make(map[latKey]int64)
	latencyMsCount = make(map[latKey]int64)

	transitionsTotal = make(map[transitionKey]int64)
	auditsTotal      = make(map[auditKey]int64)
)

type reqKey struct {
	Method string
	Path   string
	Status int
}

type latKey struct {
	Method string
	Path   string
}

type transitionKey struct {
	From    string
	To      string
	Outcome string
}

type auditKey struct {
	Operation string
	Outcome   string
}

// RecordRequest increments request counter and records latency.
func RecordRequest(method, path string, status int, latencyMs int64) {
	mu.Lock()
	defer mu.Unlock()

	rk := reqKey{Method: method, Path: path, Status: status}
	requestsTotal[rk]++

	lk := latKey{Method: method, Path: path}
	latencyMsSum[lk] += latencyMs
	latencyMsCount[lk]++
}

// RecordTransition increments the transition counter for a from→to
// pair. Outcome is "applied" or the validator/store error code.
func RecordTransition(from, to, outcome string) {
	mu.Lock()
	defer mu.Unlock()
	transitionsTotal[transitionKey{From: from, To: to, Outcome: outcome}]++
}

// RecordAudit increments the audit operation counter. Operation is
// record, review, correction, or resolve; outcome is "ok" or the
// audit error code.
func RecordAudit(operation, outcome string) {
	mu.Lock()
	defer mu.Unlock()
	auditsTotal[auditKey{Operation: operation, Outcome: outcome}]++
}

// Export returns Prometheus-style metrics text.
func Export() string {
	mu.RLock()
	defer mu.RUnlock()

	var b strings.Builder

	b.WriteString("# HELP jobhub_http_requests_total Total HTTP requests\n")
	b.WriteString("# TYPE jobhub_http_requests_total counter\n")

	// Sort keys for stable output
	var reqKeys []reqKey
	for k := range requestsTotal {
		reqKeys = append(reqKeys, k)
	}
	sort.Slice(reqKeys, func(i, j int) bool {
		if reqKeys[i].Method != reqKeys[j].Method {
			return reqKeys[i].Method < reqKeys[j].Method
		}
		if reqKeys[i].Path != reqKeys[j].Path {
			return reqKeys[i].Path < reqKeys[j].Path
		}
		return reqKeys[i].Status < reqKeys[j].Status
	})

	for _, k := range reqKeys {
		v := requestsTotal[k]
		fmt.Fprintf(&b, "jobhub_http_requests_total{method=\"%s\",path=\"%s\",status=\"%d\"} %d\n",
			k.Method, k.Path, k.Status, v)
	}

	b.WriteString("# HELP jobhub_http_request_duration_ms_sum Total request duration in milliseconds\n")
	b.WriteString("# TYPE jobhub_http_request_duration_ms_sum counter\n")
	b.WriteString("# HELP jobhub_http_request_duration_ms_count Request count for latency metric\n")
	b.WriteString("# TYPE jobhub_http_request_duration_ms_count counter\n")

	var latKeys []latKey
	for k := range latencyMsSum {
		latKeys = append(latKeys, k)
	}
	sort.Slice(latKeys, func(i, j int) bool {
		if latKeys[i].Method != latKeys[j].Method {
			return latKeys[i].Method < latKeys[j].Method
		}
		return latKeys[i].Path < latKeys[j].Path
	})

	for _, k := range latKeys {
		sum := latencyMsSum[k]
		cnt := latencyMsCount[k]
		fmt.Fprintf(&b, "jobhub_http_request_duration_ms_sum{method=\"%s\",path=\"%s\"} %d\n",
			k.Method, k.Path, sum)
		fmt.Fprintf(&b, "jobhub_http_request_duration_ms_count{method=\"%s\",path=\"%s\"} %d\n",
			k.Method, k.Path, cnt)
	}

	// Workflow transition metrics
	b.WriteString("# HELP jobhub_transitions_total Job status transition attempts by edge and outcome\n")
	b.WriteString("# TYPE jobhub_transitions_total counter\n")

	var trKeys []transitionKey
	for k := range transitionsTotal {
		trKeys = append(trKeys, k)
	}
	sort.Slice(trKeys, func(i, j int) bool {
		if trKeys[i].From != trKeys[j].From {
			return trKeys[i].From < trKeys[j].From
		}
		if trKeys[i].To != trKeys[j].To {
			return trKeys[i].To < trKeys[j].To
		}
		return trKeys[i].Outcome < trKeys[j].Outcome
	})

	for _, k := range trKeys {
		v := transitionsTotal[k]
		fmt.Fprintf(&b, "jobhub_transitions_total{from=\"%s\",to=\"%s\",outcome=\"%s\"} %d\n",
			k.From, k.To, k.Outcome, v)
	}

	// Audit operation metrics
	b.WriteString("# HELP jobhub_audits_total Audit operations by type and outcome\n")
	b.WriteString("# TYPE jobhub_audits_total counter\n")

	var auKeys []auditKey
	for k := range auditsTotal {
		auKeys = append(auKeys, k)
	}
	sort.Slice(auKeys, func(i, j int) bool {
		if auKeys[i].Operation != auKeys[j].Operation {
			return auKeys[i].Operation < auKeys[j].Operation
		}
		return auKeys[i].Outcome < auKeys[j].Outcome
	})

	for _, k := range auKeys {
		v := auditsTotal[k]
		fmt.Fprintf(&b, "jobhub_audits_total{operation=\"%s\",outcome=\"%s\"} %d\n",
			k.Operation, k.Outcome, v)
	}

	return b.String()
}
