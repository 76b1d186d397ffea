// Package probe reports reachability of optional backing services for the
// /status endpoint. Probes are diagnostic only: the chat engine keeps all
// state in process, and an unreachable backend never gates client traffic.
package probe

import "context"

// Probe checks one backing service.
type Probe interface {
	// Name identifies the backend in the status report, e.g. "redis".
	Name() string
	// Check returns nil if the backend is reachable.
	Check(ctx context.Context) error
}

// Report runs every probe and returns a name -> status map suitable for
// JSON encoding. Reachable backends report "ok"; unreachable ones report
// the error text.
func Report(ctx context.Context, probes []Probe) map[string]string {
	out := make(map[string]string, len(probes))
	for _, p := range probes {
		if err := p.Check(ctx); err != nil {
			out[p.Name()] = "error: " + err.Error()
			continue
		}
		out[p.Name()] = "ok"
	}
	return out
}
