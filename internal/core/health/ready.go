package health

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"time"
)

// ReadinessReporter is implemented by the invalidation runner.
type ReadinessReporter interface {
	Readiness() (ready bool, partitions []int32)
}

// Pinger is a dependency that must answer before the service is ready.
type Pinger interface {
	Ping(ctx context.Context) error
}

const pingTimeout = 2 * time.Second

// Readiness reports ready when every dependency answers a ping and, if rr is
// set, the consumer group holds a live assignment. rr may be nil when no
// runner is configured.
func Readiness(rr ReadinessReporter, deps map[string]Pinger) http.HandlerFunc {
	names := make([]string, 0, len(deps))
	for n := range deps {
		names = append(names, n)
	}
	slices.Sort(names)

	return func(w http.ResponseWriter, r *http.Request) {
		type resp struct {
			Status     string            `json:"status"`
			Partitions []int32           `json:"partitions,omitempty"`
			Deps       map[string]string `json:"deps,omitempty"`
		}
		ready := true
		out := resp{}
		if rr != nil {
			ok, parts := rr.Readiness()
			ready = ok
			out.Partitions = parts
		}

		if len(names) > 0 {
			out.Deps = make(map[string]string, len(names))
			ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
			defer cancel()
			for _, n := range names {
				if err := deps[n].Ping(ctx); err != nil {
					out.Deps[n] = err.Error()
					ready = false
					continue
				}
				out.Deps[n] = "ok"
			}
		}

		out.Status = "not_ready"
		if ready {
			out.Status = "ready"
		}
		w.Header().Set("Content-Type", "application/json")
		if !ready {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(out)
	}
}
