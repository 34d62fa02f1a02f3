package internal

import (
	"encoding/json"
	"fmt"
	"net/http"

	"chat-relay/contract"
)

// StartDebugServer exposes the runtime statistics of the relay as JSON
// on the given port. Meant for local inspection only, it listens on all
// interfaces and is never started unless DEBUG_PORT is set.
func StartDebugServer(port int, endpoint string, statsProvider contract.StatsProvider) {
	mux := http.NewServeMux()

	mux.HandleFunc(endpoint, func(w http.ResponseWriter, r *http.Request) {
		stats := make(map[string]any)
		if statsProvider != nil {
			stats = statsProvider()
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		_ = enc.Encode(stats)
	})

	go func() {
		_ = http.ListenAndServe(fmt.Sprintf("0.0.0.0:%d", port), mux)
	}()
}
