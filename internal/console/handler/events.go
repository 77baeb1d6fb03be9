package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"maintenance-manager/console/internal/platform/rbac"
	"maintenance-manager/console/internal/session"
)

type decisionEvent struct {
	Decision string `json:"decision"`
	Location string `json:"location,omitempty"`
}

// sessionEvents streams the gate decision for the page at ?path= whenever the client's session changes,
// so an open tab follows a logout or role change made elsewhere.
func (h *Handler) sessionEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	store, ok := session.FromContext(r.Context())
	if !ok {
		http.Error(w, "no client session", http.StatusInternalServerError)
		return
	}
	route, found := rbac.Lookup(r.URL.Query().Get("path"))
	if !found {
		route = rbac.Dashboard
	}

	changes, unsubscribe := store.Subscribe()
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	last := rbac.Decision(-1)
	send := func() {
		d := rbac.Authorized
		if !route.Public {
			d = rbac.Evaluate(r.Context(), store.State(), route, h.deps.Policy)
		}
		if d == last {
			return
		}
		last = d
		payload, _ := json.Marshal(decisionEvent{Decision: d.String(), Location: rbac.Target(d)})
		fmt.Fprintf(w, "event: decision\ndata: %s\n\n", payload)
		flusher.Flush()
	}
	send()

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()
	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-changes:
			send()
		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		}
	}
}
