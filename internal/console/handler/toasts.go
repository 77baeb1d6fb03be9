package handler

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"maintenance-manager/console/internal/platform/rbac"
)

func (h *Handler) listToasts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toasts(r).List())
}

// dismissToast removes one toast. Unknown ids are ignored. Form posts are sent back to the page they came from.
func (h *Handler) dismissToast(w http.ResponseWriter, r *http.Request) {
	if id, err := strconv.ParseUint(r.PathValue("id"), 10, 64); err == nil {
		toasts(r).Remove(id)
	}
	if r.Header.Get("Accept") == "application/json" || r.Header.Get("X-Requested-With") == "fetch" {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	seeOther(w, r, backTo(r))
}

// backTo returns the same-origin path of the Referer, or the dashboard.
func backTo(r *http.Request) string {
	ref, err := url.Parse(r.Referer())
	if err != nil || ref.Path == "" || !strings.HasPrefix(ref.Path, "/") || strings.HasPrefix(ref.Path, "//") {
		return rbac.DashboardPath
	}
	if ref.Host != "" && ref.Host != r.Host {
		return rbac.DashboardPath
	}
	if ref.RawQuery != "" {
		return ref.Path + "?" + ref.RawQuery
	}
	return ref.Path
}
