package middleware

import (
	"net/http"
	"strconv"

	"maintenance-manager/console/internal/audit"
	"maintenance-manager/console/internal/session"
)

// Audit returns middleware that records an audit event after each state-changing request of a signed-in client.
// skipRoutes is the set of route patterns not to audit (e.g. routes whose handlers log richer events themselves).
// LogEvent is best-effort: failures never affect the response.
func Audit(logger audit.AuditLogger, skipRoutes map[string]bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			companyID, userID := "", ""
			if store, ok := session.FromContext(r.Context()); ok {
				if u := store.State().User; u != nil {
					companyID, userID = strconv.FormatInt(u.CompanyID, 10), strconv.FormatInt(u.ID, 10)
				}
			}

			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(rw, r)

			if logger == nil || userID == "" || skipRoutes[r.Pattern] || !audit.Audited(r.Pattern) {
				return
			}
			ar := audit.ParseRoute(r.Pattern)
			logger.LogEvent(r.Context(), companyID, userID, ar.Action, ar.Resource, r.URL.Path+" "+strconv.Itoa(rw.statusCode))
		})
	}
}
