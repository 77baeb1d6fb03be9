package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"maintenance-manager/console/internal/session"
	"maintenance-manager/console/internal/toast"
)

// ClientOptions configures Client.
type ClientOptions struct {
	CookieName string
	Secure     bool
	Sessions   *session.Manager
	Toasts     *toast.Hub
}

// Client identifies the browser by its client cookie, issuing a new random id when the cookie is missing or malformed,
// and attaches the client's session store and toast notifier to the request context.
func Client(opts ClientOptions) func(http.Handler) http.Handler {
	name := opts.CookieName
	if name == "" {
		name = "console_sid"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientID := ""
			if c, err := r.Cookie(name); err == nil {
				if id, err := uuid.Parse(c.Value); err == nil {
					clientID = id.String()
				}
			}
			if clientID == "" {
				clientID = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     name,
					Value:    clientID,
					Path:     "/",
					HttpOnly: true,
					Secure:   opts.Secure,
					SameSite: http.SameSiteLaxMode,
				})
			}

			ctx := WithClient(r.Context(), clientID, ClientIP(r))
			if opts.Sessions != nil {
				ctx = session.WithStore(ctx, opts.Sessions.Get(clientID))
			}
			if opts.Toasts != nil {
				ctx = toast.WithNotifier(ctx, opts.Toasts.For(clientID))
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
