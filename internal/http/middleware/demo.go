package middleware

import "net/http"

type contextKey string

const DemoSessionKey contextKey = "demo_session_id"

// RequireDemoSession sends the browser back to the demo page when no demo
// conversation has been started.
func RequireDemoSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _ := r.Context().Value(DemoSessionKey).(string)
		if id == "" {
			http.Redirect(w, r, "/demo", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// DemoSessionID returns the demo session id stored by the session loader
func DemoSessionID(r *http.Request) string {
	id, _ := r.Context().Value(DemoSessionKey).(string)
	return id
}
