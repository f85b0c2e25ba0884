package httputil

import (
	"context"
	"net/http"
)

type callerKey struct{}

// WithCaller returns ctx carrying the authenticated caller's id.
// An empty id leaves ctx anonymous.
func WithCaller(ctx context.Context, userID string) context.Context {
	if userID == "" {
		return ctx
	}
	return context.WithValue(ctx, callerKey{}, userID)
}

// CallerID reports the caller stored by WithCaller
func CallerID(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(callerKey{}).(string)
	return userID, ok && userID != ""
}

// WithUserID attaches the caller to a request
func WithUserID(r *http.Request, userID string) *http.Request {
	return r.WithContext(WithCaller(r.Context(), userID))
}

// GetUserID returns the request's caller, or "" for anonymous requests
func GetUserID(r *http.Request) string {
	userID, _ := CallerID(r.Context())
	return userID
}
