package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ffRTwegrFEW555/android-training-notes-app-sub001/internal/validation"
)

// maxAccountIDLength bounds the {accountId} path segment.
const maxAccountIDLength = 128

// accountIDContextKey is the context key for the resolved account.
type accountIDContextKey struct{}

// WithAccountID returns a new context with the account id attached.
func WithAccountID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, accountIDContextKey{}, id)
}

// AccountIDFromContext extracts the account id from the context.
// Returns "" if not present.
func AccountIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(accountIDContextKey{}).(string)
	return id
}

// MustAccountIDFromContext extracts the account id or panics.
// Use only when AccountMiddleware guarantees presence.
func MustAccountIDFromContext(ctx context.Context) string {
	id := AccountIDFromContext(ctx)
	if id == "" {
		panic("account id not in context: middleware misconfiguration")
	}
	return id
}

// AccountMiddleware validates the {accountId} URL parameter and stores it in
// the request context.
func AccountMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "accountId")

		var c validation.Collector
		c.Add(validation.ValidateRequired("accountId", id))
		c.Add(validation.ValidateUTF8("accountId", id))
		c.Add(validation.ValidateMaxLength("accountId", id, maxAccountIDLength))
		if strings.ContainsAny(id, "/\x00") {
			c.Add(&validation.ValidationError{Field: "accountId", Message: "contains invalid characters"})
		}
		if c.HasErrors() {
			WriteError(w, http.StatusBadRequest, c.Summary())
			return
		}

		next.ServeHTTP(w, r.WithContext(WithAccountID(r.Context(), id)))
	})
}
