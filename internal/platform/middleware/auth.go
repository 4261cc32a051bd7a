package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"residency/pkg/requestcontext"
)

// ReviewerValidator validates a bearer token and returns the reviewer
// identity it carries. Implemented by internal/jwtauth.
type ReviewerValidator interface {
	ValidateToken(tokenString string) (reviewerID string, err error)
}

// RequireReviewer guards operator-only routes. The reviewer identity from the
// token lands in the request context for the lifecycle services to record.
func RequireReviewer(validator ReviewerValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || token == "" {
				logger.WarnContext(ctx, "unauthorized - missing bearer token",
					"request_id", requestcontext.RequestID(ctx),
				)
				writeUnauthorized(w)
				return
			}

			reviewerID, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized - invalid token",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				writeUnauthorized(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(requestcontext.WithReviewerID(ctx, reviewerID)))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
}
