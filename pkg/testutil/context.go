package testutil

import (
	"net/http"
	"time"

	"residency/pkg/requestcontext"
)

// WithReviewer stamps a reviewer identity on the request context, simulating
// what the reviewer auth middleware does for authenticated requests.
func WithReviewer(req *http.Request, reviewerID string) *http.Request {
	ctx := requestcontext.WithReviewerID(req.Context(), reviewerID)
	return req.WithContext(ctx)
}

// WithTime pins the request-scoped clock, simulating the request time
// middleware.
func WithTime(req *http.Request, at time.Time) *http.Request {
	ctx := requestcontext.WithTime(req.Context(), at)
	return req.WithContext(ctx)
}

// WithRequestID stamps a correlation ID on the request context.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	ctx := requestcontext.WithRequestID(req.Context(), requestID)
	return req.WithContext(ctx)
}
