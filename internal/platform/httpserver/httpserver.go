package httpserver

import (
	"net/http"
	"time"
)

// New builds the gateway's HTTP server. No WriteTimeout is set: mint requests
// legitimately run up to the ledger timeout, and the router's timeout
// middleware already bounds everything else.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
}
