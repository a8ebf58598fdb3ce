// Package httpserver constructs the process's public HTTP listener.
package httpserver

import (
	"net/http"
	"time"
)

// New returns the API server. ReadHeaderTimeout bounds clients that stall
// mid-headers; body limits are enforced per handler.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
