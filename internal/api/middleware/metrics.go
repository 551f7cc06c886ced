package middleware

import (
	"net/http"
	"sync/atomic"
)

// RequestCounter feeds the /metrics endpoint: total requests served and how
// many of them ended in a 4xx/5xx. The counters live on the App so they
// survive handler reconstruction.
type RequestCounter struct {
	total  *atomic.Int64
	errors *atomic.Int64
}

func NewRequestCounter(total, errors *atomic.Int64) *RequestCounter {
	return &RequestCounter{total: total, errors: errors}
}

// Middleware counts every request and every error response.
func (c *RequestCounter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.total.Add(1)

		rw := newResponseWriter(w)
		next.ServeHTTP(rw, r)

		if rw.statusCode >= http.StatusBadRequest {
			c.errors.Add(1)
		}
	})
}
