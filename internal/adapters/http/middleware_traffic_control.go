package httpadapter

import (
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// trafficControlMiddleware layers a token-bucket rate limit and an in-flight
// backpressure gate in front of the handler. Either limit set to zero
// disables that layer.
func trafficControlMiddleware(next http.Handler, rps, burst, maxInFlight int, maxWait time.Duration) http.Handler {
	if maxWait <= 0 {
		maxWait = 200 * time.Millisecond
	}
	handler := next
	if maxInFlight > 0 {
		handler = backpressureMiddleware(handler, maxInFlight, maxWait)
	}
	if rps > 0 {
		handler = rateLimitMiddleware(handler, rps, burst)
	}
	return handler
}

func rateLimitMiddleware(next http.Handler, rps, burst int) http.Handler {
	if burst < rps {
		burst = rps
	}
	limiter := rate.NewLimiter(rate.Limit(rps), burst)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			w.Header().Set("Retry-After", "1")
			writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// backpressureMiddleware bounds concurrent requests. A request that cannot
// get a slot within maxWait is rejected instead of queueing unboundedly.
func backpressureMiddleware(next http.Handler, maxInFlight int, maxWait time.Duration) http.Handler {
	slots := make(chan struct{}, maxInFlight)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		timer := time.NewTimer(maxWait)
		defer timer.Stop()

		select {
		case slots <- struct{}{}:
			defer func() { <-slots }()
			next.ServeHTTP(w, r)
		case <-timer.C:
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "server overloaded, retry later"})
		case <-r.Context().Done():
		}
	})
}
