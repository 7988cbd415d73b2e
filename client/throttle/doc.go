// Package throttle provides an [http.RoundTripper] that rate-limits
// outbound HTTP requests using a token-bucket algorithm from
// [golang.org/x/time/rate].
//
// # Usage
//
// Wrap an existing transport with [NewRoundTripper]:
//
//	rt, err := throttle.NewRoundTripper(
//		10,  // requests per second
//		5,   // burst capacity
//		func() *slog.Logger { return slog.Default() },
//		http.DefaultTransport,
//	)
//	httpClient := &http.Client{Transport: rt}
//
// When the rate limit is exceeded, outbound requests block until a
// token becomes available or the request context is cancelled. Each
// attempt of a redirected request takes its own token; when the request
// carries a replayed body the attempt number is logged with the wait.
package throttle
