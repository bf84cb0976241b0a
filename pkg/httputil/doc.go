// Package httputil provides retry support for package registry clients.
//
// Registry lookups fail transiently: connection resets, timeouts and 5xx
// answers from CRAN mirrors or PyPI are common during long runs. Clients
// wrap such failures in [RetryableError] and run the request through
// [Retry] (or a [Policy]), which backs off exponentially:
//
//	err := httputil.Retry(ctx, 3, time.Second, func() error {
//	    return fetch(ctx)
//	})
//
// Permanent failures (404, malformed payloads) are returned unwrapped and
// end the loop on the first attempt. Cancelling ctx stops any pending
// backoff and returns ctx.Err().
package httputil
