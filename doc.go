// Package igvf provides a typed request layer for the IGVF data provider
// and the portal's own API:
//
//   - Result[T, E] two-variant outcomes – every read returns Ok or Err,
//     never a raised failure
//   - Three authentication modes (cookie, session CSRF, backend) validated
//     synchronously at construction
//   - Bulk-search fetching that batches object paths under a URL-length
//     budget and fans the groups out concurrently
//   - In-flight GET coalescing (merges concurrent identical requests)
//   - A cache-aside layer over pluggable stores (in-process or redis) that
//     degrades to misses when the store is unreachable
//   - Prometheus metrics and lightweight structured debug logging
//
// Typical usage:
//
//	client, err := igvf.New(
//	    igvf.AuthContext{Cookie: cookie},
//	    igvf.WithDeduplication(),
//	    igvf.WithMetrics(),
//	)
//	if err != nil {
//	    // construction-time configuration mistake
//	}
//	result := client.GetObject(ctx, "/labs/j-michael-cherry/")
//	if result.IsOk() {
//	    lab := result.Unwrap()
//	    _ = lab
//	}
//
// Requests are never retried: a failed round trip surfaces immediately as a
// network error object so callers can render a failure state without delay.
package igvf
