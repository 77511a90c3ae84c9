// Package retry provides exponential backoff and retry logic for transient
// failures talking to the portal.
//
// Only errors of kind errors.KindNetwork are retried by default; the portal
// client raises those for connection failures and gateway statuses
// (502, 503, 504). Everything else surfaces on the first attempt.
//
//	err := retry.Do(func() error {
//		return fetch(ctx)
//	}, &retry.Config{
//		MaxAttempts: 5,
//		Backoff:     retry.DefaultExponentialBackoff(),
//		Context:     ctx,
//	})
package retry
