// Package ratelimit throttles requests to the portal.
//
// The downloader is single-threaded, so throttling is optional politeness:
// rate_limit.requests_per_minute in the configuration enables a TokenBucket
// that the portal client waits on before every request.
//
//	limiter := ratelimit.PerMinute(cfg.RateLimit.RequestsPerMinute, clock.WallClock)
//	if limiter != nil {
//	    if err := limiter.Wait(ctx); err != nil {
//	        return err
//	    }
//	}
package ratelimit
