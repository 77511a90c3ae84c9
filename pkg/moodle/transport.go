package moodle

import (
	"context"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	errs "nalanda/pkg/errors"
	"nalanda/pkg/logger"
	"nalanda/pkg/ratelimit"
	"nalanda/pkg/retry"
)

// retryTransport replays requests that fail at the network level or come
// back with a gateway error. Every attempt waits on the limiter first.
type retryTransport struct {
	next        http.RoundTripper
	maxAttempts int
	backoff     retry.BackoffStrategy
	limiter     ratelimit.Limiter
	logger      logger.Logger
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	var resp *http.Response
	err := retry.Do(func() error {
		if t.limiter != nil {
			if err := t.limiter.Wait(ctx); err != nil {
				return err
			}
		}

		attempt := req.Clone(ctx)
		if req.Body != nil && req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return err
			}
			attempt.Body = body
		}

		start := time.Now()
		r, err := t.next.RoundTrip(attempt)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return errs.Wrap(errs.KindNetwork, err, "%s %s", req.Method, req.URL.Redacted())
		}
		logger.LogRequest(t.logger, attempt, r.StatusCode, time.Since(start))

		if errs.IsRetryableStatusCode(r.StatusCode) {
			io.Copy(io.Discard, r.Body)
			r.Body.Close()
			e := errs.New(errs.KindNetwork, "%s %s returned %s", req.Method, req.URL.Redacted(), r.Status)
			e.Code = r.StatusCode
			return e
		}
		resp = r
		return nil
	}, &retry.Config{
		MaxAttempts: t.maxAttempts,
		Backoff:     t.backoff,
		Context:     ctx,
		Logger:      t.logger,
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// errStalled ends a body read that received nothing for the idle timeout
var errStalled = errs.New(errs.KindNetwork, "no data received from the portal in time")

// idleTimeoutTransport aborts a response whose body stops arriving. The
// deadline restarts after every read, so a slow but steady download of a
// large file is never cut off.
type idleTimeoutTransport struct {
	next    http.RoundTripper
	timeout time.Duration
}

func (t *idleTimeoutTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx, cancel := context.WithCancel(req.Context())
	resp, err := t.next.RoundTrip(req.WithContext(ctx))
	if err != nil {
		cancel()
		return nil, err
	}
	body := &idleBody{ReadCloser: resp.Body, cancel: cancel, timeout: t.timeout}
	body.timer = time.AfterFunc(t.timeout, body.expire)
	resp.Body = body
	return resp, nil
}

type idleBody struct {
	io.ReadCloser
	cancel  context.CancelFunc
	timeout time.Duration
	timer   *time.Timer
	stalled atomic.Bool
}

func (b *idleBody) expire() {
	b.stalled.Store(true)
	b.cancel()
}

func (b *idleBody) Read(p []byte) (int, error) {
	n, err := b.ReadCloser.Read(p)
	if b.stalled.Load() {
		return n, errStalled
	}
	if n > 0 {
		b.timer.Reset(b.timeout)
	}
	return n, err
}

func (b *idleBody) Close() error {
	b.timer.Stop()
	b.cancel()
	return b.ReadCloser.Close()
}
