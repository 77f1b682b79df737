package dentsi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/briangreenhill/dentsi/cache"
)

// Result is the outcome of a cached read. Either Value holds the backend's
// payload (fresh or cached) or Fallback is set and Value holds the call
// site's default.
type Result[T any] struct {
	Value     T
	Fallback  bool
	Cached    bool
	FetchedAt time.Time
}

// OK reports whether Value came from the backend
func (r Result[T]) OK() bool {
	return !r.Fallback
}

type loaded[T any] struct {
	value     T
	fetchedAt time.Time
}

// fetch is the cache-or-fetch read path shared by every GET endpoint.
// It never returns an error: any failure yields fallback.
func fetch[T any](ctx context.Context, c *Client, p string, params map[string]string, fallback T) Result[T] {
	key := cache.KeyFor(p, params)
	if c.cache != nil {
		key = c.cache.KeyFor(p, params)
		if entry, ok := c.cache.Read(key, c.ttl); ok {
			var v T
			if err := json.Unmarshal(entry.Body, &v); err == nil {
				c.log.Debug().Str("key", key).Msg("cache hit")
				return Result[T]{Value: v, Cached: true, FetchedAt: entry.FetchedAt}
			}
		}
		c.log.Debug().Str("key", key).Msg("cache miss")
	}

	// Concurrent misses for one key share a single backend call. The call
	// outlives any one caller's cancellation and is bounded by c.timeout.
	// A caller that gives up gets the fallback without cancelling the others.
	shared := context.WithoutCancel(ctx)
	ch := c.flight.DoChan(key, func() (any, error) {
		return load[T](shared, c, p, params, key)
	})

	var res any
	var err error
	select {
	case r := <-ch:
		res, err = r.Val, r.Err
	case <-ctx.Done():
		err = fmt.Errorf("%w: %s: %v", ErrRemoteUnavailable, key, ctx.Err())
	}
	if err == nil {
		if l, ok := res.(loaded[T]); ok {
			return Result[T]{Value: l.value, FetchedAt: l.fetchedAt}
		}
		err = fmt.Errorf("%w: %s: shared result has type %T", ErrRemoteUnavailable, key, res)
	}

	c.log.Warn().Err(err).Str("endpoint", p).Str("key", key).Msg("remote unavailable, serving fallback")
	return Result[T]{Value: fallback, Fallback: true}
}

func load[T any](ctx context.Context, c *Client, p string, params map[string]string, key string) (loaded[T], error) {
	body, err := c.do(ctx, http.MethodGet, p, params, nil, c.timeout)
	if err != nil {
		return loaded[T]{}, err
	}

	payload, err := unwrapData(body)
	if err != nil {
		return loaded[T]{}, fmt.Errorf("%w: %s: %v", ErrRemoteUnavailable, p, err)
	}

	if bytes.Equal(bytes.TrimSpace(payload), []byte("null")) {
		return loaded[T]{}, fmt.Errorf("%w: %s: null payload", ErrRemoteUnavailable, p)
	}
	var v T
	if err := json.Unmarshal(payload, &v); err != nil {
		return loaded[T]{}, fmt.Errorf("%w: decode %s: %v", ErrRemoteUnavailable, p, err)
	}

	entry := &cache.Entry{FetchedAt: time.Now(), Body: payload}
	if c.cache != nil {
		if err := c.cache.Write(key, entry); err != nil {
			c.log.Warn().Err(err).Str("key", key).Msg("cache write failed")
		}
	}
	return loaded[T]{value: v, fetchedAt: entry.FetchedAt}, nil
}

// unwrapData returns the "data" member of an object body, or the whole body
// when it is not an object or has no such member.
func unwrapData(body []byte) (json.RawMessage, error) {
	if !json.Valid(body) {
		return nil, fmt.Errorf("response is not JSON")
	}
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err == nil {
		if data, ok := envelope["data"]; ok {
			return data, nil
		}
	}
	return json.RawMessage(body), nil
}

type outcome interface {
	setOutcome(ok bool, err error)
}

// send performs an uncached write. The reply is decoded into out; failures
// are recorded on out instead of being returned. A 2xx reply without an
// explicit "success" member counts as success.
func send(ctx context.Context, c *Client, method, p string, in any, timeout time.Duration, out outcome) {
	body, err := c.do(ctx, method, p, nil, in, timeout)
	if err != nil {
		c.log.Warn().Err(err).Str("method", method).Str("endpoint", p).Msg("backend write failed")
		out.setOutcome(false, err)
		return
	}

	if len(body) == 0 {
		out.setOutcome(true, nil)
		return
	}

	payload, err := unwrapData(body)
	if err != nil {
		err = fmt.Errorf("%w: %s %s: %v", ErrRemoteUnavailable, method, p, err)
		c.log.Warn().Err(err).Msg("backend write failed")
		out.setOutcome(false, err)
		return
	}

	var flag struct {
		Success *bool `json:"success"`
	}
	_ = json.Unmarshal(body, &flag)
	// the envelope may carry success while the fields live under data
	_ = json.Unmarshal(body, out)
	_ = json.Unmarshal(payload, out)

	out.setOutcome(flag.Success == nil || *flag.Success, nil)
}
