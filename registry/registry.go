/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package registry correlates asynchronous FIX responses with the requests
// that are waiting for them.
//
// Concurrency Model:
// - Callers Register an id before dispatching and Wait on the returned Pending
// - The engine's callback goroutines Complete or Fail by id
// - Timeouts Abandon their own entry so late responses find nothing
//
// Every path that finishes an entry removes it from the table first with an
// atomic sync.Map operation (LoadAndDelete or CompareAndDelete) and only then
// completes it, so a given entry is completed and removed exactly once.
package registry

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/HappyCodeDog/fix-gateway/logging"

	"go.uber.org/zap"
)

var (
	ErrDuplicateID = errors.New("registry: correlation id already registered")
	ErrExpired     = errors.New("registry: pending response expired")
)

// Pending is a single-completion slot for one correlation id.
type Pending[T any] struct {
	id        string
	createdAt time.Time

	once  sync.Once
	done  chan struct{}
	value T
	err   error
}

func newPending[T any](id string, now time.Time) *Pending[T] {
	return &Pending[T]{id: id, createdAt: now, done: make(chan struct{})}
}

func (p *Pending[T]) ID() string           { return p.id }
func (p *Pending[T]) CreatedAt() time.Time { return p.createdAt }

// Done is closed once the entry is completed.
func (p *Pending[T]) Done() <-chan struct{} { return p.done }

// complete assigns the outcome if none was assigned yet.
func (p *Pending[T]) complete(value T, err error) bool {
	completed := false
	p.once.Do(func() {
		p.value = value
		p.err = err
		completed = true
		close(p.done)
	})
	return completed
}

// Wait blocks until the entry completes or ctx ends. A ctx error does not
// complete the entry; callers Abandon it through the registry.
func (p *Pending[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-p.done:
		return p.value, p.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Completed reports whether an outcome has been assigned.
func (p *Pending[T]) Completed() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// Outcome returns the assigned value and error. It blocks until the entry
// completes.
func (p *Pending[T]) Outcome() (T, error) {
	<-p.done
	return p.value, p.err
}

// Observer receives registry events. Any method may be called concurrently.
type Observer interface {
	PendingChanged(delta int)
	Unmatched()
	Expired(n int)
}

// Registry is a concurrent table from correlation id to Pending.
type Registry[T any] struct {
	entries  sync.Map // string -> *Pending[T]
	size     atomic.Int64
	now      func() time.Time
	logger   *zap.Logger
	observer Observer
}

type Option[T any] func(*Registry[T])

// WithClock overrides time.Now, for tests.
func WithClock[T any](now func() time.Time) Option[T] {
	return func(r *Registry[T]) { r.now = now }
}

func WithObserver[T any](o Observer) Option[T] {
	return func(r *Registry[T]) { r.observer = o }
}

func New[T any](logger *zap.Logger, opts ...Option[T]) *Registry[T] {
	r := &Registry[T]{now: time.Now, logger: logging.OrNop(logger).Named("registry")}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register creates the pending entry for id. It must be called before the
// request carrying id is dispatched.
func (r *Registry[T]) Register(id string) (*Pending[T], error) {
	p := newPending[T](id, r.now())
	if _, loaded := r.entries.LoadOrStore(id, p); loaded {
		return nil, ErrDuplicateID
	}
	r.changed(1)
	return p, nil
}

// LookupAndRemove atomically removes and returns the entry for id without
// completing it.
func (r *Registry[T]) LookupAndRemove(id string) (*Pending[T], bool) {
	v, ok := r.entries.LoadAndDelete(id)
	if !ok {
		return nil, false
	}
	r.changed(-1)
	return v.(*Pending[T]), true
}

// Complete delivers value to the request waiting on id. Unknown ids, including
// ids already completed or abandoned, are logged and dropped.
func (r *Registry[T]) Complete(id string, value T) bool {
	return r.finish(id, value, nil)
}

// Fail delivers err to the request waiting on id.
func (r *Registry[T]) Fail(id string, err error) bool {
	var zero T
	return r.finish(id, zero, err)
}

func (r *Registry[T]) finish(id string, value T, err error) bool {
	p, ok := r.LookupAndRemove(id)
	if !ok {
		r.logger.Warn("unmatched response dropped", zap.String("correlation_id", id))
		if r.observer != nil {
			r.observer.Unmatched()
		}
		return false
	}
	return p.complete(value, err)
}

// Abandon removes p if it is still registered and completes it with cause. It
// returns false when a response completed p first; p.Outcome then holds that
// response.
func (r *Registry[T]) Abandon(p *Pending[T], cause error) bool {
	if r.entries.CompareAndDelete(p.id, p) {
		r.changed(-1)
	}
	var zero T
	return p.complete(zero, cause)
}

// Sweep expires entries older than maxAge and returns how many it removed.
func (r *Registry[T]) Sweep(maxAge time.Duration) int {
	cutoff := r.now().Add(-maxAge)
	expired := 0
	r.entries.Range(func(key, v any) bool {
		p := v.(*Pending[T])
		if p.createdAt.After(cutoff) {
			return true
		}
		if r.entries.CompareAndDelete(key, p) {
			r.changed(-1)
			var zero T
			if p.complete(zero, ErrExpired) {
				expired++
			}
		}
		return true
	})
	if expired > 0 {
		r.logger.Info("expired pending responses", zap.Int("count", expired), zap.Duration("max_age", maxAge))
		if r.observer != nil {
			r.observer.Expired(expired)
		}
	}
	return expired
}

// Run sweeps every interval until ctx is done.
func (r *Registry[T]) Run(ctx context.Context, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep(maxAge)
		}
	}
}

// Len returns the number of registered entries.
func (r *Registry[T]) Len() int {
	return int(r.size.Load())
}

func (r *Registry[T]) changed(delta int) {
	r.size.Add(int64(delta))
	if r.observer != nil {
		r.observer.PendingChanged(delta)
	}
}
