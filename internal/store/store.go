// Package store implements a unidirectional state container: actions are
// queued, a single consumer applies the reducer, and epics turn actions into
// follow-up actions from their own goroutines.
package store

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

var (
	ErrClosed  = errors.New("store: closed")
	ErrRunning = errors.New("store: already running")
)

const defaultQueueSize = 256

// Action is a tagged intent or event. Slices seal their own variant sets.
type Action interface {
	Type() string
}

// Reducer maps (state, action) to the next state. It must not mutate its input.
type Reducer[S any] func(S, Action) S

// Epic observes one dispatched action together with the state that action
// produced, and returns the actions it leads to. Returned actions are
// dispatched in order.
type Epic[S any] func(ctx context.Context, a Action, state S) []Action

// OfType restricts fn to actions of concrete type A.
func OfType[S any, A Action](fn func(ctx context.Context, a A, state S) []Action) Epic[S] {
	return func(ctx context.Context, a Action, state S) []Action {
		act, ok := a.(A)
		if !ok {
			return nil
		}
		return fn(ctx, act, state)
	}
}

// Combine merges the epic sets of several slices.
func Combine[S any](sets ...[]Epic[S]) []Epic[S] {
	var out []Epic[S]
	for _, set := range sets {
		out = append(out, set...)
	}
	return out
}

// Focus lifts epics written against part T of a state tree to the whole tree S.
func Focus[S, T any](part func(S) T, epics []Epic[T]) []Epic[S] {
	out := make([]Epic[S], 0, len(epics))
	for _, e := range epics {
		e := e // per-iteration copy; go 1.21 shares loop variables across closures
		out = append(out, func(ctx context.Context, a Action, state S) []Action {
			return e(ctx, a, part(state))
		})
	}
	return out
}

type Option func(*options)

type options struct {
	log       zerolog.Logger
	queueSize int
}

func WithLogger(l zerolog.Logger) Option { return func(o *options) { o.log = l } }

func WithQueueSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.queueSize = n
		}
	}
}

// Store owns one state tree. Construct one per process, request or test.
type Store[S any] struct {
	reducer Reducer[S]
	epics   []Epic[S]
	log     zerolog.Logger

	queue     chan Action
	done      chan struct{}
	closeOnce sync.Once
	running   atomic.Bool

	mu      sync.Mutex // guards state and subs
	state   S
	subs    map[int]chan S
	nextSub int

	flight   sync.Mutex // guards inflight, idle and closed
	inflight int
	idle     chan struct{}
	closed   bool
	sending  sync.WaitGroup
}

func New[S any](initial S, reducer Reducer[S], epics []Epic[S], opts ...Option) *Store[S] {
	o := options{log: zerolog.Nop(), queueSize: defaultQueueSize}
	for _, opt := range opts {
		opt(&o)
	}
	return &Store[S]{
		reducer: reducer,
		epics:   epics,
		log:     o.log,
		queue:   make(chan Action, o.queueSize),
		done:    make(chan struct{}),
		state:   initial,
		subs:    make(map[int]chan S),
	}
}

// State returns the current state snapshot.
func (s *Store[S]) State() S {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Dispatch enqueues a. It blocks while the queue is full.
func (s *Store[S]) Dispatch(a Action) error {
	if !s.enter() {
		return ErrClosed
	}
	defer s.sending.Done()
	select {
	case s.queue <- a:
		return nil
	case <-s.done:
		s.end()
		return ErrClosed
	}
}

// Run consumes the queue until ctx is cancelled. Only one transition is
// applied at a time; epics run concurrently and dispatch back onto the queue.
func (s *Store[S]) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrRunning
	}

	var wg sync.WaitGroup
	defer func() {
		s.close()
		wg.Wait()
		s.sending.Wait()
		s.drain()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case a := <-s.queue:
			state := s.apply(a)
			for _, epic := range s.epics {
				s.begin()
				wg.Add(1)
				go func(epic Epic[S]) {
					defer wg.Done()
					defer s.end()
					for _, next := range epic(ctx, a, state) {
						if err := s.Dispatch(next); err != nil {
							return
						}
					}
				}(epic)
			}
			s.end()
		}
	}
}

// Subscribe returns a channel that always holds the latest state. The current
// state is delivered immediately. Call the returned func to unsubscribe.
func (s *Store[S]) Subscribe() (<-chan S, func()) {
	ch := make(chan S, 1)

	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	ch <- s.state
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			close(ch)
			s.mu.Unlock()
		})
	}
}

// Settle blocks until no action is queued and no epic is running.
func (s *Store[S]) Settle(ctx context.Context) error {
	s.flight.Lock()
	if s.inflight == 0 {
		s.flight.Unlock()
		return nil
	}
	idle := s.idle
	s.flight.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return ErrClosed
	}
}

func (s *Store[S]) apply(a Action) S {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = s.reducer(s.state, a)
	s.log.Debug().Str("action", a.Type()).Msg("applied")
	for _, ch := range s.subs {
		offer(ch, s.state)
	}
	return s.state
}

// offer replaces any unread snapshot in ch with next.
func offer[S any](ch chan S, next S) {
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- next:
	default:
	}
}

// enter registers a Dispatch call. It fails once Run has begun shutting down,
// so no action can be queued after the final drain.
func (s *Store[S]) enter() bool {
	s.flight.Lock()
	defer s.flight.Unlock()
	if s.closed {
		return false
	}
	s.sending.Add(1)
	s.add()
	return true
}

func (s *Store[S]) close() {
	s.flight.Lock()
	defer s.flight.Unlock()
	s.closed = true
	s.closeOnce.Do(func() { close(s.done) })
}

func (s *Store[S]) begin() {
	s.flight.Lock()
	defer s.flight.Unlock()
	s.add()
}

// add must be called with flight held.
func (s *Store[S]) add() {
	if s.inflight == 0 {
		s.idle = make(chan struct{})
	}
	s.inflight++
}

func (s *Store[S]) end() {
	s.flight.Lock()
	defer s.flight.Unlock()
	s.inflight--
	if s.inflight == 0 {
		close(s.idle)
	}
}

// drain discards actions left behind after Run stopped.
func (s *Store[S]) drain() {
	for {
		select {
		case a := <-s.queue:
			s.log.Debug().Str("action", a.Type()).Msg("dropped after close")
			s.end()
		default:
			return
		}
	}
}
