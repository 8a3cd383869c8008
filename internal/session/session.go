// Package session replaces the teacher's ambient global configuration
// (one process-wide audio/config state threaded implicitly through
// every call) with an explicit Session value carrying the structured
// logger, a correlation ID for the run, and graceful-shutdown plumbing.
package session

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// Session is handed to every long-lived component (driver, segmenter,
// sinks) instead of reaching for package-level state.
type Session struct {
	ID  string
	Log *log.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	closers   []func() error
	closeOnce sync.Once
}

// New builds a Session with a fresh correlation ID, a logger at level,
// and a context cancelled on SIGINT/SIGTERM (and, where the platform
// defines it, SIGPIPE — a stream destination going away mid-write
// should end the session, not crash it).
func New(level log.Level) *Session {
	id := uuid.New().String()

	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "juliusgo",
	})
	logger.SetLevel(level)
	logger = logger.With("session", id)

	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM, syscall.SIGPIPE)

	return &Session{
		ID:     id,
		Log:    logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Context is cancelled once a shutdown signal arrives or Close runs.
func (s *Session) Context() context.Context { return s.ctx }

// Done reports whether the session has begun shutting down.
func (s *Session) Done() <-chan struct{} { return s.ctx.Done() }

// OnClose registers fn to run, in LIFO order, when Close is called.
// Drivers and sinks use this to release descriptors without every
// caller having to remember the teardown order by hand.
func (s *Session) OnClose(fn func() error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closers = append(s.closers, fn)
}

// Close cancels the session context and runs every registered closer,
// most-recently-registered first, collecting (not short-circuiting on)
// errors.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.cancel()

		s.mu.Lock()
		closers := s.closers
		s.closers = nil
		s.mu.Unlock()

		for i := len(closers) - 1; i >= 0; i-- {
			if cerr := closers[i](); cerr != nil && err == nil {
				err = cerr
			}
		}
	})
	return err
}
