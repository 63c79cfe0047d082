package expect

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"
)

// ErrTimeout is returned by Expect when no rule matched within the wait's
// timeout. Callers map it to their own taxonomy (the wait level is theirs
// to track).
var ErrTimeout = errors.New("timed out waiting for prompt")

// ErrClosed is returned when the remote side closes the connection while a
// wait is still unresolved.
var ErrClosed = errors.New("connection closed while waiting for prompt")

// Session drives one line-oriented dialogue over a single connection. It
// owns the connection for its lifetime and accumulates remote output
// between waits: text arriving after a match is kept for the next Expect,
// so a remote service writing several prompts in one burst does not
// desynchronize the dialogue.
//
// At most one wait is active at a time; Session is not safe for concurrent
// use.
type Session struct {
	conn    net.Conn
	timeout time.Duration
	logger  *slog.Logger
	buf     []byte
}

// Option configures a Session.
type Option func(*Session)

// WithTimeout sets the per-wait timeout. Default is 15 seconds.
func WithTimeout(d time.Duration) Option {
	return func(s *Session) {
		s.timeout = d
	}
}

// WithLogger sets a structured logger for wire-level debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// New wraps an established connection. Establishing the connection itself
// is the caller's concern.
func New(conn net.Conn, opts ...Option) *Session {
	s := &Session{
		conn:    conn,
		timeout: 15 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return s
}

// Expect blocks until one of the rules matches the accumulated remote
// output or the wait times out. On a match, the buffer is consumed through
// the end of the match; the remainder is kept for the next wait.
func (s *Session) Expect(ctx context.Context, rules ...Rule) (*Result, error) {
	deadline := time.Now().Add(s.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	chunk := make([]byte, 4096)
	for {
		if res := Match(string(s.buf), rules); res != nil {
			s.buf = s.buf[len(res.Buffer):]
			s.logger.Debug("prompt matched", "rule", rules[res.Index].String())
			return res, nil
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !time.Now().Before(deadline) {
			return nil, ErrTimeout
		}

		if err := s.conn.SetReadDeadline(deadline); err != nil {
			return nil, fmt.Errorf("set read deadline: %w", err)
		}
		n, err := s.conn.Read(chunk)
		if n > 0 {
			s.buf = append(s.buf, chunk[:n]...)
			s.logger.Debug("remote output", "bytes", n)
		}
		if err != nil {
			// Check what arrived with the error before classifying it.
			if res := Match(string(s.buf), rules); res != nil {
				s.buf = s.buf[len(res.Buffer):]
				return res, nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				return nil, ErrTimeout
			}
			if errors.Is(err, io.EOF) {
				return nil, ErrClosed
			}
			return nil, err
		}
	}
}

// Send writes one reply line. A blank line accepts a bracketed default.
func (s *Session) Send(line string) error {
	s.logger.Debug("send", "line", line)
	if _, err := s.conn.Write([]byte(line + "\n")); err != nil {
		return fmt.Errorf("send %q: %w", line, err)
	}
	return nil
}

// Close releases the connection. Safe to call on every exit path.
func (s *Session) Close() error {
	return s.conn.Close()
}
