package dialogue

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/aretw0/horizons/pkg/domain"
	"github.com/aretw0/horizons/pkg/expect"
)

// Dialogue states, initial to terminal. Recorded in the session trace in
// the order they are entered.
const (
	StateConnecting       = "connecting"
	StatePaging           = "paging"
	StateModeSelect       = "mode_select"
	StateElementEntry     = "element_entry"
	StateFrame            = "frame"
	StateObjectName       = "object_name"
	StateEphemerisType    = "ephemeris_type"
	StateTableType        = "table_type"
	StateCenterEntry      = "center_entry"
	StateCenterResolution = "center_resolution"
	StateStartDate        = "start_date"
	StateDateCheckStart   = "date_validation_start"
	StateDateCheckStop    = "date_validation_stop"
	StateStepSize         = "step_size"
	StateQuantities       = "quantities"
	StateOverrideLoop     = "override_loop"
	StateOutput           = "output"
)

// Dialer opens the line-oriented connection to the remote service.
type Dialer func(ctx context.Context, addr string) (net.Conn, error)

func defaultDialer(timeout time.Duration) Dialer {
	return func(ctx context.Context, addr string) (net.Conn, error) {
		d := net.Dialer{Timeout: timeout}
		return d.DialContext(ctx, "tcp", addr)
	}
}

// Session conducts one request dialogue with the ephemeris service. It owns
// its connection for its lifetime and releases it on every exit path, after
// telling the service to quit. A Session is single-use; it holds no state
// between runs.
type Session struct {
	addr    string
	req     domain.Request
	ov      domain.Overrides
	timeout time.Duration
	logger  *slog.Logger
	dialer  Dialer

	level int
	trace []string
}

// Option configures a Session.
type Option func(*Session)

// WithTimeout sets the uniform per-state wait timeout.
func WithTimeout(d time.Duration) Option {
	return func(s *Session) { s.timeout = d }
}

// WithLogger sets a structured logger for state-level debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) { s.logger = logger }
}

// WithDialer injects a custom dialer, bypassing TCP. Used by hosts that
// already hold a connection and by tests.
func WithDialer(d Dialer) Option {
	return func(s *Session) { s.dialer = d }
}

// New prepares a session for one request. Parameters and overrides are
// immutable for the session's lifetime.
func New(addr string, req domain.Request, ov domain.Overrides, opts ...Option) *Session {
	s := &Session{
		addr:    addr,
		req:     req,
		ov:      ov,
		timeout: 15 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if s.dialer == nil {
		s.dialer = defaultDialer(s.timeout)
	}
	return s
}

// Trace returns the states entered so far, for diagnostics.
func (s *Session) Trace() []string {
	return s.trace
}

// Run conducts the dialogue and returns the remote name of the generated
// artifact. Any failure is terminal: the service is told to quit, the
// connection is closed and a classified domain error is returned. No
// retries happen at any level.
func (s *Session) Run(ctx context.Context) (string, error) {
	s.enter(StateConnecting)
	conn, err := s.dialer(ctx, s.addr)
	if err != nil {
		return "", &domain.Error{
			Kind:   domain.KindNetworkUnavailable,
			State:  StateConnecting,
			Detail: err.Error(),
		}
	}

	es := expect.New(conn, expect.WithTimeout(s.timeout), expect.WithLogger(s.logger))
	defer es.Close()

	artifact, err := s.drive(ctx, es)

	// Clean disconnect on every exit path: the service sees an explicit
	// exit command before the connection is released.
	_ = es.Send(cmdExit)
	return artifact, err
}

func (s *Session) drive(ctx context.Context, es *expect.Session) (string, error) {
	// Banner. No response at all here means the service is unreachable,
	// not slow: report it as a network failure, not a dialogue timeout.
	if _, err := es.Expect(ctx, promptBanner); err != nil {
		if errors.Is(err, expect.ErrTimeout) || errors.Is(err, expect.ErrClosed) {
			return "", &domain.Error{
				Kind:   domain.KindNetworkUnavailable,
				State:  StateConnecting,
				Detail: "no banner from service",
			}
		}
		return "", fmt.Errorf("%s: %w", StateConnecting, err)
	}
	if err := es.Send(cmdStartup); err != nil {
		return "", fmt.Errorf("%s: %w", StateConnecting, err)
	}

	// Paging and mode selection. Wait levels start counting here.
	if _, err := s.wait(ctx, es, StatePaging, promptMain); err != nil {
		return "", err
	}
	if err := es.Send(cmdPage); err != nil {
		return "", fmt.Errorf("%s: %w", StatePaging, err)
	}
	if _, err := s.wait(ctx, es, StateModeSelect, promptMain); err != nil {
		return "", err
	}
	if err := es.Send(cmdNewCase); err != nil {
		return "", fmt.Errorf("%s: %w", StateModeSelect, err)
	}

	// Element entry. The service expects a blank-line terminator after the
	// multi-field element specification.
	if _, err := s.wait(ctx, es, StateElementEntry, promptAnyField); err != nil {
		return "", err
	}
	if err := es.Send(s.req.Elements); err != nil {
		return "", fmt.Errorf("%s: %w", StateElementEntry, err)
	}
	if err := es.Send(""); err != nil {
		return "", fmt.Errorf("%s: %w", StateElementEntry, err)
	}

	// Frame prompt, or element rejection.
	res, err := s.wait(ctx, es, StateFrame, ruleInputError, ruleGenericError, promptEclipticFrame)
	if err != nil {
		return "", err
	}
	switch res.Index {
	case 0, 1:
		return "", &domain.Error{
			Kind:   domain.KindInvalidElements,
			State:  StateFrame,
			Detail: tail(res.Buffer),
		}
	}
	if err := es.Send(cmdFrame); err != nil {
		return "", fmt.Errorf("%s: %w", StateFrame, err)
	}

	// Object name, ephemeris type, table type, coordinate center.
	steps := []struct {
		state  string
		prompt expect.Rule
		reply  string
	}{
		{StateObjectName, promptObjectName, s.req.Object},
		{StateEphemerisType, promptMainMenu, cmdEphemeris},
		{StateTableType, promptTableType, cmdObserve},
		{StateCenterEntry, promptCenter, s.req.Center},
	}
	for _, step := range steps {
		if _, err := s.wait(ctx, es, step.state, step.prompt); err != nil {
			return "", err
		}
		if err := es.Send(step.reply); err != nil {
			return "", fmt.Errorf("%s: %w", step.state, err)
		}
	}

	if err := s.resolveCenter(ctx, es); err != nil {
		return "", err
	}
	if err := s.validateDates(ctx, es); err != nil {
		return "", err
	}
	if err := s.chooseQuantities(ctx, es); err != nil {
		return "", err
	}
	return s.requestArtifact(ctx, es)
}

// resolveCenter consumes the optional confirmation and failure prompts that
// follow the center entry. It exits only after the start time was sent in
// reply to the start-date prompt, wherever that prompt surfaced.
func (s *Session) resolveCenter(ctx context.Context, es *expect.Session) error {
	for {
		res, err := s.wait(ctx, es, StateCenterResolution,
			ruleCannotFindCenter,
			ruleMultipleMatches,
			ruleUniqueSelection,
			promptConfirmCenter,
			promptStartDate,
		)
		if err != nil {
			return err
		}
		switch res.Index {
		case 0:
			return &domain.Error{
				Kind:   domain.KindUnknownCenter,
				State:  StateCenterResolution,
				Value:  s.req.Center,
				Detail: tail(res.Buffer),
			}
		case 1, 2:
			// Both ambiguity wordings collapse into one kind; the service
			// does not distinguish them substantively.
			return &domain.Error{
				Kind:   domain.KindAmbiguousCenter,
				State:  StateCenterResolution,
				Value:  s.req.Center,
				Detail: tail(res.Buffer),
			}
		case 3:
			if err := es.Send(cmdConfirm); err != nil {
				return fmt.Errorf("%s: %w", StateCenterResolution, err)
			}
		case 4:
			s.enter(StateStartDate)
			return es.Send(s.req.Start)
		}
	}
}

// validateDates handles the service's verdict on the start boundary, sends
// the stop boundary, handles its verdict, and replies to the step-size
// prompt, leaving the session at the accept-default branch.
func (s *Session) validateDates(ctx context.Context, es *expect.Session) error {
	res, err := s.wait(ctx, es, StateDateCheckStart, ruleCannotInterpret, ruleNoEphemeris, promptStopDate)
	if err != nil {
		return err
	}
	if err := s.dateVerdict(res, "start", s.req.Start); err != nil {
		return err
	}
	if err := es.Send(s.req.Stop); err != nil {
		return fmt.Errorf("%s: %w", StateDateCheckStart, err)
	}

	res, err = s.wait(ctx, es, StateDateCheckStop, ruleCannotInterpret, ruleNoEphemeris, promptStepSize)
	if err != nil {
		return err
	}
	if err := s.dateVerdict(res, "stop", s.req.Stop); err != nil {
		return err
	}

	s.enter(StateStepSize)
	if err := es.Send(s.req.Step); err != nil {
		return fmt.Errorf("%s: %w", StateStepSize, err)
	}

	res, err = s.wait(ctx, es, StateStepSize, ruleUnknownUnits, ruleProjectedOutput, promptAcceptDefault)
	if err != nil {
		return err
	}
	switch res.Index {
	case 0:
		return &domain.Error{
			Kind:   domain.KindInvalidStepSize,
			State:  StateStepSize,
			Value:  s.req.Step,
			Detail: tail(res.Buffer),
		}
	case 1:
		return &domain.Error{
			Kind:   domain.KindStepSizeRangeExceeded,
			State:  StateStepSize,
			Value:  s.req.Step,
			Detail: tail(res.Buffer),
		}
	}

	// Decline the defaults only when an override is configured; otherwise
	// the settings walkthrough never engages.
	reply := cmdAccept
	if s.ov.Any() {
		reply = cmdDecline
	}
	return es.Send(reply)
}

func (s *Session) dateVerdict(res *expect.Result, field, value string) error {
	state := StateDateCheckStart
	if field == "stop" {
		state = StateDateCheckStop
	}
	switch res.Index {
	case 0:
		return &domain.Error{
			Kind:   domain.KindInvalidDate,
			State:  state,
			Field:  field,
			Value:  value,
			Detail: tail(res.Buffer),
		}
	case 1:
		return &domain.Error{
			Kind:   domain.KindOutOfEphemerisRange,
			State:  state,
			Field:  field,
			Value:  value,
			Detail: tail(res.Buffer),
		}
	}
	return nil
}

// chooseQuantities sends the quantities list and then walks whatever the
// service asks next: quantity rejections, the optional format selection,
// the settings walkthrough, or directly the terminal selection prompt. The
// walkthrough matches prompts by label so arrival order does not matter; an
// unrecognized bracketed default is accepted with a blank reply.
func (s *Session) chooseQuantities(ctx context.Context, es *expect.Session) error {
	if _, err := s.wait(ctx, es, StateQuantities, promptQuantities); err != nil {
		return err
	}
	if err := es.Send(s.req.Quantities); err != nil {
		return fmt.Errorf("%s: %w", StateQuantities, err)
	}

	rules := []expect.Rule{
		ruleUnknownQuantity,
		ruleMustSpecify,
		ruleBadSetting,
		promptTerminalSelect,
		promptFormatSelect,
	}
	base := len(rules)
	for _, p := range overridePrompts {
		rules = append(rules, p.rule)
	}
	rules = append(rules, promptBracketDefault)

	state := StateQuantities
	for {
		res, err := s.wait(ctx, es, state, rules...)
		if err != nil {
			return err
		}
		switch {
		case res.Index == 0:
			return &domain.Error{
				Kind:   domain.KindInvalidQuantities,
				State:  state,
				Value:  s.req.Quantities,
				Detail: tail(res.Buffer),
			}
		case res.Index == 1:
			return &domain.Error{
				Kind:   domain.KindEmptyQuantities,
				State:  state,
				Detail: tail(res.Buffer),
			}
		case res.Index == 2:
			return &domain.Error{
				Kind:   domain.KindInvalidOverride,
				State:  state,
				Detail: tail(res.Buffer),
			}
		case res.Index == 3:
			return nil
		case res.Index == 4:
			if err := es.Send(cmdNewFormat); err != nil {
				return fmt.Errorf("%s: %w", state, err)
			}
		case res.Index < base+len(overridePrompts):
			p := overridePrompts[res.Index-base]
			state = StateOverrideLoop
			s.logger.Debug("settings prompt", "label", p.label)
			if err := es.Send(p.value(s.ov)); err != nil {
				return fmt.Errorf("%s: %w", state, err)
			}
		default:
			// Forward compatibility: accept the default of a prompt the
			// catalog does not recognize.
			state = StateOverrideLoop
			if err := es.Send(""); err != nil {
				return fmt.Errorf("%s: %w", state, err)
			}
		}
	}
}

// requestArtifact asks the service to write the output file and captures
// the remote name it reports.
func (s *Session) requestArtifact(ctx context.Context, es *expect.Session) (string, error) {
	s.enter(StateOutput)
	if err := es.Send(cmdGenerate); err != nil {
		return "", fmt.Errorf("%s: %w", StateOutput, err)
	}
	res, err := s.wait(ctx, es, StateOutput, ruleArtifactName)
	if err != nil {
		return "", err
	}
	artifact := res.Captures[1]
	s.logger.Info("artifact generated", "name", artifact)
	return artifact, nil
}

// wait runs one bounded expectation, recording the state in the trace and
// mapping expiry to a timeout error carrying the originating wait level.
func (s *Session) wait(ctx context.Context, es *expect.Session, state string, rules ...expect.Rule) (*expect.Result, error) {
	s.enter(state)
	s.level++
	res, err := es.Expect(ctx, rules...)
	if err == nil {
		return res, nil
	}
	switch {
	case errors.Is(err, expect.ErrTimeout):
		return nil, &domain.Error{
			Kind:  domain.KindRemoteTimeout,
			State: state,
			Level: s.level,
		}
	case errors.Is(err, expect.ErrClosed):
		return nil, &domain.Error{
			Kind:   domain.KindRemoteTimeout,
			State:  state,
			Level:  s.level,
			Detail: "connection closed by remote",
		}
	}
	return nil, fmt.Errorf("%s: %w", state, err)
}

func (s *Session) enter(state string) {
	if n := len(s.trace); n > 0 && s.trace[n-1] == state {
		return
	}
	s.trace = append(s.trace, state)
	s.logger.Debug("state", "name", state)
}

// tail trims remote diagnostic text to a reportable size.
func tail(text string) string {
	text = strings.TrimSpace(text)
	if len(text) > 160 {
		text = text[len(text)-160:]
	}
	return text
}
