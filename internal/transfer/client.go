package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/aretw0/horizons/pkg/domain"
	"github.com/aretw0/horizons/pkg/expect"
)

// The transfer service authenticates anonymous sessions against a contact
// address. The address is sent exactly as configured; escaping is the
// caller's concern.
const anonymousUser = "anonymous"

// Dialer opens a connection to the transfer service. The same dialer is
// used for the control and the passive data connection.
type Dialer func(ctx context.Context, addr string) (net.Conn, error)

func defaultDialer(timeout time.Duration) Dialer {
	return func(ctx context.Context, addr string) (net.Conn, error) {
		d := net.Dialer{Timeout: timeout}
		return d.DialContext(ctx, "tcp", addr)
	}
}

// Client retrieves one generated artifact per call from the file-transfer
// service. Each retrieval is an independent session: connect, authenticate,
// change to the artifact directory, fetch, disconnect.
type Client struct {
	addr    string
	email   string
	dir     string
	timeout time.Duration
	logger  *slog.Logger
	dialer  Dialer
}

// Option configures a Client.
type Option func(*Client)

// WithDir sets the remote artifact directory.
func WithDir(dir string) Option {
	return func(c *Client) { c.dir = dir }
}

// WithTimeout sets the per-reply wait timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithDialer injects a custom dialer, used by tests.
func WithDialer(d Dialer) Option {
	return func(c *Client) { c.dialer = d }
}

// New builds a transfer client for the given control address, using email
// as the anonymous credential.
func New(addr, email string, opts ...Option) *Client {
	c := &Client{
		addr:    addr,
		email:   email,
		dir:     "pub/ssd",
		timeout: 15 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if c.dialer == nil {
		c.dialer = defaultDialer(c.timeout)
	}
	return c
}

// Reply-code patterns of the control channel.
var (
	replyReady    = expect.Pattern(`(?m)^220[ -]`)
	replyNeedPass = expect.Pattern(`(?m)^331[ -]`)
	replyLoggedIn = expect.Pattern(`(?m)^230[ -]`)
	replyDenied   = expect.Pattern(`(?m)^530[ -]|Login failed|Login incorrect`)
	replyTypeSet  = expect.Pattern(`(?m)^200[ -]`)
	replyCwdOK    = expect.Pattern(`(?m)^250[ -]`)
	replyPassive  = expect.Pattern(`227[^(]*\((\d+),(\d+),(\d+),(\d+),(\d+),(\d+)\)`)
	replyOpening  = expect.Pattern(`(?m)^1[25]0[ -]`)
	replyMissing  = expect.Pattern(`(?m)^550[ -]|No such`)
	replyComplete = expect.Pattern(`(?m)^226[ -]`)
)

// Retrieve fetches the named artifact into dest. On any failure the control
// connection is closed and no partial file is left at dest.
func (c *Client) Retrieve(ctx context.Context, artifact, dest string) error {
	conn, err := c.dialer(ctx, c.addr)
	if err != nil {
		return &domain.Error{
			Kind:   domain.KindTransferUnavailable,
			State:  "dial",
			Detail: err.Error(),
		}
	}
	es := expect.New(conn, expect.WithTimeout(c.timeout), expect.WithLogger(c.logger))
	defer es.Close()

	err = c.retrieve(ctx, es, artifact, dest)
	// Best-effort polite disconnect on every exit path.
	_ = es.Send("QUIT")
	return err
}

func (c *Client) retrieve(ctx context.Context, es *expect.Session, artifact, dest string) error {
	if _, err := c.await(ctx, es, "greeting", replyReady); err != nil {
		return err
	}

	// Anonymous login.
	if err := es.Send("USER " + anonymousUser); err != nil {
		return fmt.Errorf("transfer: %w", err)
	}
	res, err := c.await(ctx, es, "auth", replyNeedPass, replyLoggedIn, replyDenied)
	if err != nil {
		return err
	}
	if res.Index == 2 {
		return &domain.Error{Kind: domain.KindAuthenticationFailed, State: "auth", Detail: tail(res.Buffer)}
	}
	if res.Index == 0 {
		if err := es.Send("PASS " + c.email); err != nil {
			return fmt.Errorf("transfer: %w", err)
		}
		res, err = c.await(ctx, es, "password", replyLoggedIn, replyDenied)
		if err != nil {
			return err
		}
		if res.Index == 1 {
			return &domain.Error{Kind: domain.KindAuthenticationFailed, State: "password", Detail: tail(res.Buffer)}
		}
	}

	// Binary mode, artifact directory.
	if err := es.Send("TYPE I"); err != nil {
		return fmt.Errorf("transfer: %w", err)
	}
	if _, err := c.await(ctx, es, "type", replyTypeSet); err != nil {
		return err
	}
	if err := es.Send("CWD " + c.dir); err != nil {
		return fmt.Errorf("transfer: %w", err)
	}
	if _, err := c.await(ctx, es, "cwd", replyCwdOK); err != nil {
		return err
	}

	// Passive data channel.
	if err := es.Send("PASV"); err != nil {
		return fmt.Errorf("transfer: %w", err)
	}
	res, err = c.await(ctx, es, "passive", replyPassive)
	if err != nil {
		return err
	}
	dataAddr, err := passiveAddr(res.Captures)
	if err != nil {
		return &domain.Error{Kind: domain.KindTransferUnavailable, State: "passive", Detail: err.Error()}
	}
	data, err := c.dialer(ctx, dataAddr)
	if err != nil {
		return &domain.Error{Kind: domain.KindTransferUnavailable, State: "passive", Detail: err.Error()}
	}
	defer data.Close()

	// Retrieval.
	if err := es.Send("RETR " + artifact); err != nil {
		return fmt.Errorf("transfer: %w", err)
	}
	res, err = c.await(ctx, es, "retrieve", replyMissing, replyOpening)
	if err != nil {
		return err
	}
	if res.Index == 0 {
		return &domain.Error{
			Kind:   domain.KindArtifactNotFound,
			State:  "retrieve",
			Value:  artifact,
			Detail: tail(res.Buffer),
		}
	}

	// Spool into a temp file so a failed transfer never leaves a partial
	// artifact at dest.
	out, err := os.CreateTemp(filepath.Dir(dest), ".horizons-*")
	if err != nil {
		return fmt.Errorf("create spool file: %w", err)
	}
	tmp := out.Name()
	defer os.Remove(tmp)

	data.SetReadDeadline(time.Now().Add(c.timeout))
	n, err := io.Copy(out, data)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return &domain.Error{Kind: domain.KindTransferUnavailable, State: "data", Detail: err.Error()}
	}
	c.logger.Debug("artifact received", "name", artifact, "bytes", n)

	if _, err := c.await(ctx, es, "complete", replyComplete); err != nil {
		return err
	}
	if err := os.Rename(tmp, dest); err != nil {
		return fmt.Errorf("place artifact: %w", err)
	}
	c.logger.Info("artifact retrieved", "name", artifact, "dest", dest)
	return nil
}

func (c *Client) await(ctx context.Context, es *expect.Session, state string, rules ...expect.Rule) (*expect.Result, error) {
	res, err := es.Expect(ctx, rules...)
	if err == nil {
		return res, nil
	}
	if errors.Is(err, expect.ErrTimeout) || errors.Is(err, expect.ErrClosed) {
		return nil, &domain.Error{
			Kind:   domain.KindTransferUnavailable,
			State:  state,
			Detail: err.Error(),
		}
	}
	return nil, fmt.Errorf("transfer %s: %w", state, err)
}

// passiveAddr decodes the six numbers of a passive-mode reply.
func passiveAddr(captures []string) (string, error) {
	if len(captures) != 7 {
		return "", fmt.Errorf("malformed passive reply")
	}
	nums := make([]int, 6)
	for i := 0; i < 6; i++ {
		n, err := strconv.Atoi(captures[i+1])
		if err != nil {
			return "", fmt.Errorf("malformed passive reply: %w", err)
		}
		nums[i] = n
	}
	host := fmt.Sprintf("%d.%d.%d.%d", nums[0], nums[1], nums[2], nums[3])
	port := nums[4]*256 + nums[5]
	return net.JoinHostPort(host, strconv.Itoa(port)), nil
}

func tail(text string) string {
	if len(text) > 160 {
		text = text[len(text)-160:]
	}
	return text
}
