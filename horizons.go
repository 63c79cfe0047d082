package horizons

import (
	"context"
	"log/slog"
	"time"

	"github.com/aretw0/horizons/internal/dialogue"
	"github.com/aretw0/horizons/internal/logging"
	"github.com/aretw0/horizons/internal/transfer"
	"github.com/aretw0/horizons/pkg/domain"
)

// Version is the library version, settable at build time.
var Version = "0.1.0"

// Client runs complete fetches against an ephemeris service and its
// companion file-transfer service. A Client is stateless and safe for
// sequential reuse; every Fetch opens and closes its own connections.
type Client struct {
	dialogueAddr string
	transferAddr string
	transferDir  string
	email        string
	timeout      time.Duration
	logger       *slog.Logger

	sessionDialer  dialogue.Dialer
	transferDialer transfer.Dialer
}

// Option configures a Client.
type Option func(*Client)

// WithDialogueAddr sets the telnet-style service address.
func WithDialogueAddr(addr string) Option {
	return func(c *Client) { c.dialogueAddr = addr }
}

// WithTransferAddr sets the file-transfer control address.
func WithTransferAddr(addr string) Option {
	return func(c *Client) { c.transferAddr = addr }
}

// WithTransferDir sets the remote directory holding generated artifacts.
func WithTransferDir(dir string) Option {
	return func(c *Client) { c.transferDir = dir }
}

// WithEmail sets the contact address used as the anonymous transfer
// credential.
func WithEmail(email string) Option {
	return func(c *Client) { c.email = email }
}

// WithTimeout sets the uniform per-prompt wait timeout for both services.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithSessionDialer injects a dialer for the dialogue connection. Used by
// tests.
func WithSessionDialer(d dialogue.Dialer) Option {
	return func(c *Client) { c.sessionDialer = d }
}

// WithTransferDialer injects a dialer for the transfer connections. Used
// by tests.
func WithTransferDialer(d transfer.Dialer) Option {
	return func(c *Client) { c.transferDialer = d }
}

// New builds a Client with the service defaults.
func New(opts ...Option) *Client {
	c := &Client{
		dialogueAddr: "horizons.jpl.nasa.gov:6775",
		transferAddr: "ssd.jpl.nasa.gov:21",
		transferDir:  "pub/ssd",
		timeout:      15 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logging.NewNop()
	}
	return c
}

// Result describes a completed fetch.
type Result struct {
	// Path is the local file holding the ephemeris table.
	Path string
	// Artifact is the name the remote service gave the generated file.
	Artifact string
	// Trace lists the dialogue states entered, in order.
	Trace []string
}

// Fetch runs the full pipeline for one request: conduct the dialogue,
// then retrieve the generated artifact into dest. An empty dest derives
// the file name from the object designation. The transfer is only
// attempted after the dialogue succeeded; any failure surfaces as a
// classified domain error and leaves no partial file behind.
func (c *Client) Fetch(ctx context.Context, req domain.Request, ov domain.Overrides, dest string) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if dest == "" {
		dest = req.DefaultDest()
	}

	sess := dialogue.New(c.dialogueAddr, req, ov,
		dialogue.WithTimeout(c.timeout),
		dialogue.WithLogger(c.logger),
		dialogue.WithDialer(c.sessionDialer),
	)
	artifact, err := sess.Run(ctx)
	if err != nil {
		return nil, err
	}

	tc := transfer.New(c.transferAddr, c.email,
		transfer.WithDir(c.transferDir),
		transfer.WithTimeout(c.timeout),
		transfer.WithLogger(c.logger),
		transfer.WithDialer(c.transferDialer),
	)
	if err := tc.Retrieve(ctx, artifact, dest); err != nil {
		return nil, err
	}

	return &Result{Path: dest, Artifact: artifact, Trace: sess.Trace()}, nil
}
