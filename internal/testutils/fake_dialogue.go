package testutils

import (
	"bufio"
	"context"
	"net"
	"strings"
	"sync"
	"testing"

	"github.com/aretw0/horizons/internal/dialogue"
	"github.com/aretw0/horizons/pkg/domain"
)

// Exchange is one scripted turn of the fake ephemeris service: text written
// to the client, followed by the reply lines the client is expected to send.
type Exchange struct {
	Send  string
	Wants []string
}

// FakeDialogue plays a fixed script on the service side of an in-memory
// connection. It records every reply line and whether the client issued the
// exit command before the connection closed.
type FakeDialogue struct {
	t      *testing.T
	script []Exchange

	mu      sync.Mutex
	dialed  bool
	replies []string
	sawExit bool
	done    chan struct{}
}

// NewFakeDialogue builds a fake service for one session run. The serving
// goroutine is joined before the test finishes so it can never report
// failures into a dead test.
func NewFakeDialogue(t *testing.T, script []Exchange) *FakeDialogue {
	f := &FakeDialogue{
		t:      t,
		script: script,
		done:   make(chan struct{}),
	}
	t.Cleanup(func() {
		if f.Dialed() {
			<-f.done
		}
	})
	return f
}

// Dialer returns a dialer handing the client its end of a pipe and serving
// the script on the other end.
func (f *FakeDialogue) Dialer() dialogue.Dialer {
	return func(ctx context.Context, addr string) (net.Conn, error) {
		client, server := net.Pipe()
		f.mu.Lock()
		f.dialed = true
		f.mu.Unlock()
		go f.serve(server)
		return client, nil
	}
}

// Dialed reports whether the client ever opened the connection.
func (f *FakeDialogue) Dialed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dialed
}

// SawExit blocks until the connection closed and reports whether the client
// sent the exit command first.
func (f *FakeDialogue) SawExit() bool {
	<-f.done
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sawExit
}

// Replies blocks until the connection closed and returns every line the
// client sent.
func (f *FakeDialogue) Replies() []string {
	<-f.done
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.replies...)
}

func (f *FakeDialogue) serve(conn net.Conn) {
	defer close(f.done)
	defer conn.Close()

	r := bufio.NewReader(conn)
	for _, ex := range f.script {
		if ex.Send != "" {
			if _, err := conn.Write([]byte(ex.Send)); err != nil {
				return
			}
		}
		for _, want := range ex.Wants {
			line, err := r.ReadString('\n')
			if err != nil {
				return
			}
			line = strings.TrimRight(line, "\r\n")
			f.record(line)
			if line == "x" && want != "x" {
				// Client unwound early: an exit mid-script is a clean
				// disconnect, not a script violation.
				f.markExit()
				return
			}
			if line != want {
				f.t.Errorf("fake dialogue: got reply %q, want %q", line, want)
			}
		}
	}

	// Script exhausted: drain until the client hangs up, watching for the
	// exit command.
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimRight(line, "\r\n")
		f.record(line)
		if line == "x" {
			f.markExit()
		}
	}
}

func (f *FakeDialogue) record(line string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies = append(f.replies, line)
}

func (f *FakeDialogue) markExit() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sawExit = true
}

// HappyScript scripts a full dialogue that accepts every value and reports
// the given artifact name. Override prompts are omitted: the client is
// expected to accept the default output wholesale.
func HappyScript(req domain.Request, artifact string) []Exchange {
	return []Exchange{
		{Send: "JPL Horizons, version 4.70\nSystem ready.\nHorizons> ", Wants: []string{"", "PAGE"}},
		{Send: "Horizons> ", Wants: []string{";"}},
		{Send: " Input heliocentric ecliptic osculating elements : ", Wants: []string{req.Elements, ""}},
		{Send: " Ecliptic frame of input [J2000, B1950] : ", Wants: []string{"J2000"}},
		{Send: " Optional name of object [e.g.= 1 Ceres] : ", Wants: []string{req.Object}},
		{Send: " Select ... [E]phemeris, [F]tp, [M]ail, [R]edisplay, ? : ", Wants: []string{"E"}},
		{Send: " Observe, Elements, Vectors  [o,e,v,?] : ", Wants: []string{"o"}},
		{Send: " Coordinate center [ <id>,coord,geo ] : ", Wants: []string{req.Center}},
		{Send: " Starting UT  [>=   1599-Dec-11 23:59] : ", Wants: []string{req.Start}},
		{Send: " Ending   UT  [<=   2500-Jan-04 23:58] : ", Wants: []string{req.Stop}},
		{Send: " Output interval [ex: 10m, 1h, 1d, ? ] : ", Wants: []string{req.Step}},
		{Send: " Accept default output [ cr=(y), n, ?] : ", Wants: []string{"y"}},
		{Send: " Select table quantities [ <#,#..>, ?] : ", Wants: []string{req.Quantities}},
		{Send: "Working ...\n>>> Select... [A]gain, [N]ew-case, [F]tp, [K]ermit, [M]ail, [R]edisplay, ? : ", Wants: []string{"F"}},
		{Send: "* Transferring file(s) to your anonymous FTP login area:\n*   File name   : " + artifact + "   (plain-text)\n"},
	}
}
