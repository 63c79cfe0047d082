package testutils

import (
	"bufio"
	"fmt"
	"net"
	"strings"
	"sync"
	"testing"
)

// FakeFTP is a minimal anonymous FTP server backed by an in-memory file
// set. It supports exactly the command sequence the transfer client issues:
// USER, PASS, TYPE, CWD, PASV, RETR, QUIT.
type FakeFTP struct {
	t     *testing.T
	ln    net.Listener
	files map[string][]byte

	mu       sync.Mutex
	failAuth bool
	conns    int
	quits    int
}

// NewFakeFTP starts the server on a loopback port. It is shut down with the
// test.
func NewFakeFTP(t *testing.T, files map[string][]byte) *FakeFTP {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("fake ftp: listen: %v", err)
	}
	f := &FakeFTP{t: t, ln: ln, files: files}
	t.Cleanup(func() { ln.Close() })
	go f.acceptLoop()
	return f
}

// Addr returns the control-channel address to dial.
func (f *FakeFTP) Addr() string {
	return f.ln.Addr().String()
}

// FailAuth makes every login attempt fail.
func (f *FakeFTP) FailAuth() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failAuth = true
}

// Connections returns how many control connections were accepted.
func (f *FakeFTP) Connections() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.conns
}

// Quits returns how many sessions ended with an explicit QUIT.
func (f *FakeFTP) Quits() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.quits
}

func (f *FakeFTP) acceptLoop() {
	for {
		conn, err := f.ln.Accept()
		if err != nil {
			return
		}
		f.mu.Lock()
		f.conns++
		f.mu.Unlock()
		go f.serve(conn)
	}
}

func (f *FakeFTP) serve(conn net.Conn) {
	defer conn.Close()

	write := func(line string) bool {
		_, err := conn.Write([]byte(line + "\r\n"))
		return err == nil
	}
	if !write("220 Fake transfer service ready.") {
		return
	}

	var dataLn net.Listener
	defer func() {
		if dataLn != nil {
			dataLn.Close()
		}
	}()

	r := bufio.NewReader(conn)
	for {
		raw, err := r.ReadString('\n')
		if err != nil {
			return
		}
		cmd, arg, _ := strings.Cut(strings.TrimRight(raw, "\r\n"), " ")
		switch strings.ToUpper(cmd) {
		case "USER":
			write("331 Anonymous login ok, send your email as password.")
		case "PASS":
			f.mu.Lock()
			denied := f.failAuth
			f.mu.Unlock()
			if denied {
				write("530 Login failed.")
			} else {
				write("230 Login successful.")
			}
		case "TYPE":
			write("200 Type set to I.")
		case "CWD":
			write("250 Directory successfully changed.")
		case "PASV":
			dataLn, err = net.Listen("tcp", "127.0.0.1:0")
			if err != nil {
				f.t.Errorf("fake ftp: data listen: %v", err)
				return
			}
			port := dataLn.Addr().(*net.TCPAddr).Port
			write(fmt.Sprintf("227 Entering Passive Mode (127,0,0,1,%d,%d).", port/256, port%256))
		case "RETR":
			content, ok := f.files[arg]
			if !ok {
				write("550 No such file or directory.")
				continue
			}
			if dataLn == nil {
				write("425 Use PASV first.")
				continue
			}
			write("150 Opening BINARY mode data connection.")
			dconn, err := dataLn.Accept()
			if err != nil {
				f.t.Errorf("fake ftp: data accept: %v", err)
				return
			}
			dconn.Write(content)
			dconn.Close()
			dataLn.Close()
			dataLn = nil
			write("226 Transfer complete.")
		case "QUIT":
			f.mu.Lock()
			f.quits++
			f.mu.Unlock()
			write("221 Goodbye.")
			return
		default:
			write("502 Command not implemented.")
		}
	}
}
