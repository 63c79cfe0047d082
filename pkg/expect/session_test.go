package expect_test

import (
	"bufio"
	"context"
	"net"
	"testing"
	"time"

	"github.com/aretw0/horizons/pkg/expect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatch_FirstRuleWins(t *testing.T) {
	rules := []expect.Rule{
		expect.Literal("INPUT ERROR"),
		expect.Pattern(`Horizons>`),
	}

	// Both patterns present: declaration order decides, not position.
	res := expect.Match("Horizons> something INPUT ERROR", rules)
	require.NotNil(t, res)
	assert.Equal(t, 0, res.Index)

	res = expect.Match("Horizons> ", rules)
	require.NotNil(t, res)
	assert.Equal(t, 1, res.Index)

	assert.Nil(t, expect.Match("nothing to see", rules))
}

func TestMatch_Captures(t *testing.T) {
	rules := []expect.Rule{
		expect.Pattern(`File name\s*:\s*(\S+)\s+\(`),
	}
	res := expect.Match("   File name   : 12345.txt   (plain-text)", rules)
	require.NotNil(t, res)
	require.Len(t, res.Captures, 2)
	assert.Equal(t, "12345.txt", res.Captures[1])
}

func TestMatch_BufferConsumedThroughMatch(t *testing.T) {
	rules := []expect.Rule{expect.Literal("ok")}
	res := expect.Match("junk ok trailing", rules)
	require.NotNil(t, res)
	assert.Equal(t, "junk ok", res.Buffer)
}

func TestSession_PartialArrival(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()

	sess := expect.New(client, expect.WithTimeout(2*time.Second))
	defer sess.Close()

	go func() {
		server.Write([]byte("Hori"))
		time.Sleep(20 * time.Millisecond)
		server.Write([]byte("zons> "))
	}()

	res, err := sess.Expect(context.Background(), expect.Literal("Horizons>"))
	require.NoError(t, err)
	assert.Equal(t, 0, res.Index)
}

func TestSession_LeftoverKeptForNextWait(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()

	sess := expect.New(client, expect.WithTimeout(2*time.Second))
	defer sess.Close()

	// Two prompts arriving in a single burst must resolve two waits.
	go server.Write([]byte("first prompt: \nsecond prompt: \n"))

	_, err := sess.Expect(context.Background(), expect.Literal("first prompt:"))
	require.NoError(t, err)

	_, err = sess.Expect(context.Background(), expect.Literal("second prompt:"))
	require.NoError(t, err)
}

func TestSession_Timeout(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()

	sess := expect.New(client, expect.WithTimeout(50*time.Millisecond))
	defer sess.Close()

	_, err := sess.Expect(context.Background(), expect.Literal("never"))
	assert.ErrorIs(t, err, expect.ErrTimeout)
}

func TestSession_RemoteClose(t *testing.T) {
	client, server := net.Pipe()

	sess := expect.New(client, expect.WithTimeout(time.Second))
	defer sess.Close()

	go func() {
		server.Write([]byte("partial"))
		server.Close()
	}()

	_, err := sess.Expect(context.Background(), expect.Literal("never"))
	assert.ErrorIs(t, err, expect.ErrClosed)
}

func TestSession_SendAppendsNewline(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()

	sess := expect.New(client)
	defer sess.Close()

	lines := make(chan string, 1)
	go func() {
		r := bufio.NewReader(server)
		line, _ := r.ReadString('\n')
		lines <- line
	}()

	require.NoError(t, sess.Send("PAGE"))
	select {
	case got := <-lines:
		assert.Equal(t, "PAGE\n", got)
	case <-time.After(time.Second):
		t.Fatal("reply never arrived")
	}
}
