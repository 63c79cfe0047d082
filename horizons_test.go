package horizons_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	horizons "github.com/aretw0/horizons"
	"github.com/aretw0/horizons/internal/testutils"
	"github.com/aretw0/horizons/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testRequest = domain.Request{
	Object:     "Test",
	Elements:   "EPOCH=2449526.5 EC=.6570220840219289 QR=.5559654306965624 TP=2449448.890787227 OM=89.14262290335057 W=326.0591239257098 IN=4.247821027304313 H=21.3 G=0.13",
	Center:     "@spitzer",
	Start:      "2004-Jan-1 12:00",
	Stop:       "2004-Mar-7",
	Step:       "1d",
	Quantities: "1,4,9,8",
}

func newClient(t *testing.T, svc *testutils.FakeDialogue, ftp *testutils.FakeFTP) *horizons.Client {
	t.Helper()
	return horizons.New(
		horizons.WithEmail("user@example.com"),
		horizons.WithTimeout(2*time.Second),
		horizons.WithSessionDialer(svc.Dialer()),
		horizons.WithTransferAddr(ftp.Addr()),
	)
}

func TestFetch(t *testing.T) {
	table := []byte("$$SOE\n2004-Jan-01 12:00  01 23 45.6  +12 34 56\n$$EOE\n")
	svc := testutils.NewFakeDialogue(t, testutils.HappyScript(testRequest, "12345.txt"))
	ftp := testutils.NewFakeFTP(t, map[string][]byte{"12345.txt": table})

	dest := filepath.Join(t.TempDir(), "Test.txt")
	res, err := newClient(t, svc, ftp).Fetch(context.Background(), testRequest, domain.Overrides{}, dest)
	require.NoError(t, err)

	assert.Equal(t, dest, res.Path)
	assert.Equal(t, "12345.txt", res.Artifact)
	assert.NotEmpty(t, res.Trace)

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, table, got)
	assert.True(t, svc.SawExit())
}

func TestFetch_DefaultDest(t *testing.T) {
	table := []byte("table\n")
	svc := testutils.NewFakeDialogue(t, testutils.HappyScript(testRequest, "12345.txt"))
	ftp := testutils.NewFakeFTP(t, map[string][]byte{"12345.txt": table})

	oldWD, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(oldWD) })
	res, err := newClient(t, svc, ftp).Fetch(context.Background(), testRequest, domain.Overrides{}, "")
	require.NoError(t, err)

	assert.Equal(t, "Test.txt", res.Path)
	assert.FileExists(t, "Test.txt")
}

// A dialogue failure must short-circuit the pipeline: the transfer
// service is never contacted and no local file appears.
func TestFetch_DialogueFailureSkipsTransfer(t *testing.T) {
	script := testutils.HappyScript(testRequest, "12345.txt")[:8]
	script = append(script, testutils.Exchange{Send: "Cannot find central body: @spitzer\n"})
	svc := testutils.NewFakeDialogue(t, script)
	ftp := testutils.NewFakeFTP(t, nil)

	dest := filepath.Join(t.TempDir(), "Test.txt")
	_, err := newClient(t, svc, ftp).Fetch(context.Background(), testRequest, domain.Overrides{}, dest)

	assert.Equal(t, domain.KindUnknownCenter, domain.KindOf(err))
	assert.Zero(t, ftp.Connections(), "transfer must not be attempted after a dialogue failure")
	assert.NoFileExists(t, dest)
}

func TestFetch_InvalidRequest(t *testing.T) {
	svc := testutils.NewFakeDialogue(t, nil)
	ftp := testutils.NewFakeFTP(t, nil)

	_, err := newClient(t, svc, ftp).Fetch(context.Background(), domain.Request{}, domain.Overrides{}, "out.txt")
	require.Error(t, err)
	assert.False(t, svc.Dialed(), "validation must run before any connection is opened")
}

func TestFetch_Idempotent(t *testing.T) {
	table := []byte("table contents\n")
	dir := t.TempDir()

	var contents [][]byte
	var traces [][]string
	for i := 0; i < 2; i++ {
		svc := testutils.NewFakeDialogue(t, testutils.HappyScript(testRequest, "12345.txt"))
		ftp := testutils.NewFakeFTP(t, map[string][]byte{"12345.txt": table})

		dest := filepath.Join(dir, "Test.txt")
		res, err := newClient(t, svc, ftp).Fetch(context.Background(), testRequest, domain.Overrides{}, dest)
		require.NoError(t, err)

		got, err := os.ReadFile(dest)
		require.NoError(t, err)
		contents = append(contents, got)
		traces = append(traces, res.Trace)
	}

	assert.Equal(t, contents[0], contents[1], "rerunning a fetch must reproduce the artifact")
	assert.Equal(t, traces[0], traces[1], "rerunning a fetch must walk the same states")
}

func TestFetch_ErrorsUnwrap(t *testing.T) {
	svc := testutils.NewFakeDialogue(t, nil)
	ftp := testutils.NewFakeFTP(t, nil)

	_, err := newClient(t, svc, ftp).Fetch(context.Background(), testRequest, domain.Overrides{}, filepath.Join(t.TempDir(), "Test.txt"))
	var de *domain.Error
	require.True(t, errors.As(err, &de))
	assert.Equal(t, domain.KindNetworkUnavailable, de.Kind)
}
