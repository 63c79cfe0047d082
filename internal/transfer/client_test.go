package transfer_test

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/horizons/internal/testutils"
	"github.com/aretw0/horizons/internal/transfer"
	"github.com/aretw0/horizons/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Retrieve(t *testing.T) {
	content := []byte("$$SOE\n2004-Jan-01 12:00  01 23 45.6\n$$EOE\n")
	fake := testutils.NewFakeFTP(t, map[string][]byte{"12345.txt": content})

	dest := filepath.Join(t.TempDir(), "Test.txt")
	c := transfer.New(fake.Addr(), "user@example.com", transfer.WithTimeout(2*time.Second))
	require.NoError(t, c.Retrieve(context.Background(), "12345.txt", dest))

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, content, got, "retrieved artifact must be byte-identical")

	assert.Eventually(t, func() bool { return fake.Quits() == 1 },
		time.Second, 10*time.Millisecond, "session must end with an explicit QUIT")
}

func TestClient_RetrieveAuthFailure(t *testing.T) {
	fake := testutils.NewFakeFTP(t, nil)
	fake.FailAuth()

	dest := filepath.Join(t.TempDir(), "Test.txt")
	c := transfer.New(fake.Addr(), "user@example.com", transfer.WithTimeout(2*time.Second))
	err := c.Retrieve(context.Background(), "12345.txt", dest)

	var de *domain.Error
	require.True(t, errors.As(err, &de))
	assert.Equal(t, domain.KindAuthenticationFailed, de.Kind)
	assert.NoFileExists(t, dest)
}

func TestClient_RetrieveMissingArtifact(t *testing.T) {
	fake := testutils.NewFakeFTP(t, map[string][]byte{"other.txt": []byte("x")})

	dir := t.TempDir()
	dest := filepath.Join(dir, "Test.txt")
	c := transfer.New(fake.Addr(), "user@example.com", transfer.WithTimeout(2*time.Second))
	err := c.Retrieve(context.Background(), "12345.txt", dest)

	var de *domain.Error
	require.True(t, errors.As(err, &de))
	assert.Equal(t, domain.KindArtifactNotFound, de.Kind)
	assert.Equal(t, "12345.txt", de.Value)

	// No partial artifact and no spool leftovers.
	entries, rerr := os.ReadDir(dir)
	require.NoError(t, rerr)
	assert.Empty(t, entries)
}

func TestClient_RetrieveUnavailable(t *testing.T) {
	c := transfer.New("unreachable:21", "user@example.com",
		transfer.WithDialer(func(ctx context.Context, addr string) (net.Conn, error) {
			return nil, fmt.Errorf("connection refused")
		}),
	)
	err := c.Retrieve(context.Background(), "12345.txt", filepath.Join(t.TempDir(), "Test.txt"))

	var de *domain.Error
	require.True(t, errors.As(err, &de))
	assert.Equal(t, domain.KindTransferUnavailable, de.Kind)
}

func TestClient_RetrieveDirectory(t *testing.T) {
	fake := testutils.NewFakeFTP(t, map[string][]byte{"a.txt": []byte("a")})

	dest := filepath.Join(t.TempDir(), "a.txt")
	c := transfer.New(fake.Addr(), "user@example.com",
		transfer.WithDir("pub/other"),
		transfer.WithTimeout(2*time.Second),
	)
	require.NoError(t, c.Retrieve(context.Background(), "a.txt", dest))
	assert.FileExists(t, dest)
}
