package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aretw0/horizons/pkg/domain"
)

func TestReporter_Success(t *testing.T) {
	var buf bytes.Buffer
	NewReporter(&buf, false).Report(domain.Outcome{Path: "Test.txt", Artifact: "12345.txt"})

	out := buf.String()
	assert.Contains(t, out, "Test.txt")
	assert.Contains(t, out, "12345.txt")
	assert.NotContains(t, out, "\x1b[", "non-terminal output must stay uncolored")
}

func TestReporter_SuccessQuiet(t *testing.T) {
	var buf bytes.Buffer
	NewReporter(&buf, true).Report(domain.Outcome{Path: "Test.txt", Artifact: "12345.txt"})

	assert.Equal(t, "Test.txt\n", buf.String(), "quiet mode prints only the path")
}

func TestReporter_Failure(t *testing.T) {
	var buf bytes.Buffer
	err := &domain.Error{Kind: domain.KindUnknownCenter, Value: "@spitzer"}
	NewReporter(&buf, false).Report(domain.Outcome{ErrorKind: domain.KindOf(err), Detail: err.Error()})

	out := buf.String()
	assert.Contains(t, out, "unknown_center")
	assert.Contains(t, out, "@spitzer")
}

func TestReporter_FailureQuiet(t *testing.T) {
	var buf bytes.Buffer
	NewReporter(&buf, true).Report(domain.Outcome{ErrorKind: domain.KindRemoteTimeout})

	assert.Empty(t, buf.String())
}
