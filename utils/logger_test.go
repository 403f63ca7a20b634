package utils

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetVerbose_And_IsVerbose(t *testing.T) {
	// save original state and restore after test
	original := IsVerbose()
	defer SetVerbose(original)

	SetVerbose(true)
	assert.True(t, IsVerbose())

	SetVerbose(false)
	assert.False(t, IsVerbose())
}

func TestVerbose_SuppressedWhenDisabled(t *testing.T) {
	original := IsVerbose()
	defer SetVerbose(original)

	var buf bytes.Buffer
	out := logger.Out
	SetOutput(&buf)
	defer SetOutput(out)

	SetVerbose(false)
	Verbose("test message %s %d", "arg", 42)
	assert.Empty(t, buf.String())
}

func TestVerbose_EmittedWhenEnabled(t *testing.T) {
	original := IsVerbose()
	defer SetVerbose(original)

	var buf bytes.Buffer
	out := logger.Out
	SetOutput(&buf)
	defer SetOutput(out)

	SetVerbose(true)
	Verbose("test message %s %d", "arg", 42)
	assert.Contains(t, buf.String(), "test message arg 42")
}

func TestInfoWarnError_Written(t *testing.T) {
	var buf bytes.Buffer
	out := logger.Out
	SetOutput(&buf)
	defer SetOutput(out)

	Info("info %s", "one")
	Warn("warn %s", "two")
	Error("error %s", "three")

	assert.Contains(t, buf.String(), "info one")
	assert.Contains(t, buf.String(), "warn two")
	assert.Contains(t, buf.String(), "error three")
}

func TestWithField_TagsEveryLine(t *testing.T) {
	var buf bytes.Buffer
	out := logger.Out
	SetOutput(&buf)
	defer SetOutput(out)

	log := WithField("passthrough", "abc-123")
	log.Warnf("could not hide overlays: %v", "gone")

	assert.Contains(t, buf.String(), "passthrough=abc-123")
	assert.Contains(t, buf.String(), "could not hide overlays: gone")
}
