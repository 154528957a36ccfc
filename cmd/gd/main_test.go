package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidInterval(t *testing.T) {
	assert.NoError(t, validInterval("4s"))
	assert.NoError(t, validInterval("1m30s"))
	assert.Error(t, validInterval("fast"))
	assert.Error(t, validInterval("250ms"))
}

func TestValidPort(t *testing.T) {
	assert.NoError(t, validPort("8080"))
	assert.Error(t, validPort("0"))
	assert.Error(t, validPort("70000"))
	assert.Error(t, validPort("http"))
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	versionCmd.SetOut(&out)
	versionCmd.Run(versionCmd, nil)

	require.True(t, strings.HasPrefix(out.String(), "gd "), out.String())
	assert.Contains(t, out.String(), "commit")
}

func TestStatusCommand_RejectsUnknownFormat(t *testing.T) {
	statusFormat = "csv"
	t.Cleanup(func() { statusFormat = "table" })

	err := statusCmd.RunE(statusCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "csv")
}
