// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cairn Contributors

//go:build !windows

package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWarnInsecurePermissions(t *testing.T) {
	tests := []struct {
		name       string
		perm       os.FileMode
		expectWarn bool
	}{
		{name: "secure 0600", perm: 0o600},
		{name: "secure 0400", perm: 0o400},
		{name: "insecure 0644 (group and other readable)", perm: 0o644, expectWarn: true},
		{name: "insecure 0604 (other readable)", perm: 0o604, expectWarn: true},
		{name: "insecure 0640 (group readable)", perm: 0o640, expectWarn: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			configPath := filepath.Join(tmpDir, "cairn.yaml")

			err := os.WriteFile(configPath, []byte("server:\n  listen: ':8790'\n"), tt.perm)
			require.NoError(t, err, "failed to create test config file")

			var buf bytes.Buffer
			oldDefault := slog.Default()
			defer slog.SetDefault(oldDefault)
			slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

			WarnInsecurePermissions(configPath)

			logOutput := buf.String()
			if tt.expectWarn {
				assert.Contains(t, logOutput, "insecure permissions")
				assert.Contains(t, logOutput, configPath)
				assert.Contains(t, logOutput, "0600")
			} else {
				assert.NotContains(t, logOutput, "insecure permissions")
			}
		})
	}
}

func TestWarnInsecurePermissions_EmptyPath(t *testing.T) {
	var buf bytes.Buffer
	oldDefault := slog.Default()
	defer slog.SetDefault(oldDefault)
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	WarnInsecurePermissions("")

	assert.Empty(t, buf.String(), "expected no log output for empty path")
}

func TestWarnInsecurePermissions_MissingFile(t *testing.T) {
	var buf bytes.Buffer
	oldDefault := slog.Default()
	defer slog.SetDefault(oldDefault)
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	WarnInsecurePermissions("/nonexistent/path/cairn.yaml")

	logOutput := buf.String()
	assert.NotContains(t, logOutput, "insecure permissions", "should not warn about missing file")
}
