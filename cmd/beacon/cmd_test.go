package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

// executeCommand runs the root command with args and returns its output.
// Package-level flag variables are reset first since cobra keeps them
// between executions.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cfgFile, verbose = "", false
	validateFlags.show, validateFlags.format = false, "yaml"
	versionFormat = "text"
	serveFlags.listenAddress, serveFlags.logLevel, serveFlags.dryRun = "", "", false

	buf := &bytes.Buffer{}
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "beacon.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
