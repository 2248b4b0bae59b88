package main

import (
	"strings"
	"testing"

	"mercator-hq/beacon/pkg/cli"
)

func TestValidateCommand(t *testing.T) {
	valid := writeConfig(t, `
server:
  listen_address: 127.0.0.1:7000
performance:
  budgets:
    - type: initial
      limit: 200
`)
	invalid := writeConfig(t, `
telemetry:
  tracing:
    exporter: zipkin
performance:
  report_schedule: "every minute"
`)

	tests := []struct {
		name     string
		args     []string
		wantErr  bool
		wantCode int
		wantOut  []string
	}{
		{
			name:    "defaults",
			args:    []string{"validate"},
			wantOut: []string{"✓ Configuration valid (built-in defaults)"},
		},
		{
			name:    "valid file",
			args:    []string{"validate", "--config", valid},
			wantOut: []string{"✓ Configuration valid (" + valid + ")"},
		},
		{
			name:    "verbose summary",
			args:    []string{"validate", "-c", valid, "-v"},
			wantOut: []string{"budgets: 1", "exporter: none"},
		},
		{
			name:    "show yaml",
			args:    []string{"validate", "-c", valid, "--show"},
			wantOut: []string{"listen_address: 127.0.0.1:7000", "max_traces: 1000", "shutdown_timeout: 15s"},
		},
		{
			name:     "invalid file",
			args:     []string{"validate", "-c", invalid},
			wantErr:  true,
			wantCode: 2,
		},
		{
			name:     "missing file",
			args:     []string{"validate", "-c", "/does/not/exist.yaml"},
			wantErr:  true,
			wantCode: 2,
		},
		{
			name:     "bad format",
			args:     []string{"validate", "--show", "--format", "xml"},
			wantErr:  true,
			wantCode: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := executeCommand(t, tt.args...)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v\n%s", err, tt.wantErr, out)
			}
			if tt.wantErr {
				if got := cli.ExitCode(err); got != tt.wantCode {
					t.Errorf("ExitCode() = %d, want %d (%v)", got, tt.wantCode, err)
				}
				return
			}
			for _, want := range tt.wantOut {
				if !strings.Contains(out, want) {
					t.Errorf("output missing %q:\n%s", want, out)
				}
			}
		})
	}
}
