package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestLevels(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		log     func(msg string, args ...any)
		want    bool
	}{
		{"debug hidden by default", false, Debug, false},
		{"debug shown when verbose", true, Debug, true},
		{"info", false, Info, true},
		{"warn", false, Warn, true},
		{"error", false, Error, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			Setup(tt.verbose, false, &buf)

			tt.log("preview cycle", "session", "build-1")

			if got := strings.Contains(buf.String(), "preview cycle"); got != tt.want {
				t.Errorf("logged = %v, want %v (output %q)", got, tt.want, buf.String())
			}
			if Verbose != tt.verbose {
				t.Errorf("Verbose = %v, want %v", Verbose, tt.verbose)
			}
		})
	}
}

func TestSetup_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	Setup(false, true, &buf)

	Info("server ready", "port", 5173)

	output := buf.String()
	if !strings.HasPrefix(output, "{") {
		t.Errorf("Expected JSON output, got: %s", output)
	}
	if !strings.Contains(output, `"port":5173`) {
		t.Errorf("Expected port attribute in output, got: %s", output)
	}
}

func TestWith(t *testing.T) {
	var buf bytes.Buffer
	Setup(false, false, &buf)

	With("component", "controller").Info("install finished")

	output := buf.String()
	if !strings.Contains(output, "install finished") || !strings.Contains(output, "component=controller") {
		t.Errorf("Expected message with component attribute, got: %s", output)
	}
}

func TestSetup_NilWriter(t *testing.T) {
	Setup(false, false, nil)

	if Logger == nil {
		t.Error("Logger should not be nil after Setup with nil writer")
	}
}

func TestDiscard(t *testing.T) {
	var buf bytes.Buffer
	Setup(false, false, &buf)
	Discard()

	Error("should vanish")

	if buf.Len() != 0 {
		t.Errorf("Expected no output after Discard, got: %s", buf.String())
	}
}

func TestUserOutput_Redirect(t *testing.T) {
	var out, errOut bytes.Buffer
	SetUserOutput(&out, &errOut)
	defer ResetUserOutput()

	UserInfo("Building %s", "build-1")
	UserSuccess("Preview ready at %s", "http://localhost:5173")
	UserWarning("Failed to release sandbox")
	UserError("Generation failed: %d", 502)

	if got := out.String(); got != "ℹ Building build-1\n✓ Preview ready at http://localhost:5173\n" {
		t.Errorf("stdout = %q", got)
	}
	if got := errOut.String(); got != "⚠ Failed to release sandbox\n✗ Generation failed: 502\n" {
		t.Errorf("stderr = %q", got)
	}
}

func TestUserOutput_NilKeepsDestination(t *testing.T) {
	var out bytes.Buffer
	SetUserOutput(&out, nil)
	defer ResetUserOutput()

	SetUserOutput(nil, nil)
	UserInfo("still here")

	if got := out.String(); got != "ℹ still here\n" {
		t.Errorf("stdout = %q", got)
	}
}
