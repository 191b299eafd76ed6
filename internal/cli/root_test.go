package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
)

// executeRoot runs the root command with args against an isolated config file
func executeRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Cleanup(viper.Reset)

	cfg := filepath.Join(t.TempDir(), "procpool.yaml")
	cmd := newRootCmd()
	cmd.SetArgs(append([]string{"--config", cfg}, args...))

	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})

	err := cmd.Execute()
	return out.String(), err
}

func TestRootCommand(t *testing.T) {
	cmd := newRootCmd()

	if cmd == nil {
		t.Fatal("expected root command, got nil")
	}

	if cmd.Use != "procpool" {
		t.Errorf("expected use 'procpool', got %q", cmd.Use)
	}

	// Verify subcommands are registered
	expectedCommands := []string{
		"version",
		"completion",
		"run",
		"funcs",
		"config",
	}

	for _, cmdName := range expectedCommands {
		found := false
		for _, cmd := range cmd.Commands() {
			if cmd.Name() == cmdName {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("expected subcommand %q to be registered", cmdName)
		}
	}
}

func TestRootCommandHelp(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"--help"})

	output := &bytes.Buffer{}
	cmd.SetOut(output)
	cmd.SetErr(output)

	err := cmd.Execute()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	help := output.String()

	expectedStrings := []string{
		"procpool",
		"worker",
		"version",
		"completion",
		"run",
		"funcs",
		"config",
	}

	for _, want := range expectedStrings {
		if !strings.Contains(help, want) {
			t.Errorf("expected help to contain %q", want)
		}
	}
}

func TestRootCommandPersistentFlags(t *testing.T) {
	cmd := newRootCmd()

	expectedFlags := []string{
		"config",
		"profile",
		"output",
		"verbose",
		"no-color",
	}

	for _, flagName := range expectedFlags {
		flag := cmd.PersistentFlags().Lookup(flagName)
		if flag == nil {
			t.Errorf("expected persistent flag %q to be defined", flagName)
		}
	}
}

func TestRootCommandFlagDefaults(t *testing.T) {
	cmd := newRootCmd()

	tests := []struct {
		name     string
		flag     string
		expected string
	}{
		{
			name:     "config default",
			flag:     "config",
			expected: "",
		},
		{
			name:     "profile default",
			flag:     "profile",
			expected: "",
		},
		{
			name:     "output default",
			flag:     "output",
			expected: "",
		},
		{
			name:     "verbose default",
			flag:     "verbose",
			expected: "false",
		},
		{
			name:     "no-color default",
			flag:     "no-color",
			expected: "false",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flag := cmd.PersistentFlags().Lookup(tt.flag)
			if flag == nil {
				t.Fatalf("flag %q not found", tt.flag)
			}

			if flag.DefValue != tt.expected {
				t.Errorf("expected default value %q, got %q", tt.expected, flag.DefValue)
			}
		})
	}
}

func TestRootCommandSilenceFlags(t *testing.T) {
	cmd := newRootCmd()

	if !cmd.SilenceUsage {
		t.Error("expected SilenceUsage to be true")
	}

	if !cmd.SilenceErrors {
		t.Error("expected SilenceErrors to be true")
	}
}

func TestRootCommandShortFlags(t *testing.T) {
	cmd := newRootCmd()

	// Verify short flags are set correctly
	shortFlags := map[string]string{
		"o": "output",
		"v": "verbose",
	}

	for short, long := range shortFlags {
		shortFlag := cmd.PersistentFlags().ShorthandLookup(short)
		if shortFlag == nil {
			t.Errorf("expected short flag -%s for %s", short, long)
			continue
		}

		if shortFlag.Name != long {
			t.Errorf("expected short flag -%s to map to %s, got %s", short, long, shortFlag.Name)
		}
	}
}

func TestInitConfigUnknownProfile(t *testing.T) {
	_, err := executeRoot(t, "--profile", "nope", "version")
	if err == nil {
		t.Fatal("expected error for unknown profile")
	}
}

func TestInitConfigProfileFromFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	cfg := filepath.Join(t.TempDir(), "procpool.yaml")
	content := `defaults:
  workers: 2
profiles:
  wide:
    workers: 16
    policy: log-and-continue
`
	if err := os.WriteFile(cfg, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cmd := newRootCmd()
	cmd.SetArgs([]string{"--config", cfg, "--profile", "wide", "version", "--short"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := viper.GetInt("workers"); got != 16 {
		t.Errorf("expected workers 16 from profile, got %d", got)
	}
	if got := viper.GetString("policy"); got != "log-and-continue" {
		t.Errorf("expected policy from profile, got %q", got)
	}
}

func TestVersionCommand(t *testing.T) {
	t.Run("human readable", func(t *testing.T) {
		out, err := executeRoot(t, "version")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.HasPrefix(out, "procpool\n") {
			t.Errorf("unexpected output %q", out)
		}
	})

	t.Run("short", func(t *testing.T) {
		out, err := executeRoot(t, "version", "--short")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.HasPrefix(out, "procpool ") || strings.Count(out, "\n") != 1 {
			t.Errorf("unexpected output %q", out)
		}
	})

	t.Run("json", func(t *testing.T) {
		out, err := executeRoot(t, "version", "-o", "json")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var decoded map[string]interface{}
		if err := json.Unmarshal([]byte(out), &decoded); err != nil {
			t.Fatalf("invalid JSON %q: %v", out, err)
		}
		if _, ok := decoded["goVersion"]; !ok {
			t.Error("expected goVersion in JSON output")
		}
	})

	t.Run("table", func(t *testing.T) {
		out, err := executeRoot(t, "--no-color", "version", "-o", "table")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, want := range []string{"COMPONENT", "Go Version", "CPUs"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected table to contain %q, got %q", want, out)
			}
		}
	})
}
