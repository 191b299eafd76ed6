package version

import (
	"encoding/json"
	"runtime"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestGet(t *testing.T) {
	info := Get()

	if info.Version == "" {
		t.Error("Version should not be empty")
	}

	if info.Commit == "" {
		t.Error("Commit should not be empty")
	}

	if info.GoVersion == "" {
		t.Error("GoVersion should not be empty")
	}

	expectedPlatform := runtime.GOOS + "/" + runtime.GOARCH
	if info.Platform != expectedPlatform {
		t.Errorf("Platform = %s, want %s", info.Platform, expectedPlatform)
	}

	if info.CPUs != runtime.NumCPU() {
		t.Errorf("CPUs = %d, want %d", info.CPUs, runtime.NumCPU())
	}
}

func TestString(t *testing.T) {
	info := Get()
	output := info.String()

	if !strings.HasPrefix(output, "procpool\n") {
		t.Error("String output should start with the program name")
	}

	if !strings.Contains(output, info.Version) {
		t.Errorf("String output should contain version %s", info.Version)
	}

	if !strings.Contains(output, info.Commit) {
		t.Errorf("String output should contain commit %s", info.Commit)
	}
}

func TestShort(t *testing.T) {
	info := Info{Version: "1.2.3", Commit: "abc123"}
	if got := info.Short(); got != "procpool 1.2.3 (abc123)" {
		t.Errorf("Short() = %q", got)
	}
}

func TestJSON(t *testing.T) {
	info := Get()
	jsonStr, err := info.JSON()
	if err != nil {
		t.Fatalf("JSON() returned error: %v", err)
	}

	var result Info
	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		t.Fatalf("JSON output is not valid: %v", err)
	}

	if result != info {
		t.Errorf("JSON round trip = %+v, want %+v", result, info)
	}
}

func TestYAML(t *testing.T) {
	info := Get()
	yamlStr, err := info.YAML()
	if err != nil {
		t.Fatalf("YAML() returned error: %v", err)
	}

	if !strings.Contains(yamlStr, "goVersion: "+info.GoVersion) {
		t.Errorf("YAML output missing goVersion:\n%s", yamlStr)
	}

	var result Info
	if err := yaml.Unmarshal([]byte(yamlStr), &result); err != nil {
		t.Fatalf("YAML output is not valid: %v", err)
	}
	if result.Version != info.Version {
		t.Errorf("YAML version = %s, want %s", result.Version, info.Version)
	}
}
