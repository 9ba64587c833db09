package deps

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/leonardotrapani/hyprdictate/internal/testutil"
)

func TestCheck_Installed(t *testing.T) {
	testutil.RequireShell(t)
	dir := t.TempDir()
	path := testutil.WriteScript(t, dir, "fake-tool", "echo 'fake-tool 1.2.3'\necho 'built today'\n")

	status := Check(context.Background(), Tool{Name: path, VersionFlag: "--version", Required: true})
	if !status.Installed {
		t.Fatal("tool on disk reported as not installed")
	}
	if status.Path != path {
		t.Errorf("Path = %q, want %q", status.Path, path)
	}
	if status.Version != "fake-tool 1.2.3" {
		t.Errorf("Version = %q", status.Version)
	}
}

func TestCheck_NoVersion(t *testing.T) {
	testutil.RequireShell(t)
	dir := t.TempDir()
	path := testutil.WriteScript(t, dir, "quiet-tool", "exit 1\n")

	status := Check(context.Background(), Tool{Name: path, VersionFlag: "--version"})
	if !status.Installed {
		t.Error("a tool failing its version flag is still installed")
	}
	if status.Version != "" {
		t.Errorf("Version = %q, want empty", status.Version)
	}
}

func TestCheck_NotInstalled(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "does-not-exist")
	status := Check(context.Background(), Tool{Name: missing, Required: true})
	if status.Installed {
		t.Error("expected Installed=false for a missing tool")
	}
	if status.Path != "" {
		t.Error("expected empty path when not installed")
	}
}

func TestTools(t *testing.T) {
	tools := Tools(Requirements{
		Transcriber:    "whisper-json",
		PostProcessor:  "llama-cli",
		OutputBackends: []string{"clipboard", "wtype"},
	})

	names := make([]string, len(tools))
	for i, tool := range tools {
		names[i] = tool.Name
	}
	want := []string{"pw-record", "whisper-json", "llama-cli", "wl-copy", "wtype"}
	if len(names) != len(want) {
		t.Fatalf("tools = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("tools[%d] = %q, want %q", i, names[i], want[i])
		}
	}

	if tools[3].Required {
		t.Error("output backends are optional, the chain falls through")
	}
}

func TestMissing(t *testing.T) {
	statuses := []Status{
		{Name: "a", Required: true, Installed: true},
		{Name: "b", Required: true},
		{Name: "c"},
	}
	missing := Missing(statuses)
	if len(missing) != 1 || missing[0].Name != "b" {
		t.Errorf("Missing() = %+v", missing)
	}
}
