// Package deps reports which external tools a configuration needs and
// whether they are installed.
package deps

import (
	"context"
	"os/exec"
	"strings"
	"time"
)

// Status represents the installation status of a dependency
type Status struct {
	Name      string
	Purpose   string
	Required  bool
	Installed bool
	Path      string
	Version   string
}

// Tool is an external program together with the flag that prints its version.
type Tool struct {
	Name        string
	VersionFlag string
	Purpose     string
	Required    bool
}

const versionTimeout = 3 * time.Second

// Check looks tool up in PATH (or at its absolute path) and asks it for its
// version. A tool that does not answer the version flag still counts as
// installed.
func Check(ctx context.Context, tool Tool) Status {
	status := Status{Name: tool.Name, Purpose: tool.Purpose, Required: tool.Required}

	path, err := exec.LookPath(tool.Name)
	if err != nil {
		return status
	}
	status.Installed = true
	status.Path = path

	if tool.VersionFlag == "" {
		return status
	}

	ctx, cancel := context.WithTimeout(ctx, versionTimeout)
	defer cancel()
	output, err := exec.CommandContext(ctx, path, tool.VersionFlag).CombinedOutput()
	if err == nil {
		// first line is the version for every tool we know
		lines := strings.Split(string(output), "\n")
		if len(lines) > 0 {
			status.Version = strings.TrimSpace(lines[0])
		}
	}

	return status
}

// Requirements describes what one configuration needs installed.
type Requirements struct {
	Transcriber    string
	PostProcessor  string // empty when post-processing is disabled
	OutputBackends []string
}

// Tools lists the programs req depends on, required ones first.
func Tools(req Requirements) []Tool {
	tools := []Tool{
		{Name: "pw-record", VersionFlag: "--version", Purpose: "audio capture", Required: true},
		{Name: req.Transcriber, VersionFlag: "--version", Purpose: "transcription", Required: true},
	}
	if req.PostProcessor != "" {
		tools = append(tools, Tool{Name: req.PostProcessor, VersionFlag: "--version", Purpose: "post-processing", Required: true})
	}
	for _, b := range req.OutputBackends {
		switch b {
		case "wtype":
			tools = append(tools, Tool{Name: "wtype", Purpose: "typing output"})
		case "ydotool":
			tools = append(tools, Tool{Name: "ydotool", Purpose: "typing output"})
		case "clipboard":
			tools = append(tools, Tool{Name: "wl-copy", VersionFlag: "--version", Purpose: "clipboard output"})
		}
	}
	return tools
}

// CheckAll checks every tool in order.
func CheckAll(ctx context.Context, tools []Tool) []Status {
	out := make([]Status, 0, len(tools))
	for _, t := range tools {
		out = append(out, Check(ctx, t))
	}
	return out
}

// Missing returns the required tools that are not installed.
func Missing(statuses []Status) []Status {
	var missing []Status
	for _, s := range statuses {
		if s.Required && !s.Installed {
			missing = append(missing, s)
		}
	}
	return missing
}
