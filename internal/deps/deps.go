package deps

import (
	"context"
	"os/exec"
	"strings"
	"time"
)

const versionTimeout = 2 * time.Second

// Status represents the installation status of a dependency
type Status struct {
	Installed bool
	Path      string
	Version   string
}

// Tool is an external program tsukkomi shells out to.
type Tool struct {
	Name        string
	VersionArgs []string
	Purpose     string
	Required    bool
}

// Tools lists every external program, required ones first.
var Tools = []Tool{
	{Name: "pw-record", VersionArgs: []string{"--version"}, Purpose: "microphone capture", Required: true},
	{Name: "pw-cli", VersionArgs: []string{"--version"}, Purpose: "PipeWire availability check", Required: true},
	{Name: "notify-send", VersionArgs: []string{"--version"}, Purpose: "desktop notifications"},
}

// Check looks the tool up in PATH and asks it for a version line.
func Check(ctx context.Context, tool Tool) Status {
	path, err := exec.LookPath(tool.Name)
	if err != nil {
		return Status{Installed: false}
	}

	status := Status{
		Installed: true,
		Path:      path,
	}

	ctx, cancel := context.WithTimeout(ctx, versionTimeout)
	defer cancel()
	output, err := exec.CommandContext(ctx, path, tool.VersionArgs...).Output()
	if err == nil {
		status.Version = firstLine(string(output))
	}

	return status
}

// Report is the result of checking every tool.
type Report struct {
	Tool   Tool
	Status Status
}

// CheckAll checks Tools in order. ok is false if a required tool is missing.
func CheckAll(ctx context.Context) (reports []Report, ok bool) {
	ok = true
	for _, tool := range Tools {
		st := Check(ctx, tool)
		if tool.Required && !st.Installed {
			ok = false
		}
		reports = append(reports, Report{Tool: tool, Status: st})
	}
	return reports, ok
}

func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}
