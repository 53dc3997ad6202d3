package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"relay/internal/security"
)

// ShellTool executes shell commands in a sandboxed environment.
// Command validation is delegated to security.ValidateCommand so the deny
// list lives in one place for every execution path.
type ShellTool struct {
	workspaceDir   string
	timeoutSecs    int
	maxOutputChars int
	sandboxEnabled bool
}

// ShellConfig configures the shell tool.
type ShellConfig struct {
	WorkspaceDir   string
	TimeoutSecs    int
	MaxOutputChars int
	SandboxEnabled bool
}

// NewShellTool creates a new shell tool.
func NewShellTool(cfg ShellConfig) *ShellTool {
	if cfg.TimeoutSecs <= 0 {
		cfg.TimeoutSecs = 60
	}
	if cfg.MaxOutputChars <= 0 {
		cfg.MaxOutputChars = 10000
	}
	return &ShellTool{
		workspaceDir:   cfg.WorkspaceDir,
		timeoutSecs:    cfg.TimeoutSecs,
		maxOutputChars: cfg.MaxOutputChars,
		sandboxEnabled: cfg.SandboxEnabled,
	}
}

func (t *ShellTool) Name() string { return "shell" }
func (t *ShellTool) Description() string {
	return "Execute a shell command. Use this to run system commands, scripts, and programs. Commands are sandboxed to the workspace directory."
}

func (t *ShellTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"command": {
				"type": "string",
				"description": "The shell command to execute"
			}
		},
		"required": ["command"]
	}`)
}

func (t *ShellTool) Execute(ctx context.Context, args json.RawMessage) (*Result, error) {
	var params struct {
		Command string `json:"command"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return &Result{Error: "invalid arguments: " + err.Error(), IsError: true}, nil
	}

	if params.Command == "" {
		return &Result{Error: "command is required", IsError: true}, nil
	}

	// Sandbox checks
	if t.sandboxEnabled {
		if err := security.ValidateCommand(params.Command); err != nil {
			return &Result{
				Error:   fmt.Sprintf("command blocked by sandbox: %v", err),
				IsError: true,
			}, nil
		}
		// Block path traversal
		if strings.Contains(params.Command, "../") {
			return &Result{Error: "command blocked: path traversal detected", IsError: true}, nil
		}
		// Block absolute paths outside workspace to limit filesystem reach
		if t.workspaceDir != "" && containsAbsolutePathOutsideWorkspace(params.Command, t.workspaceDir) {
			return &Result{Error: "command blocked: absolute path outside workspace", IsError: true}, nil
		}
	}

	timeout := time.Duration(t.timeoutSecs) * time.Second
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "sh", "-c", params.Command)
	if t.workspaceDir != "" {
		cmd.Dir = t.workspaceDir
	}

	output, err := cmd.CombinedOutput()
	result := string(output)

	// Truncate if needed
	if len(result) > t.maxOutputChars {
		result = result[:t.maxOutputChars] + "\n... (output truncated)"
	}

	if err != nil {
		return &Result{
			Output:  result,
			Error:   err.Error(),
			IsError: true,
		}, nil
	}

	return &Result{Output: result}, nil
}

// containsAbsolutePathOutsideWorkspace checks for /etc, /usr etc references.
func containsAbsolutePathOutsideWorkspace(command, workspace string) bool {
	absWorkspace, err := filepath.Abs(workspace)
	if err != nil {
		return false
	}
	// Find absolute paths in the command
	absPathPattern := regexp.MustCompile(`(?:^|\s)(/[a-zA-Z][a-zA-Z0-9_/.-]*)`)
	matches := absPathPattern.FindAllStringSubmatch(command, -1)
	for _, m := range matches {
		if len(m) > 1 {
			path := m[1]
			if !strings.HasPrefix(path, absWorkspace) && !strings.HasPrefix(path, "/dev/null") {
				return true
			}
		}
	}
	return false
}
