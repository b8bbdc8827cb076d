package main

import (
	"bytes"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildBinary builds the employee binary into dir and returns its path.
func buildBinary(t *testing.T, dir string) string {
	t.Helper()
	bin := filepath.Join(dir, "employee.exe")
	out, err := exec.Command("go", "build", "-o", bin, ".").CombinedOutput()
	require.NoError(t, err, "failed to build employee:\n%s", out)
	return bin
}

func runCLI(t *testing.T, bin, vault string, args ...string) string {
	t.Helper()
	cmd := exec.Command(bin, append([]string{"--vault", vault}, args...)...)
	cmd.Env = append(os.Environ(), "DRY_RUN=true", "OPENROUTER_API_KEY=", "EMPLOYEE_VAULT=")
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	require.NoError(t, err, "employee %v:\n%s", args, stderr.String())
	return string(out)
}

func TestCLIWorkflow(t *testing.T) {
	if testing.Short() {
		t.Skip("builds the binary")
	}
	dir := t.TempDir()
	bin := buildBinary(t, dir)
	vault := filepath.Join(dir, "vault")

	out := runCLI(t, bin, vault, "init")
	assert.Contains(t, out, "Initialized vault in")
	assert.FileExists(t, filepath.Join(vault, ".employee", "config.yaml"))
	assert.FileExists(t, filepath.Join(vault, "Dashboard.md"))

	task := filepath.Join(vault, "Needs_Action", "report.md")
	require.NoError(t, os.WriteFile(task, []byte("Send the weekly report by email to the team"), 0o644))

	runCLI(t, bin, vault, "run", "--mode", "once")
	assert.NoFileExists(t, task)
	assert.FileExists(t, filepath.Join(vault, "Pending_Approval", "approval_plan_report.md"))

	var status struct {
		Stages map[string]int `json:"stages"`
	}
	require.NoError(t, json.Unmarshal([]byte(runCLI(t, bin, vault, "status", "--json")), &status))
	assert.Equal(t, 0, status.Stages["Needs_Action"])
	assert.GreaterOrEqual(t, status.Stages["Pending_Approval"], 1)

	out = runCLI(t, bin, vault, "approve", "plan_report", "--by", "tester")
	assert.Contains(t, out, "approved")
	runCLI(t, bin, vault, "run")
	assert.FileExists(t, filepath.Join(vault, "Approved", "plan_report.md"))

	var entries []struct {
		ActionType string `json:"action_type"`
	}
	require.NoError(t, json.Unmarshal([]byte(runCLI(t, bin, vault, "logs", "--json")), &entries))
	var types []string
	for _, e := range entries {
		types = append(types, e.ActionType)
	}
	assert.Contains(t, types, "SYSTEM_INIT")
	assert.Contains(t, types, "APPROVAL_DECISION_RECORDED")
	assert.Contains(t, types, "APPROVAL_APPROVED")

	assert.Contains(t, runCLI(t, bin, vault, "version"), "employee version")
}
