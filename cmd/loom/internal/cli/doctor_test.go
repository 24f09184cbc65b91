package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeProject lays down a minimal project: a go.mod and nothing else.
func writeProject(t *testing.T, modulePath string) string {
	t.Helper()
	dir := t.TempDir()
	gomod := fmt.Sprintf("module %s\n\ngo 1.24\n", modulePath)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "go.mod"), []byte(gomod), 0o644))
	return dir
}

func TestDoctorPrintsResolvedSettings(t *testing.T) {
	dir := writeProject(t, "example.com/demo")
	yaml := "scheduler:\n  maxRenderCycles: 16\ninspector:\n  port: 7473\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "loom.yaml"), []byte(yaml), 0o644))

	var buf bytes.Buffer
	require.NoError(t, runDoctor(&buf, dir))

	out := buf.String()
	assert.Contains(t, out, "Module path:  example.com/demo")
	assert.Contains(t, out, "Config:       loom.yaml")
	assert.Contains(t, out, "scheduler.maxRenderCycles   16")
	assert.Contains(t, out, "inspector                   127.0.0.1:7473")
	assert.Contains(t, out, "No problems found.")
	assert.NotContains(t, out, "Warning")
}

func TestDoctorUsesDefaultsWithoutConfig(t *testing.T) {
	dir := writeProject(t, "example.com/demo")

	var buf bytes.Buffer
	require.NoError(t, runDoctor(&buf, dir))

	out := buf.String()
	assert.Contains(t, out, "Config:       not found (using defaults)")
	assert.Contains(t, out, "scheduler.maxRenderCycles   64")
	assert.Contains(t, out, "input.velocitySmoothing     0.5")
	assert.Contains(t, out, "inspector                   disabled")
}

func TestDoctorWarnsOnLocalModulePath(t *testing.T) {
	dir := writeProject(t, "myapp")

	var buf bytes.Buffer
	require.NoError(t, runDoctor(&buf, dir))

	assert.Contains(t, buf.String(), "not publishable")
}

func TestDoctorFailsWithoutGoMod(t *testing.T) {
	var buf bytes.Buffer
	err := runDoctor(&buf, t.TempDir())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "go.mod")
}

func TestDoctorRejectsInvalidConfig(t *testing.T) {
	dir := writeProject(t, "example.com/demo")
	yaml := "scheduler:\n  maxRenderCycles: 150\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "loom.yaml"), []byte(yaml), 0o644))

	var buf bytes.Buffer
	err := runDoctor(&buf, dir)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "scheduler.maxRenderCycles")
}

func TestDoctorThroughRootCommand(t *testing.T) {
	dir := writeProject(t, "example.com/demo")

	var buf bytes.Buffer
	root := NewRootCommand()
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs([]string{"doctor", dir})

	require.NoError(t, root.Execute())
	assert.Contains(t, buf.String(), "Engine settings:")
}
