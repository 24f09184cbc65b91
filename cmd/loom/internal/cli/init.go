package cli

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"text/template"

	"github.com/spf13/cobra"

	"github.com/go-loom/loom/cmd/loom/internal/templates"
)

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init <directory> [module-path]",
		Short: "Create a new Loom project",
		Long: `Create a new Loom project in a new directory.

This command creates:
  - A new directory at the specified path
  - go.mod with the specified module path
  - main.go with a starter application
  - loom.yaml documenting the engine defaults

The project name is derived from the directory basename.
The module path defaults to the project name if not specified.

Examples:
  loom init myapp
  loom init myapp github.com/username/myapp
  loom init ./projects/myapp`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd.OutOrStdout(), args)
		},
	}
}

// initTemplateData contains the data for init template substitution.
type initTemplateData struct {
	ModulePath  string
	ProjectName string
}

// runInit creates a new Loom project. The first argument is the directory
// path to create; the project name is derived from its basename. An optional
// second argument overrides the Go module path, which otherwise defaults to
// the project name.
func runInit(out io.Writer, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("directory is required\n\nUsage: loom init <directory> [module-path]")
	}

	raw := args[0]
	if strings.HasPrefix(raw, "~") {
		return fmt.Errorf("tilde (~) is not expanded by loom; use an absolute path or $HOME instead")
	}

	dir := filepath.Clean(raw)

	// Validate the directory path before deriving anything from it.
	if err := validateDirectory(dir); err != nil {
		return err
	}

	projectName := filepath.Base(dir)
	modulePath := projectName
	if len(args) > 1 {
		modulePath = args[1]
	}

	if modulePath == "" {
		return fmt.Errorf("module path cannot be empty")
	}

	if err := validateProjectName(projectName); err != nil {
		return fmt.Errorf("invalid project name %q (derived from directory basename): %w", projectName, err)
	}

	if err := scaffoldProject(out, dir, modulePath); err != nil {
		return err
	}

	// Resolve Go dependencies. Both steps are best effort: the scaffold is
	// complete without them.
	fmt.Fprintln(out, "  Adding loom dependency...")
	getCmd := exec.Command("go", "get", "github.com/go-loom/loom@latest")
	getCmd.Dir = dir
	getCmd.Stdout = out
	getCmd.Stderr = out
	if err := getCmd.Run(); err != nil {
		fmt.Fprintln(out, "  Warning: go get failed (this is expected if loom is not yet published)")
	}

	fmt.Fprintln(out, "  Running go mod tidy...")
	tidyCmd := exec.Command("go", "mod", "tidy")
	tidyCmd.Dir = dir
	tidyCmd.Stdout = out
	tidyCmd.Stderr = out
	if err := tidyCmd.Run(); err != nil {
		fmt.Fprintln(out, "  Warning: go mod tidy failed")
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Project created successfully!\n\n")
	fmt.Fprintf(out, "Next steps:\n")
	fmt.Fprintf(out, "  cd %s\n", dir)
	fmt.Fprintf(out, "  go run .\n")
	fmt.Fprintf(out, "  loom doctor          # Check the project setup\n")

	return nil
}

// scaffoldProject creates the project directory and writes the template
// files. This is the portion of init with no side effects beyond the
// filesystem, so tests can call it without network access.
func scaffoldProject(out io.Writer, dir, modulePath string) error {
	if _, err := os.Stat(dir); err == nil {
		return fmt.Errorf("directory %q already exists", dir)
	}

	projectName := filepath.Base(dir)
	fmt.Fprintf(out, "Creating new Loom project: %s\n", projectName)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	data := initTemplateData{
		ModulePath:  modulePath,
		ProjectName: projectName,
	}

	initFiles := []struct {
		templatePath string
		destName     string
	}{
		{"init/go.mod.tmpl", "go.mod"},
		{"init/main.go.tmpl", "main.go"},
		{"init/loom.yaml.tmpl", "loom.yaml"},
	}

	for _, f := range initFiles {
		if err := writeInitTemplate(dir, f.templatePath, f.destName, data); err != nil {
			safeRemoveAll(dir)
			return err
		}
		fmt.Fprintf(out, "  Created %s\n", f.destName)
	}

	return nil
}

func writeInitTemplate(projectDir, templatePath, destName string, data initTemplateData) error {
	content, err := templates.ReadFile(templatePath)
	if err != nil {
		return fmt.Errorf("failed to read template %s: %w", templatePath, err)
	}

	tmpl, err := template.New(destName).Parse(string(content))
	if err != nil {
		return fmt.Errorf("failed to parse template %s: %w", templatePath, err)
	}

	var buf strings.Builder
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("failed to execute template %s: %w", templatePath, err)
	}

	destPath := filepath.Join(projectDir, destName)
	if err := os.WriteFile(destPath, []byte(buf.String()), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", destName, err)
	}

	return nil
}

// validateDirectory rejects directory paths that would be dangerous to
// create or roll back: filesystem roots (/, C:\), the current and parent
// directory, and root-level absolute paths (e.g. /etc, C:\Users).
func validateDirectory(dir string) error {
	// "" is unreachable via runInit (filepath.Clean turns it into ".") but
	// matters for direct callers. "/" stays in the switch because
	// isVolumeRoot won't match it on Windows, where the separator is \.
	switch dir {
	case "", "/", ".", "..":
		return fmt.Errorf("directory %q is not a valid project location", dir)
	}
	if isVolumeRoot(dir) {
		return fmt.Errorf("directory %q is not a valid project location", dir)
	}
	if filepath.IsAbs(dir) && isVolumeRoot(filepath.Dir(dir)) {
		return fmt.Errorf("refusing to create project at root-level path %q", dir)
	}
	return nil
}

// isVolumeRoot reports whether dir is a filesystem root: "/" on Unix, drive
// roots like "C:\" and the bare "\" on Windows.
func isVolumeRoot(dir string) bool {
	return dir == filepath.VolumeName(dir)+string(filepath.Separator)
}

// safeRemoveAll removes a directory only if the path passes
// validateDirectory. It silently no-ops on dangerous paths rather than
// returning an error, since it runs on cleanup paths where the original
// error should not be masked.
func safeRemoveAll(dir string) {
	if validateDirectory(dir) != nil {
		return
	}
	os.RemoveAll(dir)
}

var validProjectName = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_-]*$`)

// validateProjectName checks that a project name (derived from the directory
// basename) starts with a letter and contains only letters, digits,
// underscores, and hyphens.
func validateProjectName(name string) error {
	if name == "" {
		return fmt.Errorf("project name cannot be empty")
	}
	// Redundant with the regex, but these produce more actionable messages
	// for the common mistakes (hidden dirs, flag-like names).
	if strings.HasPrefix(name, ".") {
		return fmt.Errorf("project name cannot start with a dot")
	}
	if strings.HasPrefix(name, "-") {
		return fmt.Errorf("project name cannot start with a hyphen")
	}
	if !validProjectName.MatchString(name) {
		return fmt.Errorf("project name must start with a letter and contain only letters, numbers, underscores, and hyphens")
	}
	return nil
}
