package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/mod/modfile"
	"golang.org/x/mod/module"

	"github.com/go-loom/loom/pkg/config"
)

// NewDoctorCommand creates the doctor command.
func NewDoctorCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor [directory]",
		Short: "Check a Loom project and print its resolved settings",
		Long: `Check a Loom project and print its resolved engine settings.

Doctor locates the project root (walking up from the working directory
to the nearest go.mod, unless a directory is given), reads the module
path, and validates loom.yaml. It fails on a missing go.mod or an
out-of-range configuration value.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := ""
			if len(args) == 1 {
				dir = args[0]
			}
			return runDoctor(cmd.OutOrStdout(), dir)
		},
	}
}

func runDoctor(out io.Writer, dir string) error {
	root := dir
	if root == "" {
		var err error
		root, err = findProjectRoot()
		if err != nil {
			return err
		}
	} else {
		root = filepath.Clean(root)
	}

	modPath, err := resolveModulePath(root)
	if err != nil {
		return err
	}

	cfg, err := config.Load(root)
	if err != nil {
		return err
	}

	configLabel := config.FileName
	if _, err := os.Stat(filepath.Join(root, config.FileName)); err != nil {
		configLabel = "not found (using defaults)"
	}

	fmt.Fprintf(out, "Project: %s\n", filepath.Base(root))
	fmt.Fprintf(out, "  Root:         %s\n", root)
	fmt.Fprintf(out, "  Module path:  %s\n", modPath)
	fmt.Fprintf(out, "  Config:       %s\n", configLabel)

	// Bare names like "myapp" (the init default) are usable locally but
	// cannot be fetched by other modules.
	if err := module.CheckPath(modPath); err != nil {
		fmt.Fprintf(out, "  Warning: module path is not publishable: %v\n", err)
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Engine settings:")
	fmt.Fprintf(out, "  scheduler.maxRenderCycles   %d\n", cfg.Scheduler.MaxRenderCycles)
	fmt.Fprintf(out, "  input.velocitySmoothing     %g\n", cfg.Input.VelocitySmoothing)
	if addr := cfg.InspectorAddr(); addr != "" {
		fmt.Fprintf(out, "  inspector                   %s\n", addr)
	} else {
		fmt.Fprintf(out, "  inspector                   disabled\n")
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "No problems found.")
	return nil
}

// findProjectRoot walks up from the working directory to the nearest go.mod.
func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("not in a Go module (no go.mod found)")
		}
		dir = parent
	}
}

func resolveModulePath(dir string) (string, error) {
	data, err := os.ReadFile(filepath.Join(dir, "go.mod"))
	if err != nil {
		return "", fmt.Errorf("failed to read go.mod: %w", err)
	}
	path := modfile.ModulePath(data)
	if path == "" {
		return "", fmt.Errorf("could not determine module path from go.mod")
	}
	return path, nil
}
