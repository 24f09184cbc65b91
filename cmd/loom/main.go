// Command loom is the project tool for Loom applications: it scaffolds new
// projects and checks existing ones.
package main

import (
	"fmt"
	"os"

	"github.com/go-loom/loom/cmd/loom/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
