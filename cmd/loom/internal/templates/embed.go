// Package templates provides the embedded template files used by loom init.
package templates

import (
	"embed"
	"io/fs"
)

//go:embed init/*
var FS embed.FS

// ReadFile reads a file from the embedded filesystem.
func ReadFile(path string) ([]byte, error) {
	return FS.ReadFile(path)
}

// InitFiles returns the list of project scaffolding template files.
func InitFiles() ([]string, error) {
	var files []string

	err := fs.WalkDir(FS, "init", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			files = append(files, p)
		}
		return nil
	})

	return files, err
}
