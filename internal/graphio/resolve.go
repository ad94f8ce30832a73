package graphio

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/specialistvlad/tempogrid/internal/ctxlog"
)

const fileExtension = ".hcl"

// ResolveGraphPath takes a path and returns all graph files it names.
// A file must have the .hcl extension; a directory is scanned recursively.
func ResolveGraphPath(ctx context.Context, path string) ([]string, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Resolving graph path.", "path", path)
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("graph path not found: %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("error accessing path %s: %w", path, err)
	}

	if info.IsDir() {
		logger.Debug("Path is a directory, scanning for HCL files.", "directory", path)
		return findGraphFiles(path)
	}

	if filepath.Ext(path) != fileExtension {
		return nil, fmt.Errorf("specified file is not an %s file: %s", fileExtension, path)
	}
	return []string{path}, nil
}

// findGraphFiles returns every .hcl file below rootDir in lexical order.
func findGraphFiles(rootDir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(rootDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && filepath.Ext(path) == fileExtension {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}
