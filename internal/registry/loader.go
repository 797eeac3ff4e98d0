package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"relax3d/internal/common/fsutil"
	"relax3d/pkg/types"
)

// LoadDir scans a directory for *.exe files. Name is the file name without
// extension (which is also the window title the tools show); Path is absolute.
func LoadDir(dir string) ([]types.Tool, error) {
	base, err := fsutil.ExpandHome(dir)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var tools []types.Tool
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		ext := filepath.Ext(name)
		if !strings.EqualFold(ext, ".exe") {
			continue
		}
		tools = append(tools, types.Tool{Name: strings.TrimSuffix(name, ext), Path: filepath.Join(abs, name)})
	}
	sort.Slice(tools, func(i, j int) bool { return tools[i].Name < tools[j].Name })
	return tools, nil
}

// MissingToolsError lists required executables that are not on disk.
type MissingToolsError struct {
	Missing []string
}

func (e *MissingToolsError) Error() string {
	return "missing executables: " + strings.Join(e.Missing, ", ")
}

// Verify checks that every path is an existing regular file. It returns a
// *MissingToolsError naming all absent ones.
func Verify(paths []string) error {
	var missing []string
	for _, p := range paths {
		if !fsutil.FileExists(p) {
			missing = append(missing, p)
		}
	}
	if len(missing) > 0 {
		return &MissingToolsError{Missing: missing}
	}
	return nil
}

// Check compares the required tool names against a scanned directory and
// reports which are present. Names compare case-insensitively.
func Check(dir string, required []string) (present []types.Tool, missing []string, err error) {
	tools, err := LoadDir(dir)
	if err != nil {
		return nil, nil, err
	}
	byName := make(map[string]types.Tool, len(tools))
	for _, t := range tools {
		byName[strings.ToLower(t.Name)] = t
	}
	for _, r := range required {
		if t, ok := byName[strings.ToLower(strings.TrimSuffix(r, filepath.Ext(r)))]; ok {
			present = append(present, t)
		} else {
			missing = append(missing, r)
		}
	}
	return present, missing, nil
}
