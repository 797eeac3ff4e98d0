package combine

import (
	"bytes"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"relax3d/internal/common/fsutil"
)

// ErrDatNotFound is returned by StripHeader when the data file exists in
// neither the folder nor the working directory.
var ErrDatNotFound = errors.New("data file not found")

// Candidates lists the numeric slice values between min and max: every
// whole value v plus v+0.5 and v+0.6 when they do not exceed max. A
// fractional min is kept as the first value.
func Candidates(min, max float64) []float64 {
	var out []float64
	for v := min; v <= max; v = float64(int(v) + 1) {
		out = append(out, v)
		if v != float64(int(v)) {
			continue
		}
		for _, d := range []float64{0.5, 0.6} {
			if v+d <= max {
				out = append(out, v+d)
			}
		}
	}
	return out
}

// FileName formats a slice file name: whole values print without decimals.
func FileName(typ string, v float64) string {
	return typ + strconv.FormatFloat(v, 'f', -1, 64) + ".txt"
}

// FileList returns the slice files of type typ in dir whose value lies in
// [min, max], in ascending order. Only existing files are listed.
func FileList(dir, typ string, min, max float64) []string {
	var files []string
	for _, v := range Candidates(min, max) {
		name := FileName(typ, v)
		if fsutil.FileExists(filepath.Join(dir, name)) {
			files = append(files, name)
		}
	}
	return files
}

// StripHeader removes the first n lines of the data file, looked up in
// folder first and then in the working directory, and returns them with
// surrounding whitespace trimmed. The rest of the file is kept byte for byte.
func StripHeader(folder, name string, n int) (path string, removed []string, err error) {
	path = filepath.Join(folder, name)
	if !fsutil.FileExists(path) {
		path = name
		if !fsutil.FileExists(path) {
			return "", nil, errors.Wrapf(ErrDatNotFound, "%s in %s or working directory", name, folder)
		}
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return path, nil, errors.Wrap(err, "read data file")
	}
	lines := bytes.SplitAfter(b, []byte("\n"))
	if len(lines) > 0 && len(lines[len(lines)-1]) == 0 {
		lines = lines[:len(lines)-1]
	}
	if len(lines) < n {
		return path, nil, errors.Errorf("%s has fewer than %d lines (%d found)", path, n, len(lines))
	}
	for _, l := range lines[:n] {
		removed = append(removed, strings.TrimSpace(string(l)))
	}
	st, err := os.Stat(path)
	if err != nil {
		return path, nil, errors.Wrap(err, "stat data file")
	}
	if err := fsutil.WriteFileAtomic(path, bytes.Join(lines[n:], nil), st.Mode().Perm()); err != nil {
		return path, nil, errors.Wrap(err, "rewrite data file")
	}
	return path, removed, nil
}
