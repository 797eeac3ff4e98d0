// Package bookkeeping renames the solver's output files after a finished
// relaxation and moves them into the field archive directory.
package bookkeeping

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"relax3d/internal/common/fsutil"
	"relax3d/internal/config"
)

// Solver output files, relative to the work directory.
const (
	FieldFile  = "RELAX3D_V.OUT"
	HeaderFile = "convert.dat"
)

// Request names one archived result.
type Request struct {
	Model string // option letter, L or S
	Label string
	Date  time.Time
}

// Moved records one file that reached the archive.
type Moved struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// Report is the outcome of an archive pass. Files missing from the work
// directory are listed in Missing; they do not stop the others.
type Report struct {
	Moved   []Moved  `json:"moved"`
	Missing []string `json:"missing,omitempty"`
}

// Complete reports whether every output file was archived.
func (r Report) Complete() bool { return len(r.Missing) == 0 }

// Names returns the archive names of the field and header files:
// cyc_<type>_C<model><MMDD><label>.efld and .head.
func Names(cyclotronType, model string, date time.Time, label string) (field, header string) {
	base := fmt.Sprintf("cyc_%s_C%s%s%s", cyclotronType, model, date.Format("0102"), label)
	return base + ".efld", base + ".head"
}

// Archiver moves solver output from WorkDir into TargetDir.
type Archiver struct {
	WorkDir       string
	TargetDir     string
	CyclotronType string

	log zerolog.Logger
}

func NewArchiver(out config.Output, log zerolog.Logger) *Archiver {
	return &Archiver{WorkDir: out.WorkDir, TargetDir: out.TargetDir, CyclotronType: out.CyclotronType, log: log}
}

func (a *Archiver) check(req Request) error {
	switch {
	case strings.TrimSpace(a.TargetDir) == "":
		return config.ErrMissingKey("output.target_dir")
	case strings.TrimSpace(a.CyclotronType) == "":
		return config.ErrMissingKey("output.cyclotron_type")
	case req.Model == "":
		return fmt.Errorf("model is required")
	}
	return nil
}

// Archive renames and moves both output files. The target directory is
// created if missing. A zero Date means today.
func (a *Archiver) Archive(req Request) (Report, error) {
	if err := a.check(req); err != nil {
		return Report{}, err
	}
	if req.Date.IsZero() {
		req.Date = time.Now()
	}
	field, header := Names(a.CyclotronType, req.Model, req.Date, req.Label)
	a.log.Info().Str("model", req.Model).Str("label", req.Label).Str("date", req.Date.Format("0102")).Msg("archiving solver output")

	if err := os.MkdirAll(a.TargetDir, 0o755); err != nil {
		return Report{}, fmt.Errorf("create target dir: %w", err)
	}

	var rep Report
	for _, f := range []struct{ src, dst string }{{FieldFile, field}, {HeaderFile, header}} {
		src := filepath.Join(a.WorkDir, f.src)
		if !fsutil.FileExists(src) {
			a.log.Error().Str("file", src).Msg("output file not found")
			rep.Missing = append(rep.Missing, f.src)
			continue
		}
		dst := filepath.Join(a.TargetDir, f.dst)
		if err := fsutil.MoveFile(src, dst); err != nil {
			return rep, fmt.Errorf("move %s: %w", f.src, err)
		}
		a.log.Info().Str("from", src).Str("to", dst).Msg("moved")
		rep.Moved = append(rep.Moved, Moved{Source: src, Target: dst})
	}
	return rep, nil
}
