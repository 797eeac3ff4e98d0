package pipeline

import (
	"fmt"
	"strings"
)

// Option selects the field configuration: large-field or small-field.
type Option string

const (
	OptionL Option = "L"
	OptionS Option = "S"
)

// ParseOption accepts "L"/"S" in either case.
func ParseOption(s string) (Option, error) {
	switch o := Option(strings.ToUpper(strings.TrimSpace(s))); o {
	case OptionL, OptionS:
		return o, nil
	default:
		return "", fmt.Errorf("invalid option %q (want L or S)", s)
	}
}

// Mode selects how much of preprocessing runs.
type Mode string

const (
	// ModePreview runs geometry import and field setup only.
	ModePreview Mode = "P"
	// ModeRun runs all six preprocessing tools.
	ModeRun Mode = "R"
)

// ParseMode accepts "P"/"R" in either case.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToUpper(strings.TrimSpace(s))); m {
	case ModePreview, ModeRun:
		return m, nil
	default:
		return "", fmt.Errorf("invalid mode %q (want P or R)", s)
	}
}

// Request is a preprocessing request.
type Request struct {
	File   string
	Option Option
	Mode   Mode
}

// Validate rejects unknown options and modes and files that are not .dxf.
func (r Request) Validate() error {
	if _, err := ParseOption(string(r.Option)); err != nil {
		return err
	}
	if _, err := ParseMode(string(r.Mode)); err != nil {
		return err
	}
	if !hasDXFSuffix(r.BaseName()) {
		return fmt.Errorf("invalid file %q: must be a .dxf file", r.File)
	}
	return nil
}

// BaseName is the file name without any directory. Both separators are
// stripped whatever the host, since the name is typed as keystrokes and the
// tools open it from their working directory.
func (r Request) BaseName() string {
	if i := strings.LastIndexAny(r.File, `/\`); i >= 0 {
		return r.File[i+1:]
	}
	return r.File
}

// LayerName is the file name without directory and .dxf extension.
func (r Request) LayerName() string {
	base := r.BaseName()
	if hasDXFSuffix(base) {
		base = base[:len(base)-len(".dxf")]
	}
	return base
}

func hasDXFSuffix(s string) bool {
	return len(s) > len(".dxf") && strings.EqualFold(s[len(s)-len(".dxf"):], ".dxf")
}

// OutputFilename derives the divide output name: the option letter, then the
// layer name with one leading L/S letter removed, then ".txt".
func OutputFilename(file string, opt Option) string {
	prefix := "S"
	if opt == OptionL {
		prefix = "L"
	}
	suffix := Request{File: file}.LayerName()
	if suffix != "" && (suffix[0] == 'L' || suffix[0] == 'S') {
		suffix = suffix[1:]
	}
	return prefix + suffix + ".txt"
}
