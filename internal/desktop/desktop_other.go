//go:build !windows

package desktop

// New reports ErrUnsupported: window discovery and key injection only exist on Win32.
func New() (Desktop, error) { return nil, ErrUnsupported }
