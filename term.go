package lineform

import (
	"os"

	"golang.org/x/term"
)

// TerminalSize returns the terminal dimensions for stdout, falling back
// to an ioctl query and finally to 80x24 when stdout is not a terminal.
func TerminalSize() (width, height int) {
	fd := int(os.Stdout.Fd())
	if term.IsTerminal(fd) {
		if w, h, err := term.GetSize(fd); err == nil {
			return w, h
		}
	}
	if w, h, ok := ioctlWinsize(fd); ok {
		return w, h
	}
	return 80, 24
}
