//go:build unix

package lineform

import "golang.org/x/sys/unix"

// ioctlWinsize queries the kernel directly for the window size.
func ioctlWinsize(fd int) (width, height int, ok bool) {
	ws, err := unix.IoctlGetWinsize(fd, unix.TIOCGWINSZ)
	if err != nil {
		return 0, 0, false
	}
	return int(ws.Col), int(ws.Row), true
}
