//go:build !unix

package lineform

func ioctlWinsize(fd int) (width, height int, ok bool) {
	return 0, 0, false
}
