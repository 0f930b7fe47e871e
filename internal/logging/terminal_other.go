//go:build !windows && !linux

package logging

import "syscall"

// tcgets is the ioctl number for getting terminal attributes on BSD-derived
// systems (macOS included), which use TIOCGETA instead of Linux's TCGETS.
const tcgets = syscall.TIOCGETA
