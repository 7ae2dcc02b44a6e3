package main

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

// shouldColorize reports whether w is an interactive terminal that accepts
// ANSI colour. NO_COLOR disables colour everywhere.
func shouldColorize(w io.Writer) bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
