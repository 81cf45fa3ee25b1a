package main

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

const (
	colorRed   = "\x1b[31m"
	colorGreen = "\x1b[32m"
	colorReset = "\x1b[0m"
)

// printer writes driver output, in colour when it goes to a terminal.
type printer struct {
	w     io.Writer
	color bool
}

// newStdoutPrinter returns a printer on standard output. Colours are used
// only if standard output is a terminal; on Windows the escape sequences are
// translated by go-colorable.
func newStdoutPrinter() *printer {
	fd := os.Stdout.Fd()
	return &printer{
		w:     colorable.NewColorableStdout(),
		color: isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd),
	}
}

func (p *printer) Printf(format string, args ...interface{}) {
	fmt.Fprintf(p.w, format, args...)
}

func (p *printer) colored(color, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if p.color {
		msg = color + msg + colorReset
	}
	fmt.Fprintln(p.w, msg)
}

// OK prints a success line.
func (p *printer) OK(format string, args ...interface{}) {
	p.colored(colorGreen, format, args...)
}

// Fail prints a failure line.
func (p *printer) Fail(format string, args ...interface{}) {
	p.colored(colorRed, format, args...)
}
