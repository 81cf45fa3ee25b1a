package main

import (
	"fmt"
	"strings"

	"github.com/mattn/go-tty"
)

// interactive reads commands from the controlling terminal until "quit" or
// end of input.
func interactive(it *interp, out *printer) error {
	t, err := tty.Open()
	if err != nil {
		return fmt.Errorf("open terminal: %w", err)
	}
	defer t.Close()

	for {
		out.Printf("gc> ")
		line, err := t.ReadString()
		if err != nil {
			return err
		}
		out.Printf("%s\n", line)
		line = strings.TrimSpace(line)
		if line == "quit" || line == "exit" {
			return nil
		}
		if line == "help" {
			for _, cmd := range commandOrder {
				out.Printf("  %s\n", usage[cmd])
			}
			continue
		}
		if err := it.Exec(line); err != nil {
			out.Fail("%v", err)
		}
	}
}

var commandOrder = []string{
	"string", "slots", "set", "get", "drop", "print",
	"xescape", "encode", "garbage", "collect", "stats", "assert-live",
}
