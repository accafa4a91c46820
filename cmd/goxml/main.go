// Command goxml exercises the streaming XML pipeline end-to-end: lexing,
// parsing, re-encoding, and round-trip verification of a file or stdin.
// It replaces the teacher's hand-rolled flag/os.Args switch (cli.go) with
// cobra subcommands.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "goxml: %v\n", err)
		os.Exit(1)
	}
}
