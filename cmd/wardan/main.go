package main

import (
	"fmt"
	"os"
)

func main() {
	wiring := defaultCommandWiring(os.Stdin, os.Stdout, os.Stderr)
	root := newRootCommand(wiring)
	if err := root.Execute(); err != nil {
		fmt.Fprintf(wiring.stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
