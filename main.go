package main

import (
	"fmt"
	"os"

	"github.com/opaquefs/freedom/internal/cmd"
	"github.com/opaquefs/freedom/internal/output"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(output.ExitFor(err))
	}
}
