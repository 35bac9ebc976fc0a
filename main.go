package main

import (
	"os"

	"github.com/matrixise/sui-friday/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
