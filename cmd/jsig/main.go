package main

import (
	"os"

	"github.com/corey/jsig/cmd/jsig/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
