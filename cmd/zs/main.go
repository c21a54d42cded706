package main

import (
	"os"

	"github.com/bnema/zepp-steps-cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
