package main

import (
	"os"

	"github.com/bnema/stars-relay/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
