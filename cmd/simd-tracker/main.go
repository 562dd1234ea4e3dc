package main

import (
	"os"

	"github.com/stake-plus/simd-tracker/src/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
