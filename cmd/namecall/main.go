package main

import (
	"os"

	"github.com/kyson/namecall/internal/adapter/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
