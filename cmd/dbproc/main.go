package main

import (
	"os"

	"github.com/ignaciocaff/dbproc/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
