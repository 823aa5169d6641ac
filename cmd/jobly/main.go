// file: cmd/jobly/main.go

package main

import (
	"os"

	"Jobly/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
