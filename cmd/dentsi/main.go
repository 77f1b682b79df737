// Command dentsi is a terminal client for the dental voice-agent backend
package main

import (
	"os"

	"github.com/briangreenhill/dentsi/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
