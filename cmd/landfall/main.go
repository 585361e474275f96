package main

import (
	"os"

	"github.com/landfall-sh/landfall/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
