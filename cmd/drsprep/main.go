package main

import (
	"os"

	"github.com/drstools/drsprep/cmd/drsprep/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
