package main

import (
	"os"

	"webpage-auditor/cmd/devtool/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
