package main

import (
	"os"

	"webpage-auditor/cmd/audit/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
