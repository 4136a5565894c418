package cmd

import (
	"errors"
	"fmt"
	"os"
)

var (
	errUsage        = errors.New("usage")
	errChecksFailed = errors.New("one or more checks failed")
)

// Execute runs the CLI and returns the process exit code: 2 for usage and
// invalid requests, 3 when the report contains failed checks.
func Execute() int {
	root := newRootCmd()
	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)
	return exitCode(root.Execute())
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errUsage):
		return 2
	case errors.Is(err, errChecksFailed):
		return 3
	default:
		fmt.Fprintln(os.Stderr, "ERROR:", err)
		return 1
	}
}
