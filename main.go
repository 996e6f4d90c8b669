package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/temirov/gitfo/cmd/cli"
)

const (
	exitErrorTemplateConstant      = "%v\n"
	defaultFailureExitCodeConstant = 1
)

// main executes the gitfo command-line application.
func main() {
	os.Exit(run())
}

func run() int {
	executionError := cli.Execute()
	if executionError == nil {
		return 0
	}

	fmt.Fprintf(os.Stderr, exitErrorTemplateConstant, executionError)
	var exitError cli.ExitError
	if errors.As(executionError, &exitError) && exitError.Code != 0 {
		return exitError.Code
	}
	return defaultFailureExitCodeConstant
}
