package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/aws-solutions-library-samples/guidance-for-claude-code-with-amazon-bedrock/cmd"
	errUtils "github.com/aws-solutions-library-samples/guidance-for-claude-code-with-amazon-bedrock/errors"
	log "github.com/aws-solutions-library-samples/guidance-for-claude-code-with-amazon-bedrock/pkg/logger"
)

func main() {
	// Exit with the POSIX convention (128 + signal number) on interrupt so
	// the AWS CLI reports a sensible credential_process failure.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		if s, ok := sig.(syscall.Signal); ok {
			errUtils.OsExit(128 + int(s))
		}
		errUtils.OsExit(130)
	}()

	// Use errUtils.OsExit to allow test interception.
	errUtils.OsExit(run())
}

// run executes the CLI and returns an exit code. Split out of main so defers
// run before the process exits.
func run() int {
	// Handle `ccwb-auth --version` before command dispatch: the root command
	// otherwise treats a bare flag invocation as a credential request.
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		if err := cmd.ExecuteVersion(); err != nil {
			os.Stderr.WriteString(err.Error() + "\n")
			return errUtils.GetExitCode(err)
		}
		return 0
	}

	if err := cmd.Execute(); err != nil {
		os.Stderr.WriteString("Error: " + err.Error() + "\n")
		exitCode := errUtils.GetExitCode(err)
		log.Debug("Exiting with exit code", "code", exitCode)
		return exitCode
	}
	return 0
}
