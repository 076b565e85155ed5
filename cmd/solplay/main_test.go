package main

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/urfave/cli/v2"
)

// runApp runs the CLI with args and returns stdout, stderr and the error.
// Exit codes are captured in the error rather than terminating the test.
func runApp(t *testing.T, stdin io.Reader, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	app := newApp()
	app.Writer = &stdout
	app.ErrWriter = &stderr
	if stdin != nil {
		app.Reader = stdin
	} else {
		app.Reader = strings.NewReader("")
	}
	app.ExitErrHandler = func(*cli.Context, error) {}

	err := app.RunContext(context.Background(), append([]string{"solplay"}, args...))
	return stdout.String(), stderr.String(), err
}
