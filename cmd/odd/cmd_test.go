package main

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/spf13/cobra"
)

// newTestCommand returns a command whose output is captured in out.
func newTestCommand(t *testing.T, stdin string) (*cobra.Command, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	cmd.SetIn(bytes.NewBufferString(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)

	prevCfg, prevVerbose := cfgFile, verbose
	cfgFile, verbose = "", false
	t.Cleanup(func() { cfgFile, verbose = prevCfg, prevVerbose })
	return cmd, &out
}
