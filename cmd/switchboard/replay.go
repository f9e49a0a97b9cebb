package main

import (
	"os"

	"github.com/switchboard-ai/switchboard/internal/replay"
)

// Run renders the trace. Default is the interactive pager; --no-pager dumps
// to stdout and --follow watches a live trace as the run writes it.
func (c *ReplayCmd) Run() error {
	switch {
	case c.Follow:
		return replay.ShowFileLive(c.Trace, c.Verbose)
	case c.NoPager:
		return replay.ShowFile(os.Stdout, c.Trace, c.Verbose)
	default:
		return replay.ShowFileInteractive(c.Trace, c.Verbose)
	}
}
