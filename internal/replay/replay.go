package replay

import (
	"fmt"
	"io"

	"github.com/switchboard-ai/switchboard/internal/trace"
)

// ShowFile renders a trace file to the writer, without paging.
func ShowFile(w io.Writer, path string, verbose bool) error {
	tr, err := trace.Load(path)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, Render(tr, verbose))
	return err
}

// ShowFileInteractive renders a trace file in the pager.
func ShowFileInteractive(path string, verbose bool) error {
	tr, err := trace.Load(path)
	if err != nil {
		return err
	}
	p := NewPager(fmt.Sprintf("Run %s", tr.RunID))
	return p.Run(Render(tr, verbose))
}

// ShowFileLive follows a trace file in the pager, re-rendering as the run
// writes new records.
func ShowFileLive(path string, verbose bool) error {
	tr, err := trace.Load(path)
	if err != nil {
		return err
	}
	p := NewPager(fmt.Sprintf("Run %s (live)", tr.RunID))
	return p.RunLive(path, func() (string, error) {
		tr, err := trace.Load(path)
		if err != nil {
			return "", err
		}
		return Render(tr, verbose), nil
	})
}
