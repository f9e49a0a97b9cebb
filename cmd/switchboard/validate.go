package main

import (
	"fmt"
	"os"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/switchboard-ai/switchboard/internal/netfile"
	"github.com/switchboard-ai/switchboard/internal/snapshot"
)

// Run validates each definition concurrently and reports every finding,
// warnings included. Any fatal finding in any file fails the command.
func (c *ValidateCmd) Run() error {
	var (
		mu  sync.Mutex
		bad int
		g   errgroup.Group
	)
	g.SetLimit(8)

	for _, path := range c.Files {
		g.Go(func() error {
			findings, err := validateOne(path)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
				bad++
				return nil
			}
			fatal := false
			for _, f := range findings {
				fmt.Fprintf(os.Stderr, "%s: %s\n", path, f.Error())
				if !f.Warning {
					fatal = true
				}
			}
			if fatal {
				bad++
			} else {
				fmt.Printf("%s: ok\n", path)
			}
			return nil
		})
	}
	_ = g.Wait()

	if bad > 0 {
		return fmt.Errorf("%d of %d definitions failed validation", bad, len(c.Files))
	}
	return nil
}

func validateOne(path string) ([]snapshot.ValidationError, error) {
	f, err := netfile.LoadFile(path)
	if err != nil {
		return nil, err
	}
	_, findings, err := netfile.Compile(f)
	if err != nil && len(findings) == 0 {
		return nil, err
	}
	return findings, nil
}
