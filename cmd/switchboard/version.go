package main

import "fmt"

func (c *VersionCmd) Run() error {
	fmt.Printf("switchboard %s (commit %s, built %s)\n", version, commit, buildTime)
	return nil
}
