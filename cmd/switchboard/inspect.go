package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Run compiles the definition and prints the resulting snapshot in a
// human-readable layout, or as JSON with --json.
func (c *InspectCmd) Run() error {
	snap, err := compileFile(c.File, os.Stderr)
	if err != nil {
		return err
	}

	if c.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	}

	fmt.Printf("network %s\n", snap.Name)
	fmt.Printf("  policy: max_steps=%d max_tool_errors=%d\n", snap.Policy.MaxSteps, snap.Policy.MaxToolErrors)

	fmt.Println("\nagents:")
	for _, a := range snap.Agents {
		marks := make([]string, 0, 2)
		if a.Key == snap.DefaultAgentKey {
			marks = append(marks, "default")
		}
		if a.AllowRespond {
			marks = append(marks, "responds")
		}
		suffix := ""
		if len(marks) > 0 {
			suffix = " (" + strings.Join(marks, ", ") + ")"
		}
		fmt.Printf("  %s%s\n", a.Key, suffix)
		if len(a.EquippedTools) > 0 {
			fmt.Printf("    tools:  %s\n", strings.Join(a.EquippedTools, ", "))
		}
		if len(a.AllowedRoutes) > 0 {
			fmt.Printf("    routes: %s\n", strings.Join(a.AllowedRoutes, ", "))
		}
	}

	if len(snap.Tools) > 0 {
		fmt.Println("\ntools:")
		for _, t := range snap.Tools {
			fmt.Printf("  %s\n", t.Key)
			for _, p := range t.Params {
				req := "optional"
				if p.Required {
					req = "required"
				}
				line := fmt.Sprintf("    %s (%s, %s)", p.Name, p.Source, req)
				if p.Default != nil {
					line += fmt.Sprintf(" default=%v", p.Default)
				}
				fmt.Println(line)
			}
		}
	}
	return nil
}
