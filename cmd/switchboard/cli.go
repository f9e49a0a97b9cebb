// Package main defines the CLI structure using kong.
package main

// CLI defines the command-line interface.
type CLI struct {
	Run      RunCmd      `cmd:"" help:"Execute a run over a network definition"`
	Validate ValidateCmd `cmd:"" help:"Validate network definitions"`
	Inspect  InspectCmd  `cmd:"" help:"Show a compiled network snapshot"`
	Replay   ReplayCmd   `cmd:"" help:"Replay a run trace"`
	Version  VersionCmd  `cmd:"" help:"Show version information"`
}

// RunCmd executes one run over a compiled network.
type RunCmd struct {
	File    string            `arg:"" help:"Network definition (.toml, .yaml)"`
	Input   string            `short:"i" help:"User input for the run"`
	Start   string            `help:"Start agent (defaults to the network's default agent)"`
	System  map[string]string `short:"s" help:"System parameter key=value (repeatable)" mapsep:","`
	Config  string            `short:"c" help:"Config file path (default: ./switchboard.toml)"`

	Script   string `help:"Decision script JSON (scripted producer instead of the model)"`
	Fixtures string `help:"Tool fixture JSON (canned tool outcomes)"`

	MaxSteps        int    `help:"Step guard override"`
	MaxToolErrors   int    `help:"Consecutive tool failure guard override"`
	ToolTimeout     string `help:"Per-tool timeout override, e.g. 30s"`
	TolerateDenials bool   `help:"Feed permission denials back to the producer instead of failing"`

	Trace   string `help:"Trace file path (default: <trace dir>/<run id>.jsonl)"`
	NoTrace bool   `help:"Disable trace writing"`
	JSON    bool   `help:"Print the full run result as JSON"`
}

// ValidateCmd validates one or more network definitions.
type ValidateCmd struct {
	Files []string `arg:"" help:"Network definition paths"`
}

// InspectCmd shows the compiled snapshot of a network definition.
type InspectCmd struct {
	File string `arg:"" help:"Network definition path"`
	JSON bool   `help:"Print the snapshot as JSON"`
}

// ReplayCmd renders a run trace.
type ReplayCmd struct {
	Trace   string `arg:"" help:"Trace file path"`
	Verbose bool   `short:"v" help:"Include full tool records"`
	NoPager bool   `help:"Print to stdout instead of the pager"`
	Follow  bool   `short:"f" help:"Follow a live trace as it is written"`
}

// VersionCmd shows version information.
type VersionCmd struct{}
