// Package netfile loads agent network definitions from TOML or YAML files
// and compiles them into validated snapshots.
package netfile

// File is the on-disk shape of a network definition. Field names match the
// TOML/YAML authoring format; compilation turns this into a read-only
// snapshot.
type File struct {
	Name   string     `toml:"name" yaml:"name"`
	Policy PolicyDef  `toml:"policy" yaml:"policy"`
	Tools  []ToolDef  `toml:"tools" yaml:"tools"`
	Agents []AgentDef `toml:"agents" yaml:"agents"`

	// BaseDir is the directory the file was loaded from; prompt_file paths
	// resolve relative to it.
	BaseDir string `toml:"-" yaml:"-"`
}

// PolicyDef carries the optional runtime limits. Zero values mean the engine
// defaults apply.
type PolicyDef struct {
	MaxSteps      int `toml:"max_steps" yaml:"max_steps"`
	MaxToolErrors int `toml:"max_tool_errors" yaml:"max_tool_errors"`
}

// ToolDef declares one tool and its parameter contract.
type ToolDef struct {
	Key         string     `toml:"key" yaml:"key"`
	Description string     `toml:"description" yaml:"description"`
	Params      []ParamDef `toml:"params" yaml:"params"`
}

// ParamDef declares one tool parameter. Source is one of "agent", "system"
// or "default"; an empty source means "agent".
type ParamDef struct {
	Name     string `toml:"name" yaml:"name"`
	Source   string `toml:"source" yaml:"source"`
	Required bool   `toml:"required" yaml:"required"`
	Default  any    `toml:"default" yaml:"default"`
}

// AgentDef declares one agent, its capabilities and its outgoing routes.
// The prompt may be inline or loaded from a file next to the netfile.
type AgentDef struct {
	Key        string   `toml:"key" yaml:"key"`
	Prompt     string   `toml:"prompt" yaml:"prompt"`
	PromptFile string   `toml:"prompt_file" yaml:"prompt_file"`
	Default    bool     `toml:"default" yaml:"default"`
	Respond    bool     `toml:"respond" yaml:"respond"`
	Tools      []string `toml:"tools" yaml:"tools"`
	Routes     []string `toml:"routes" yaml:"routes"`
}
