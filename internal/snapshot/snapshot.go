// Package snapshot defines the compiled, immutable description of an agent
// network and the validator that gates publishing.
//
// A Snapshot is produced once by the compiler (internal/netfile), validated,
// and then shared read-only by any number of concurrent runs. Nothing in this
// package mutates a Snapshot after it is built.
package snapshot

import "fmt"

// ParamSource declares where a tool parameter's value comes from.
type ParamSource string

const (
	// ParamSourceAgent means the deciding agent supplies the value.
	ParamSourceAgent ParamSource = "agent"
	// ParamSourceSystem means the value comes from the caller's system
	// parameter map and is never satisfiable from agent-supplied input.
	ParamSourceSystem ParamSource = "system"
	// ParamSourceDefault means the declared default applies when the agent
	// omits the value.
	ParamSourceDefault ParamSource = "default"
)

// Valid reports whether s is a recognized parameter source.
func (s ParamSource) Valid() bool {
	switch s {
	case ParamSourceAgent, ParamSourceSystem, ParamSourceDefault:
		return true
	}
	return false
}

// ParamSpec describes one declared tool parameter.
type ParamSpec struct {
	Name     string      `json:"name"`
	Source   ParamSource `json:"source"`
	Required bool        `json:"required"`
	Default  any         `json:"default,omitempty"`
}

// Tool is a callable capability agents may be equipped with.
type Tool struct {
	Key         string      `json:"key"`
	Description string      `json:"description,omitempty"`
	Params      []ParamSpec `json:"params,omitempty"`
}

// Agent is a named role in the network.
type Agent struct {
	Key           string   `json:"key"`
	Prompt        string   `json:"prompt,omitempty"`
	IsDefault     bool     `json:"is_default,omitempty"`
	AllowRespond  bool     `json:"allow_respond,omitempty"`
	EquippedTools []string `json:"equipped_tools,omitempty"`
	AllowedRoutes []string `json:"allowed_routes,omitempty"`
}

// HasTool reports whether the agent is equipped with the given tool key.
func (a *Agent) HasTool(key string) bool {
	for _, t := range a.EquippedTools {
		if t == key {
			return true
		}
	}
	return false
}

// CanRouteTo reports whether the agent may hand control to the given agent key.
func (a *Agent) CanRouteTo(key string) bool {
	for _, r := range a.AllowedRoutes {
		if r == key {
			return true
		}
	}
	return false
}

// Route is one directed edge in the control-routing adjacency.
type Route struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Policy holds the runtime limits compiled into the snapshot.
type Policy struct {
	MaxSteps      int `json:"max_steps"`
	MaxToolErrors int `json:"max_tool_errors"`
}

// Snapshot is the validated, read-only graph description a run executes
// against. Agents and Tools keep their authoring order; Routes is the
// adjacency the validator traverses.
type Snapshot struct {
	Name            string  `json:"name"`
	Agents          []Agent `json:"agents"`
	Tools           []Tool  `json:"tools"`
	Routes          []Route `json:"routes"`
	DefaultAgentKey string  `json:"default_agent_key"`
	Policy          Policy  `json:"policy"`
}

// Agent returns the agent with the given key.
func (s *Snapshot) Agent(key string) (*Agent, bool) {
	for i := range s.Agents {
		if s.Agents[i].Key == key {
			return &s.Agents[i], true
		}
	}
	return nil, false
}

// Tool returns the tool with the given key.
func (s *Snapshot) Tool(key string) (*Tool, bool) {
	for i := range s.Tools {
		if s.Tools[i].Key == key {
			return &s.Tools[i], true
		}
	}
	return nil, false
}

// AgentKeys returns all agent keys in authoring order.
func (s *Snapshot) AgentKeys() []string {
	keys := make([]string, len(s.Agents))
	for i := range s.Agents {
		keys[i] = s.Agents[i].Key
	}
	return keys
}

// adjacency builds the forward routing map from the route list.
func (s *Snapshot) adjacency() map[string][]string {
	adj := make(map[string][]string, len(s.Agents))
	for _, r := range s.Routes {
		adj[r.From] = append(adj[r.From], r.To)
	}
	return adj
}

func (s *Snapshot) String() string {
	return fmt.Sprintf("snapshot %q: %d agents, %d tools, %d routes",
		s.Name, len(s.Agents), len(s.Tools), len(s.Routes))
}
