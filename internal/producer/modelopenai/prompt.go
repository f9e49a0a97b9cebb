package modelopenai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/switchboard-ai/switchboard/internal/engine"
)

// renderSystem states the decision contract: what the agent is, what it may
// do, and the exact JSON shape expected back.
func renderSystem(pc engine.PromptContext) string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "You are agent %q in the %q network.\n", pc.Agent, pc.Network)
	if pc.Prompt != "" {
		buf.WriteString("\n")
		buf.WriteString(pc.Prompt)
		buf.WriteString("\n")
	}

	buf.WriteString("\nRespond with a single JSON object:\n")
	buf.WriteString(`{"reasoning": "...", "action": {"type": "...", ...}}` + "\n")
	buf.WriteString("\nAllowed action types:\n")
	if len(pc.Tools) > 0 {
		buf.WriteString(`- {"type": "USE_TOOL", "tool_key": "...", "arguments": {...}}` + "\n")
	}
	if len(pc.Routes) > 0 {
		buf.WriteString(`- {"type": "ROUTE_TO_AGENT", "target_agent": "..."}` + "\n")
	}
	if pc.AllowRespond {
		buf.WriteString(`- {"type": "RESPOND", "response": "..."}` + "\n")
	}

	if len(pc.Tools) > 0 {
		buf.WriteString("\n<tools>\n")
		for _, tool := range pc.Tools {
			fmt.Fprintf(&buf, "  <tool key=%q>\n", tool.Key)
			if tool.Description != "" {
				fmt.Fprintf(&buf, "    %s\n", tool.Description)
			}
			for _, p := range tool.Params {
				fmt.Fprintf(&buf, "    <param name=%q required=\"%t\"/>\n", p.Name, p.Required)
			}
			buf.WriteString("  </tool>\n")
		}
		buf.WriteString("</tools>\n")
	}
	if len(pc.Routes) > 0 {
		fmt.Fprintf(&buf, "\nYou may route to: %s\n", strings.Join(pc.Routes, ", "))
	}

	return buf.String()
}

// renderUser carries the run state: the task, the transcript so far, the
// current epoch's tool results, and any denial to correct.
func renderUser(pc engine.PromptContext) string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "<task>\n%s\n</task>\n", pc.UserInput)

	if len(pc.Transcript) > 0 {
		buf.WriteString("\n<transcript>\n")
		for _, e := range pc.Transcript {
			switch e.Kind {
			case engine.EntryTool:
				fmt.Fprintf(&buf, "  <step n=\"%d\" agent=%q tool=%q status=%q>%s</step>\n",
					e.Step, e.Agent, e.ToolKey, e.Status, e.ResponsePreview)
			default:
				denied := ""
				if e.Denied {
					denied = ` denied="true"`
				}
				fmt.Fprintf(&buf, "  <step n=\"%d\" agent=%q action=%q%s>%s</step>\n",
					e.Step, e.Agent, e.ActionType, denied, e.Detail)
			}
		}
		buf.WriteString("</transcript>\n")
	}

	if len(pc.ToolResults) > 0 {
		buf.WriteString("\n<tool_results>\n")
		for _, r := range pc.ToolResults {
			fmt.Fprintf(&buf, "  <result tool=%q execution_id=%q status=%q>\n", r.ToolKey, r.ExecutionID, r.Status)
			if r.Error != "" {
				fmt.Fprintf(&buf, "    %s\n", r.Error)
			} else {
				fmt.Fprintf(&buf, "    %s\n", compact(r.Response))
			}
			buf.WriteString("  </result>\n")
		}
		buf.WriteString("</tool_results>\n")
	}

	if pc.Denial != "" {
		fmt.Fprintf(&buf, "\n<denied>\nYour previous action was denied: %s\nChoose a permitted action.\n</denied>\n", pc.Denial)
	}

	return buf.String()
}

func compact(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
