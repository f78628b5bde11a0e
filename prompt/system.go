package prompt

import (
	"github.com/hupe1980/agentcoord/tool"
)

const systemTemplate = `You are an AI agent specialized in influencer marketing with access to real-time data and tools.
Your specialization: {{.AgentType}}

AVAILABLE TOOLS:
{{- range .Tools}}
- {{.Name}}: {{default "No description" .Description}}
{{- else}}
- none
{{- end}}

TOOL CALLING INSTRUCTIONS:
{{bullets .ToolRules}}

RESPONSE REQUIREMENTS:
{{bullets .ResponseRules}}
`

// System renders the system context for agentType listing its tools.
func (b *Builder) System(agentType string, tools []tool.Descriptor) string {
	out, err := execute(b.system, struct {
		AgentType     string
		Tools         []tool.Descriptor
		ToolRules     []string
		ResponseRules []string
	}{agentType, tools, toolRules, responseRules})
	if err != nil {
		b.logger.Error("prompt.system_failed", "agent_type", agentType, "error", err.Error())
		return "Your specialization: " + agentType
	}
	return out
}
