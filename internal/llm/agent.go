package llm

import (
	"context"
	"fmt"
	"strings"
)

// Prompt is one completion request as seen by a backend.
type Prompt struct {
	System string
	User   string
	// JSON asks the backend to return a single JSON object.
	JSON bool
}

// Generator is a hosted language model.
type Generator interface {
	Generate(ctx context.Context, prompt Prompt) (string, error)
	Provider() string
	Model() string
}

// Tool is something an agent can consult before answering. Its output is added
// to the agent's prompt.
type Tool interface {
	Name() string
	Description() string
	Run(ctx context.Context, inputs map[string]string) (string, error)
}

// Reviewer is asked for feedback on a task output that requires human input.
// An empty answer accepts the output.
type Reviewer interface {
	Review(ctx context.Context, taskName, output string) (string, error)
}

type Agent struct {
	Role      string
	Goal      string
	Backstory string
	Tools     []Tool
	Verbose   bool
	// LLM overrides the crew generator for this agent.
	LLM Generator
}

func (a *Agent) systemPrompt(inputs map[string]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s. %s\n", interpolate(a.Role, inputs), interpolate(a.Backstory, inputs))
	fmt.Fprintf(&b, "Your personal goal is: %s", interpolate(a.Goal, inputs))
	return b.String()
}

type Task struct {
	Name           string
	Description    string
	ExpectedOutput string
	Agent          *Agent
	// Context lists tasks whose outputs are handed to this one.
	Context    []*Task
	OutputFile string
	HumanInput bool
	JSON       bool
	// Guardrail validates and may rewrite the raw output. A guardrail error
	// re-runs the task with the error as feedback, at most MaxRetries times.
	Guardrail  func(output string) (string, error)
	MaxRetries int
}

func (t *Task) name() string {
	if t.Name != "" {
		return t.Name
	}
	if t.Agent != nil {
		return t.Agent.Role
	}
	return "task"
}

func interpolate(text string, inputs map[string]string) string {
	if len(inputs) == 0 || !strings.Contains(text, "{") {
		return text
	}
	pairs := make([]string, 0, len(inputs)*2)
	for k, v := range inputs {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(text)
}
