package llm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

var (
	ErrNoAgent         = errors.New("task has no agent")
	ErrNoGenerator     = errors.New("no language model configured")
	ErrContextNotReady = errors.New("context task has not run yet")
	ErrEmptyOutput     = errors.New("language model returned an empty answer")
)

type TaskOutput struct {
	Task  *Task
	Agent string
	Raw   string
}

// Crew runs its tasks one after another. A task starts only after the previous
// one has produced its final, reviewed output.
type Crew struct {
	Tasks     []*Task
	Generator Generator
	Reviewer  Reviewer
	Logger    zerolog.Logger
	// OnTaskStart and OnTaskDone are optional progress hooks.
	OnTaskStart func(task *Task)
	OnTaskDone  func(output TaskOutput)
}

func (c *Crew) Kickoff(ctx context.Context, inputs map[string]string) ([]TaskOutput, error) {
	done := make(map[*Task]string, len(c.Tasks))
	outputs := make([]TaskOutput, 0, len(c.Tasks))

	for _, task := range c.Tasks {
		if err := ctx.Err(); err != nil {
			return outputs, err
		}
		if c.OnTaskStart != nil {
			c.OnTaskStart(task)
		}

		raw, err := c.runTask(ctx, task, inputs, done)
		if err != nil {
			return outputs, fmt.Errorf("%s: %w", task.name(), err)
		}
		done[task] = raw

		if task.OutputFile != "" {
			path := interpolate(task.OutputFile, inputs)
			if err := writeOutputFile(path, raw); err != nil {
				return outputs, fmt.Errorf("%s: %w", task.name(), err)
			}
			c.Logger.Info().Str("task", task.name()).Str("file", path).Msg("Task output written")
		}

		out := TaskOutput{Task: task, Agent: task.Agent.Role, Raw: raw}
		outputs = append(outputs, out)
		if c.OnTaskDone != nil {
			c.OnTaskDone(out)
		}
	}

	return outputs, nil
}

func (c *Crew) runTask(ctx context.Context, task *Task, inputs map[string]string, done map[*Task]string) (string, error) {
	if task.Agent == nil {
		return "", ErrNoAgent
	}
	gen := task.Agent.LLM
	if gen == nil {
		gen = c.Generator
	}
	if gen == nil {
		return "", ErrNoGenerator
	}

	toolOutput, err := c.runTools(ctx, task.Agent, inputs)
	if err != nil {
		return "", err
	}

	var contextParts []string
	for _, dep := range task.Context {
		out, ok := done[dep]
		if !ok {
			return "", fmt.Errorf("%w: %s", ErrContextNotReady, dep.name())
		}
		contextParts = append(contextParts, out)
	}

	logger := c.Logger.With().Str("agent", task.Agent.Role).Str("task", task.name()).Logger()
	prompt := Prompt{
		System: task.Agent.systemPrompt(inputs),
		User:   taskPrompt(task, inputs, toolOutput, contextParts),
		JSON:   task.JSON,
	}

	verbose := task.Agent.Verbose
	level := zerolog.DebugLevel
	if verbose {
		level = zerolog.InfoLevel
	}

	retries := 0
	for {
		event := logger.WithLevel(level).Str("provider", gen.Provider()).Str("model", gen.Model())
		if verbose {
			event = event.Str("system", prompt.System).Str("prompt", prompt.User)
		}
		event.Msg("Working on task")

		raw, err := gen.Generate(ctx, prompt)
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(raw) == "" {
			return "", ErrEmptyOutput
		}
		event = logger.WithLevel(level).Int("chars", len(raw))
		if verbose {
			event = event.Str("output", raw)
		}
		event.Msg("Task answered")

		final := raw
		if task.Guardrail != nil {
			final, err = task.Guardrail(raw)
			if err != nil {
				if retries >= task.MaxRetries {
					return "", err
				}
				retries++
				logger.Warn().Err(err).Int("retry", retries).Msg("Output rejected, retrying")
				prompt.User = withFeedback(prompt.User, raw, "Your answer was rejected: "+err.Error())
				continue
			}
		}

		if task.HumanInput && c.Reviewer != nil {
			feedback, err := c.Reviewer.Review(ctx, task.name(), final)
			if err != nil {
				return "", fmt.Errorf("failed to collect feedback: %w", err)
			}
			if strings.TrimSpace(feedback) != "" {
				logger.Info().Msg("Feedback received, revising answer")
				prompt.User = withFeedback(prompt.User, raw, feedback)
				continue
			}
		}

		return final, nil
	}
}

func (c *Crew) runTools(ctx context.Context, agent *Agent, inputs map[string]string) (string, error) {
	var b strings.Builder
	for _, tool := range agent.Tools {
		c.Logger.Info().Str("agent", agent.Role).Str("tool", tool.Name()).Msg("Using tool")
		out, err := tool.Run(ctx, inputs)
		if err != nil {
			return "", fmt.Errorf("tool %s: %w", tool.Name(), err)
		}
		fmt.Fprintf(&b, "Tool: %s\nDescription: %s\nResult:\n%s\n\n", tool.Name(), tool.Description(), out)
	}
	return b.String(), nil
}

func taskPrompt(task *Task, inputs map[string]string, toolOutput string, contextParts []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Current Task: %s\n\n", interpolate(task.Description, inputs))
	fmt.Fprintf(&b, "This is the expected criteria for your final answer: %s\n", interpolate(task.ExpectedOutput, inputs))
	b.WriteString("You MUST return the actual complete content as the final answer, not a summary.\n")
	if toolOutput != "" {
		b.WriteString("\nYou already used your tools. Their results:\n\n")
		b.WriteString(toolOutput)
	}
	if len(contextParts) > 0 {
		b.WriteString("\nThis is the context you're working with:\n")
		b.WriteString(strings.Join(contextParts, "\n\n----------\n\n"))
		b.WriteString("\n")
	}
	return b.String()
}

func withFeedback(prompt, previous, feedback string) string {
	return fmt.Sprintf("%s\n\nYour previous answer was:\n%s\n\nFeedback:\n%s\n\nRevise your answer accordingly and return the complete final answer.", prompt, previous, feedback)
}

func writeOutputFile(path, content string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}
