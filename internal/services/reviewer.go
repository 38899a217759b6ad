package services

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ConsoleReviewer shows a task output on out and reads one line of feedback
// from in. Pressing enter accepts the output.
type ConsoleReviewer struct {
	in  *bufio.Reader
	out io.Writer
}

func NewConsoleReviewer(in io.Reader, out io.Writer) *ConsoleReviewer {
	return &ConsoleReviewer{in: bufio.NewReader(in), out: out}
}

func (r *ConsoleReviewer) Review(ctx context.Context, taskName, output string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	fmt.Fprintf(r.out, "\n## Final result of %q:\n%s\n\n", taskName, output)
	fmt.Fprint(r.out, "Provide feedback to revise the result, or press Enter to accept: ")

	line, err := r.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
