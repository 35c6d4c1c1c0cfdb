package adapters

import (
	"fmt"
	"io"
	"os"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"cascade-builds/internal/ports"
	"cascade-builds/internal/shared"
	"cascade-builds/internal/types"
)

const (
	planHeader = "Repositories that will be cloned and built:"
	planEmpty  = "No required repositories found."
)

// PlanLogWriter prints the ordered plan, one "<clone-url>:<refspec>" line
// per entry.
type PlanLogWriter struct {
	CloneBase string
	Out       io.Writer
}

func NewPlanLogWriter(cfg types.Config) PlanLogWriter {
	return PlanLogWriter{CloneBase: cfg.CloneBaseURL, Out: os.Stdout}
}

func (w PlanLogWriter) CloneURL(repo types.RepositoryID) string {
	base := w.CloneBase
	if base == "" {
		base = types.DefaultCloneBaseURL
	}
	return shared.JoinURL(base, repo.Owner, repo.Name+".git")
}

func (w PlanLogWriter) Lines(specs []types.FetchSpec) []string {
	lines := make([]string, 0, len(specs))
	for _, spec := range specs {
		lines = append(lines, w.CloneURL(spec.Repo)+":"+spec.Ref.Refspec())
	}
	return lines
}

func (w PlanLogWriter) WritePlan(specs []types.FetchSpec) error {
	out := w.Out
	if out == nil {
		out = os.Stdout
	}
	if len(specs) == 0 {
		_, err := fmt.Fprintln(out, planEmpty)
		return writeErr(err)
	}
	if _, err := fmt.Fprintln(out, planHeader); err != nil {
		return writeErr(err)
	}
	for _, line := range w.Lines(specs) {
		if _, err := fmt.Fprintf(out, "\t%s\n", line); err != nil {
			return writeErr(err)
		}
	}
	return nil
}

func writeErr(err error) error {
	if err == nil {
		return nil
	}
	return errbuilder.New().
		WithCode(errbuilder.CodeInternal).
		WithMsg("failed to write build plan").
		WithCause(err)
}

var _ ports.PlanLogPort = PlanLogWriter{}
