package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/Grant-Management-Platform-MVP/GfgpPortal-sub000/internal/engine"
	"github.com/Grant-Management-Platform-MVP/GfgpPortal-sub000/internal/models"
	"github.com/Grant-Management-Platform-MVP/GfgpPortal-sub000/internal/richtext"
	"github.com/Grant-Management-Platform-MVP/GfgpPortal-sub000/internal/services"
)

// palette colors CLI output only when writing to a terminal.
type palette struct {
	title, ok, warn, bad, dim *color.Color
}

func newPalette(out io.Writer) palette {
	enabled := false
	if f, ok := out.(*os.File); ok {
		enabled = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	p := palette{
		title: color.New(color.FgCyan, color.Bold),
		ok:    color.New(color.FgGreen),
		warn:  color.New(color.FgYellow),
		bad:   color.New(color.FgRed),
		dim:   color.New(color.FgHiBlack),
	}
	for _, c := range []*color.Color{p.title, p.ok, p.warn, p.bad, p.dim} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p palette) label(l string) *color.Color {
	switch l {
	case engine.LabelMet:
		return p.ok
	case engine.LabelPartiallyMet:
		return p.warn
	case engine.LabelNotMet:
		return p.bad
	}
	return p.dim
}

func loadTemplateFile(path string) (*models.Template, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if services.DetectFormat(path, raw) == services.FormatYAML {
		return engine.ParseTemplateYAML(raw)
	}
	return engine.ParseTemplate(raw)
}

func newValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <template-file>...",
		Short: "Parse and validate template files",
		Long: `Parses each JSON or YAML template and reports malformed content,
duplicate question ids and dangling conditionals.

Exit code: 0 if every file is valid, 1 otherwise`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return validateTemplates(args, cmd.OutOrStdout())
		},
	}
}

func validateTemplates(paths []string, out io.Writer) error {
	p := newPalette(out)
	failed := 0
	for _, path := range paths {
		t, err := loadTemplateFile(path)
		if err == nil {
			err = t.Key().Validate()
		}
		if err != nil {
			failed++
			p.bad.Fprintf(out, "✗ %s: %v\n", filepath.Base(path), err)
			continue
		}
		p.ok.Fprintf(out, "✓ %s", filepath.Base(path))
		p.dim.Fprintf(out, "  %s@%s %s, %d sections, %d questions\n", t.TemplateCode, t.Version, t.Key(), len(t.Sections), len(engine.AllQuestions(t)))
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d template(s) invalid", failed, len(paths))
	}
	return nil
}

func newScoreCommand() *cobra.Command {
	var answersPath string
	cmd := &cobra.Command{
		Use:   "score <template-file>",
		Short: "Score an answer file against a template",
		Long: `Prints the section and overall compliance report for a flat answers
file ({"Q1": {"answer": "Yes"}, ...}), with validation gaps and high-risk
answers.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := loadTemplateFile(args[0])
			if err != nil {
				return err
			}
			raw, err := os.ReadFile(answersPath)
			if err != nil {
				return err
			}
			var flat models.FlatAnswers
			if err := json.Unmarshal(raw, &flat); err != nil {
				return fmt.Errorf("parse answers: %w", err)
			}
			return printScore(cmd.OutOrStdout(), t, flat)
		},
	}
	cmd.Flags().StringVarP(&answersPath, "answers", "a", "", "JSON file of answers keyed by question id")
	_ = cmd.MarkFlagRequired("answers")
	return cmd
}

func printScore(out io.Writer, t *models.Template, flat models.FlatAnswers) error {
	idx := engine.QuestionIndex(t)
	for qid, a := range flat {
		if _, ok := idx[qid]; !ok {
			return fmt.Errorf("answer for unknown question %s", qid)
		}
		if a.Answer != "" && !a.Answer.Valid() {
			return fmt.Errorf("invalid answer %q for %s", a.Answer, qid)
		}
	}
	p := newPalette(out)
	rep := engine.ScoreTemplate(t, flat)
	prog := engine.ComputeProgress(t, flat)

	p.title.Fprintf(out, "%s (%s@%s)\n", t.Title, t.TemplateCode, t.Version)
	fmt.Fprintf(out, "Progress: %d/%d (%d%%)\n\n", prog.Answered, prog.Total, prog.Percent)
	for _, sec := range rep.Sections {
		fmt.Fprintf(out, "%-40s completeness %5.1f%%  compliance %5.1f%%\n", truncate(sec.Title, 40), sec.Completeness, sec.Compliance)
	}
	p.title.Fprintf(out, "\n%-40s completeness %5.1f%%  compliance %5.1f%%\n", "Overall", rep.Overall.Completeness, rep.Overall.Compliance)

	fmt.Fprintln(out)
	for _, loc := range engine.AllQuestions(t) {
		l := engine.StatusLabel(flat[loc.Question.ID].Answer)
		fmt.Fprintf(out, "  %-8s ", loc.Question.ID)
		p.label(l).Fprintf(out, "%-14s", l)
		fmt.Fprintf(out, " %s\n", truncate(richtext.PlainText(loc.Question.QuestionText), 60))
	}
	if gaps := engine.ValidationGaps(t, flat); len(gaps) > 0 {
		p.warn.Fprintf(out, "\nUnanswered required: %s\n", strings.Join(gaps, ", "))
	}
	if risky := engine.HighRiskQuestions(t, flat); len(risky) > 0 {
		p.bad.Fprintf(out, "High risk: %s\n", strings.Join(risky, ", "))
	}
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
