package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
)

// Kind selects the prompt shown for a Question.
type Kind int

const (
	AskText Kind = iota
	AskLongText
	AskChoice
	AskChoices
	AskConfirm
)

func (k Kind) String() string {
	switch k {
	case AskText:
		return "text"
	case AskLongText:
		return "long text"
	case AskChoice:
		return "choice"
	case AskChoices:
		return "choices"
	case AskConfirm:
		return "confirm"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Question is one prompt. Default seeds text prompts, Picked seeds choice
// prompts (indices into Choices) and Yes seeds confirmations.
type Question struct {
	Kind    Kind
	Message string
	Help    string
	Default string
	Choices []string
	Picked  []int
	Yes     bool
	// Check rejects a typed answer before it is accepted.
	Check func(answer string) error
}

// Answer carries the reply in the slot matching the question kind.
type Answer struct {
	Text   string
	Picked []int
	Yes    bool
}

// PromptDriver asks questions on a terminal. Tests script it.
type PromptDriver interface {
	Ask(ctx context.Context, q Question) (Answer, error)
	Notify(ctx context.Context, msg string) error
}

type surveyDriver struct {
	out  io.Writer
	opts []survey.AskOpt
}

// NewSurveyDriver returns a PromptDriver backed by AlecAivazis/survey.
// Notifications go to out, or stdout when out is nil.
func NewSurveyDriver(out io.Writer, opts ...survey.AskOpt) PromptDriver {
	if out == nil {
		out = os.Stdout
	}
	return &surveyDriver{out: out, opts: opts}
}

func (d *surveyDriver) Ask(ctx context.Context, q Question) (Answer, error) {
	if err := ctx.Err(); err != nil {
		return Answer{}, err
	}

	switch q.Kind {
	case AskConfirm:
		var yes bool
		err := d.ask(&survey.Confirm{Message: q.Message, Help: q.Help, Default: q.Yes}, &yes)
		return Answer{Yes: yes}, err

	case AskChoice:
		prompt := &survey.Select{Message: q.Message, Help: q.Help, Options: q.Choices}
		if picked := pickedLabels(q); len(picked) > 0 {
			prompt.Default = picked[0]
		}
		var label string
		if err := d.ask(prompt, &label); err != nil {
			return Answer{}, err
		}
		return Answer{Picked: positions(q.Choices, []string{label})}, nil

	case AskChoices:
		prompt := &survey.MultiSelect{Message: q.Message, Help: q.Help, Options: q.Choices}
		if picked := pickedLabels(q); len(picked) > 0 {
			prompt.Default = picked
		}
		var labels []string
		if err := d.ask(prompt, &labels); err != nil {
			return Answer{}, err
		}
		return Answer{Picked: positions(q.Choices, labels)}, nil

	case AskLongText:
		var text string
		err := d.ask(&survey.Multiline{Message: q.Message, Help: q.Help, Default: q.Default}, &text)
		return Answer{Text: text}, err
	}

	var extra []survey.AskOpt
	if q.Check != nil {
		check := q.Check
		extra = append(extra, survey.WithValidator(func(ans any) error {
			text, _ := ans.(string)
			return check(text)
		}))
	}
	var text string
	err := d.ask(&survey.Input{Message: q.Message, Help: q.Help, Default: q.Default}, &text, extra...)
	return Answer{Text: text}, err
}

func (d *surveyDriver) Notify(ctx context.Context, msg string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := fmt.Fprintln(d.out, msg)
	return err
}

func (d *surveyDriver) ask(prompt survey.Prompt, response any, extra ...survey.AskOpt) error {
	opts := append(append([]survey.AskOpt(nil), d.opts...), extra...)
	err := survey.AskOne(prompt, response, opts...)
	if errors.Is(err, terminal.InterruptErr) {
		return ErrAborted
	}
	return err
}

func pickedLabels(q Question) []string {
	var out []string
	for _, idx := range q.Picked {
		if idx >= 0 && idx < len(q.Choices) {
			out = append(out, q.Choices[idx])
		}
	}
	return out
}

// positions maps labels back to their indices in choices, in choice order.
func positions(choices, labels []string) []int {
	want := make(map[string]bool, len(labels))
	for _, label := range labels {
		want[label] = true
	}
	var out []int
	for i, choice := range choices {
		if want[choice] {
			out = append(out, i)
		}
	}
	return out
}
