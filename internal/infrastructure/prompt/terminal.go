// Package prompt provides the operator prompts used by the content admin.
package prompt

import (
	"github.com/AlecAivazis/survey/v2"
	"github.com/rotisserie/eris"

	"bezcukru/app/internal/domain/importer"
)

// Terminal asks questions on an interactive terminal.
type Terminal struct {
	opts []survey.AskOpt
}

var _ importer.Prompter = (*Terminal)(nil)

// NewTerminal builds a terminal prompter. Options such as survey.WithStdio are passed through.
func NewTerminal(opts ...survey.AskOpt) *Terminal {
	return &Terminal{opts: opts}
}

// MultiSelect shows a checkbox list and returns the checked indexes.
func (t *Terminal) MultiSelect(message string, options []string, pageSize int) ([]int, error) {
	if len(options) == 0 {
		return nil, nil
	}

	question := &survey.MultiSelect{Message: message, Options: options}
	if pageSize > 0 {
		question.PageSize = pageSize
	}

	var picked []int
	if err := survey.AskOne(question, &picked, t.opts...); err != nil {
		return nil, eris.Wrap(err, "multi select prompt")
	}
	return picked, nil
}

// SelectOne shows a list and returns the chosen index.
func (t *Terminal) SelectOne(message string, options []string) (int, error) {
	var picked int
	if err := survey.AskOne(&survey.Select{Message: message, Options: options}, &picked, t.opts...); err != nil {
		return 0, eris.Wrap(err, "select prompt")
	}
	return picked, nil
}

// Confirm asks a yes/no question defaulting to no.
func (t *Terminal) Confirm(message string) (bool, error) {
	var ok bool
	if err := survey.AskOne(&survey.Confirm{Message: message}, &ok, t.opts...); err != nil {
		return false, eris.Wrap(err, "confirm prompt")
	}
	return ok, nil
}
