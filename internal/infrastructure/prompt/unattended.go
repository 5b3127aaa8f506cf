package prompt

import (
	"github.com/rotisserie/eris"

	"bezcukru/app/internal/domain/importer"
)

// ErrInteractiveOnly is returned for questions that have no unattended answer.
var ErrInteractiveOnly = eris.New("prompt requires an interactive terminal")

// Unattended selects every option and accepts every confirmation.
type Unattended struct{}

var _ importer.Prompter = Unattended{}

func (Unattended) MultiSelect(_ string, options []string, _ int) ([]int, error) {
	all := make([]int, len(options))
	for i := range all {
		all[i] = i
	}
	return all, nil
}

func (Unattended) SelectOne(message string, _ []string) (int, error) {
	return 0, eris.Wrapf(ErrInteractiveOnly, "%s", message)
}

func (Unattended) Confirm(string) (bool, error) {
	return true, nil
}
