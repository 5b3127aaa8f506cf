package importer

import "bezcukru/app/internal/platform/markdown"

// Prompter asks the operator to make choices. Index results refer to the options slice.
type Prompter interface {
	MultiSelect(message string, options []string, pageSize int) ([]int, error)
	SelectOne(message string, options []string) (int, error)
	Confirm(message string) (bool, error)
}

// DocumentParser turns a markdown source into a heading and body.
type DocumentParser interface {
	ParseDocument(source []byte) (markdown.Document, error)
}
