package importer

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/goliatone/go-slug"
	"github.com/rotisserie/eris"

	"bezcukru/app/internal/domain/i18n"
)

var (
	extensionPattern = regexp.MustCompile(`\.\w{2,4}$`)
	nonSlugChars     = regexp.MustCompile(`[^a-z0-9\s-]`)
	whitespaceRuns   = regexp.MustCompile(`\s+`)
	dashRuns         = regexp.MustCompile(`-+`)
)

// File is a content file found in a scanned directory.
type File struct {
	Path      string
	Name      string
	BareName  string
	Permalink string
	// Language is empty when the name carries no recognized locale token.
	Language i18n.Locale
}

// LanguageError reports a markdown file whose name has no locale token.
type LanguageError struct {
	File string
}

func (e *LanguageError) Error() string {
	return "Language is not recognized for " + e.File
}

// Scan lists the markdown and image files directly inside dir, sorted by name. Markdown files
// whose stem ends in "example" are skipped. With strict set, a markdown file without a locale
// token fails the scan.
func (a *Admin) Scan(dir string, strict bool) ([]File, []File, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "reading content directory %s", dir)
	}

	var markdownFiles, images []File
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}

		name := entry.Name()
		isMarkdown, isImage := classify(name)
		if !isMarkdown && !isImage {
			continue
		}

		baseName := extensionPattern.ReplaceAllString(name, "")
		bareName, language, _ := a.registry.ExtractTrailingLanguageCode(baseName)

		if isMarkdown && language == "" && strict {
			return nil, nil, &LanguageError{File: name}
		}

		file := File{
			Path:      filepath.Join(dir, name),
			Name:      name,
			BareName:  bareName,
			Permalink: Slugify(bareName),
			Language:  language,
		}

		if isMarkdown {
			markdownFiles = append(markdownFiles, file)
		} else {
			images = append(images, file)
		}
	}

	return markdownFiles, images, nil
}

func classify(name string) (markdown, image bool) {
	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ".md":
		stem := strings.ToLower(strings.TrimSuffix(name, filepath.Ext(name)))
		return !strings.HasSuffix(stem, "example"), false
	case ".jpg", ".jpeg":
		return false, true
	default:
		return false, false
	}
}

// Slugify converts a file bare name into a lower-case dash separated permalink segment.
// Polish, Cyrillic and accented letters are transliterated to ASCII.
func Slugify(value string) string {
	normalized, err := slug.HashNormalize(value)
	if err != nil || normalized == "" {
		normalized = value
	}

	out := strings.ToLower(normalized)
	out = nonSlugChars.ReplaceAllString(out, "")
	out = whitespaceRuns.ReplaceAllString(out, "-")
	out = dashRuns.ReplaceAllString(out, "-")
	return strings.Trim(out, "-")
}

// matchImage returns the first image whose file name starts with the markdown bare name.
func matchImage(file File, images []File) *File {
	for i := range images {
		if strings.HasPrefix(images[i].Name, file.BareName) {
			return &images[i]
		}
	}
	return nil
}
