// Package category loads the keyword category table and matches comment bodies against it
package category

import (
	"bytes"
	_ "embed"
	"os"
	"regexp"
	"strings"

	"sift/internal/core/normalize"
	perr "sift/internal/platform/errors"
	"sift/internal/platform/validate"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultYAML []byte

var nameCleaner = regexp.MustCompile(`[^a-z0-9_]+`)

// Category is one output column: a cleaned name and the keywords that set it
type Category struct {
	Name     string   `yaml:"name" validate:"required,ident"`
	Keywords []string `yaml:"keywords" validate:"min=1,dive,required"`
}

// Table is the ordered category list; order is column order
type Table struct {
	Categories []Category `yaml:"categories" validate:"min=1,dive"`
}

// CleanName lowercases s and strips everything outside [a-z0-9_]
func CleanName(s string) string {
	return nameCleaner.ReplaceAllString(strings.ToLower(s), "")
}

// Default returns the embedded category table
func Default() (Table, error) {
	t, err := Parse(defaultYAML)
	if err != nil {
		return Table{}, perr.WithOp(err, "category.Default")
	}
	return t, nil
}

// Load reads a YAML category file; an empty path returns the default table
func Load(path string) (Table, error) {
	if strings.TrimSpace(path) == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Table{}, perr.FileIO(err, "read", path)
	}
	t, err := Parse(data)
	if err != nil {
		return Table{}, perr.WithOp(err, "category.Load "+path)
	}
	return t, nil
}

// Parse decodes a YAML table, cleans names and keywords, and validates the result
func Parse(data []byte) (Table, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var t Table
	if err := dec.Decode(&t); err != nil {
		return Table{}, perr.Wrap(err, perr.ErrorCodeInvalidArgument, "invalid category yaml")
	}
	t = t.clean()
	if err := t.Validate(); err != nil {
		return Table{}, err
	}
	return t, nil
}

// clean applies name cleaning, lowercases and trims keywords, and drops blank keywords
func (t Table) clean() Table {
	out := Table{Categories: make([]Category, 0, len(t.Categories))}
	for _, c := range t.Categories {
		kws := make([]string, 0, len(c.Keywords))
		for _, k := range c.Keywords {
			if k = strings.TrimSpace(normalize.Lower(k)); k != "" {
				kws = append(kws, k)
			}
		}
		out.Categories = append(out.Categories, Category{Name: CleanName(c.Name), Keywords: kws})
	}
	return out
}

// Validate checks the table shape and rejects duplicate names
func (t Table) Validate() error {
	if err := validate.Struct(t); err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(t.Categories))
	for _, c := range t.Categories {
		if _, dup := seen[c.Name]; dup {
			return perr.WithField(perr.Validationf("duplicate category %q", c.Name), "categories")
		}
		seen[c.Name] = struct{}{}
	}
	return nil
}

// Names returns the category names in column order
func (t Table) Names() []string {
	out := make([]string, len(t.Categories))
	for i, c := range t.Categories {
		out[i] = c.Name
	}
	return out
}

// Len returns the number of categories
func (t Table) Len() int { return len(t.Categories) }

// YAML renders the table in the same format Load accepts
func (t Table) YAML() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(t); err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeUnknown, "encode category yaml")
	}
	if err := enc.Close(); err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeUnknown, "encode category yaml")
	}
	return buf.Bytes(), nil
}
