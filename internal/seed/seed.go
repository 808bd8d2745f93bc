// Package seed loads the initial book dataset for the catalog.
package seed

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	jsoniter "github.com/json-iterator/go"

	"bookshelf/internal/catalog"
)

var ErrInvalidDataset = errors.New("invalid dataset")

//go:embed books.json
var sample string

var (
	json     = jsoniter.ConfigCompatibleWithStandardLibrary
	validate = validator.New()
)

// Dataset is the decoded seed file. Genres maps a genre name to its
// description.
type Dataset struct {
	Books  []catalog.Book    `json:"books" validate:"dive"`
	Genres map[string]string `json:"genres,omitempty"`
}

// Describe returns the description of genre, if one is known.
func (d *Dataset) Describe(genre string) (string, bool) {
	desc, ok := d.Genres[genre]
	return desc, ok
}

// Sample returns the built-in dataset.
func Sample() (*Dataset, error) {
	return Decode(strings.NewReader(sample))
}

// LoadFile reads a dataset from path. An empty path selects the sample.
func LoadFile(path string) (*Dataset, error) {
	if path == "" {
		return Sample()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()

	ds, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return ds, nil
}

// Decode reads and validates a dataset.
func Decode(r io.Reader) (*Dataset, error) {
	var ds Dataset
	if err := json.NewDecoder(r).Decode(&ds); err != nil {
		return nil, fmt.Errorf("decode dataset: %w", err)
	}
	if err := validate.Struct(&ds); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDataset, err)
	}
	return &ds, nil
}
