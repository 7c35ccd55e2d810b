package review

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	ErrRubricNameRequired   = errors.New("rubric name is required")
	ErrRubricNegativeLength = errors.New("rubric length bounds must be >= 0")
	ErrRubricLengthBounds   = errors.New("rubric min_length exceeds max_length")
)

// LoadFromFile reads a single Rubric from a YAML file.
func LoadFromFile(path string) (*Rubric, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rubric file %s: %w", path, err)
	}

	var r Rubric
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse rubric file %s: %w", path, err)
	}

	if err := r.Validate(); err != nil {
		return nil, fmt.Errorf("validate rubric file %s: %w", path, err)
	}

	return &r, nil
}

// LoadFromDirectory reads all .yaml/.yml rubrics from a directory. A missing
// directory returns an empty slice, matching the config loading pattern.
func LoadFromDirectory(dir string) ([]Rubric, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read rubric directory %s: %w", dir, err)
	}

	var rubrics []Rubric
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}

		r, err := LoadFromFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		rubrics = append(rubrics, *r)
	}

	return rubrics, nil
}

// Resolve returns the rubric with the given name, checking custom rubrics
// loaded from dir first, then the built-in presets.
func Resolve(name, dir string) (Rubric, error) {
	custom, err := LoadFromDirectory(dir)
	if err != nil {
		return Rubric{}, err
	}
	for _, r := range custom {
		if r.Name == name {
			return r, nil
		}
	}
	if r, ok := Presets()[name]; ok {
		return r, nil
	}
	return Rubric{}, fmt.Errorf("unknown rubric %q", name)
}
