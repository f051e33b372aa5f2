// Package manifest loads named schedule definitions from YAML, JSONC or
// TOML files and imports them into the schedule store.
//
// A manifest lists schedules under a top-level "schedules" key:
//
//	schedules:
//	  - name: nightly-backup
//	    expression: every day at 02:00 in America/New_York
//	  - name: legacy-report
//	    cron: "30 6 * * 1-5"
//	    enabled: false
//
// Each entry carries exactly one of expression (hron, or cron text that
// hron.FromCron accepts) and cron (always cron).
package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/livinlefevreloca/hron/internal/db"
	"github.com/livinlefevreloca/hron/lib/hron"
)

// ErrUnsupportedFormat is returned for files whose extension is not one of
// .yaml, .yml, .json, .jsonc or .toml.
var ErrUnsupportedFormat = errors.New("manifest: unsupported format")

// Format is a manifest encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
	FormatTOML Format = "toml"
)

// Manifest is a decoded manifest file.
type Manifest struct {
	Schedules []Entry `yaml:"schedules" json:"schedules" toml:"schedules"`
}

// Entry is one schedule definition. A nil Enabled means enabled.
type Entry struct {
	Name       string `yaml:"name" json:"name" toml:"name"`
	Expression string `yaml:"expression,omitempty" json:"expression,omitempty" toml:"expression,omitempty"`
	Cron       string `yaml:"cron,omitempty" json:"cron,omitempty" toml:"cron,omitempty"`
	Enabled    *bool  `yaml:"enabled,omitempty" json:"enabled,omitempty" toml:"enabled,omitempty"`
}

// FormatOf picks the format from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json", ".jsonc":
		return FormatJSON, nil
	case ".toml":
		return FormatTOML, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
}

// Decode parses data in the given format. JSON input may carry comments and
// trailing commas.
func Decode(data []byte, format Format) (*Manifest, error) {
	var m Manifest
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("parsing yaml manifest: %w", err)
		}
	case FormatJSON:
		if err := json.Unmarshal(jsonc.ToJSON(data), &m); err != nil {
			return nil, fmt.Errorf("parsing json manifest: %w", err)
		}
	case FormatTOML:
		if _, err := toml.Decode(string(data), &m); err != nil {
			return nil, fmt.Errorf("parsing toml manifest: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	return &m, nil
}

// ReadFile reads and decodes a manifest, choosing the format by extension.
func ReadFile(path string) (*Manifest, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	m, err := Decode(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Resolve validates every entry and converts it to a store schedule with a
// fresh ID. All entry errors are reported together.
func (m *Manifest) Resolve(opts ...hron.Option) ([]db.Schedule, error) {
	var errs []error
	seen := make(map[string]bool, len(m.Schedules))
	schedules := make([]db.Schedule, 0, len(m.Schedules))

	for i, entry := range m.Schedules {
		if entry.Name == "" {
			errs = append(errs, fmt.Errorf("schedule %d: name is required", i))
			continue
		}
		if seen[entry.Name] {
			errs = append(errs, fmt.Errorf("schedule %q: duplicate name", entry.Name))
			continue
		}
		seen[entry.Name] = true

		s, err := entry.resolve(opts)
		if err != nil {
			errs = append(errs, fmt.Errorf("schedule %q: %w", entry.Name, err))
			continue
		}
		schedules = append(schedules, s)
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return schedules, nil
}

func (e Entry) resolve(opts []hron.Option) (db.Schedule, error) {
	var (
		parsed *hron.Schedule
		text   string
		err    error
	)
	switch {
	case e.Expression != "" && e.Cron != "":
		return db.Schedule{}, errors.New("expression and cron are mutually exclusive")
	case e.Cron != "":
		text = e.Cron
		parsed, err = hron.FromCron(text, opts...)
	case e.Expression != "":
		text = e.Expression
		parsed, err = hron.Parse(text, opts...)
		if err != nil {
			if fromCron, cronErr := hron.FromCron(text, opts...); cronErr == nil {
				parsed, err = fromCron, nil
			}
		}
	default:
		return db.Schedule{}, errors.New("one of expression or cron is required")
	}
	if err != nil {
		return db.Schedule{}, err
	}

	return db.Schedule{
		ID:         uuid.NewString(),
		Name:       e.Name,
		Expression: text,
		Canonical:  parsed.String(),
		Timezone:   parsed.Timezone(),
		Enabled:    e.Enabled == nil || *e.Enabled,
	}, nil
}

// =============================================================================
// Import
// =============================================================================

// ImportResult lists schedule names by what Import did with them.
type ImportResult struct {
	Created   []string
	Updated   []string
	Unchanged []string
}

// Import upserts schedules by name in a single transaction. An existing
// schedule keeps its ID and run history.
func Import(store *db.DB, schedules []db.Schedule) (ImportResult, error) {
	var result ImportResult
	err := store.WithTransaction(func(tx *db.Tx) error {
		result = ImportResult{}
		for _, s := range schedules {
			existing, err := tx.GetScheduleByName(s.Name)
			switch {
			case db.IsNotFound(err):
				if s.ID == "" {
					s.ID = uuid.NewString()
				}
				if err := tx.CreateSchedule(&s); err != nil {
					return fmt.Errorf("creating schedule %q: %w", s.Name, err)
				}
				result.Created = append(result.Created, s.Name)
			case err != nil:
				return fmt.Errorf("looking up schedule %q: %w", s.Name, err)
			case sameDefinition(existing, &s):
				result.Unchanged = append(result.Unchanged, s.Name)
			default:
				existing.Expression = s.Expression
				existing.Canonical = s.Canonical
				existing.Timezone = s.Timezone
				existing.Enabled = s.Enabled
				if err := tx.UpdateSchedule(existing); err != nil {
					return fmt.Errorf("updating schedule %q: %w", s.Name, err)
				}
				result.Updated = append(result.Updated, s.Name)
			}
		}
		return nil
	})
	return result, err
}

func sameDefinition(a, b *db.Schedule) bool {
	return a.Expression == b.Expression &&
		a.Canonical == b.Canonical &&
		a.Timezone == b.Timezone &&
		a.Enabled == b.Enabled
}
