package migrator

import (
	"fmt"
	"io/fs"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// Migration is one versioned schema change.
type Migration struct {
	Version       int
	Name          string
	UpSQL         string
	NoTransaction bool
	Dependencies  []int
}

var (
	filenameRegex = regexp.MustCompile(`^(\d{3})_([a-zA-Z0-9_-]+)\.sql$`)
	upMarkerRegex = regexp.MustCompile(`^--\s*\+migrate\s+Up(\s+notransaction)?\s*$`)
	dependsRegex  = regexp.MustCompile(`^--\s*\+migrate\s+Depends:\s*(.*)$`)
)

// Parse reads a migration named NNN_name.sql. The body must contain a
// "-- +migrate Up" marker, optionally followed by "-- +migrate Depends: 1 2"
// lines, then the SQL.
func Parse(filename string, content []byte) (Migration, error) {
	matches := filenameRegex.FindStringSubmatch(filename)
	if matches == nil {
		return Migration{}, fmt.Errorf("invalid migration filename format: %s (expected NNN_name.sql)", filename)
	}
	version, _ := strconv.Atoi(matches[1])
	m := Migration{Version: version, Name: matches[2]}

	lines := strings.Split(string(content), "\n")
	up := slices.IndexFunc(lines, func(line string) bool {
		return upMarkerRegex.MatchString(strings.TrimSpace(line))
	})
	if up < 0 {
		return Migration{}, fmt.Errorf("missing '-- +migrate Up' marker in migration file: %s", filename)
	}
	m.NoTransaction = strings.TrimSpace(upMarkerRegex.FindStringSubmatch(strings.TrimSpace(lines[up]))[1]) == "notransaction"

	body := up + 1
	for ; body < len(lines); body++ {
		line := strings.TrimSpace(lines[body])
		if sub := dependsRegex.FindStringSubmatch(line); sub != nil {
			deps, err := parseDependencies(sub[1], filename)
			if err != nil {
				return Migration{}, err
			}
			m.Dependencies = append(m.Dependencies, deps...)
			continue
		}
		if line != "" && !strings.HasPrefix(line, "--") {
			break
		}
	}

	m.UpSQL = strings.TrimSpace(strings.Join(lines[body:], "\n"))
	if m.UpSQL == "" {
		return Migration{}, fmt.Errorf("migration file contains no SQL statements: %s", filename)
	}
	return m, nil
}

func parseDependencies(list, filename string) ([]int, error) {
	fields := strings.Fields(list)
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty dependency list in migration file: %s", filename)
	}
	deps := make([]int, 0, len(fields))
	for _, f := range fields {
		dep, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("invalid dependency version '%s' in migration file: %s", f, filename)
		}
		deps = append(deps, dep)
	}
	return deps, nil
}

// Load parses every NNN_name.sql file at the root of fsys and validates the
// set: versions start at 1 without gaps or duplicates, dependencies exist,
// and there are no dependency cycles.
func Load(fsys fs.FS) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations: %w", err)
	}

	var migrations []Migration
	for _, entry := range entries {
		if entry.IsDir() || !filenameRegex.MatchString(entry.Name()) {
			continue
		}
		content, err := fs.ReadFile(fsys, entry.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to read migration file: %w", err)
		}
		m, err := Parse(entry.Name(), content)
		if err != nil {
			return nil, err
		}
		migrations = append(migrations, m)
	}

	slices.SortFunc(migrations, func(a, b Migration) int { return a.Version - b.Version })

	if err := detectCycle(migrations); err != nil {
		return nil, err
	}
	if err := validateSequence(migrations); err != nil {
		return nil, err
	}
	return migrations, nil
}

func validateSequence(migrations []Migration) error {
	versions := make(map[int]bool, len(migrations))
	for i, m := range migrations {
		if versions[m.Version] {
			return fmt.Errorf("duplicate migration version: %d", m.Version)
		}
		versions[m.Version] = true
		if m.Version != i+1 {
			return fmt.Errorf("gap in migration versions: expected %d, found %d", i+1, m.Version)
		}
	}

	for _, m := range migrations {
		for _, dep := range m.Dependencies {
			if !versions[dep] {
				return fmt.Errorf("migration %d depends on non-existent version %d", m.Version, dep)
			}
		}
	}
	return nil
}

// detectCycle walks the dependency graph depth first; reaching a version
// that is still on the stack means a cycle.
func detectCycle(migrations []Migration) error {
	const (
		unvisited = iota
		visiting
		done
	)

	deps := make(map[int][]int, len(migrations))
	for _, m := range migrations {
		deps[m.Version] = m.Dependencies
	}
	state := make(map[int]int, len(migrations))

	var visit func(v int, path []int) error
	visit = func(v int, path []int) error {
		state[v] = visiting
		path = append(path, v)
		for _, dep := range deps[v] {
			switch state[dep] {
			case visiting:
				return fmt.Errorf("circular dependency detected: %v", append(path, dep))
			case unvisited:
				if err := visit(dep, path); err != nil {
					return err
				}
			}
		}
		state[v] = done
		return nil
	}

	for _, m := range migrations {
		if state[m.Version] == unvisited {
			if err := visit(m.Version, nil); err != nil {
				return err
			}
		}
	}
	return nil
}
