package manifest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/mattn/go-sqlite3"

	"github.com/livinlefevreloca/hron/internal/db"
	"github.com/livinlefevreloca/hron/lib/hron"
)

const yamlManifest = `
schedules:
  - name: nightly-backup
    expression: every day at 02:00 in America/New_York
  - name: legacy-report
    cron: "0 9 * * 1-5"
    enabled: false
`

const jsoncManifest = `{
  // maintained by hand
  "schedules": [
    {"name": "nightly-backup", "expression": "every day at 02:00 in America/New_York"},
    {"name": "legacy-report", "cron": "0 9 * * 1-5", "enabled": false},
  ],
}`

const tomlManifest = `
[[schedules]]
name = "nightly-backup"
expression = "every day at 02:00 in America/New_York"

[[schedules]]
name = "legacy-report"
cron = "0 9 * * 1-5"
enabled = false
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newStore(t *testing.T) *db.DB {
	t.Helper()
	store, err := db.OpenWithConfig(context.Background(), db.Config{Driver: "sqlite3", DSN: ":memory:"}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestFormatOf(t *testing.T) {
	tests := []struct {
		path string
		want Format
	}{
		{"a.yaml", FormatYAML},
		{"a.YML", FormatYAML},
		{"dir/a.json", FormatJSON},
		{"a.jsonc", FormatJSON},
		{"a.toml", FormatTOML},
	}
	for _, tt := range tests {
		got, err := FormatOf(tt.path)
		require.NoError(t, err, tt.path)
		assert.Equal(t, tt.want, got, tt.path)
	}

	_, err := FormatOf("schedules.ini")
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))
}

func TestReadFile_AllFormats(t *testing.T) {
	files := map[string]string{
		"schedules.yaml":  yamlManifest,
		"schedules.jsonc": jsoncManifest,
		"schedules.toml":  tomlManifest,
	}
	for name, content := range files {
		t.Run(name, func(t *testing.T) {
			m, err := ReadFile(writeFile(t, name, content))
			require.NoError(t, err)
			require.Len(t, m.Schedules, 2)

			assert.Equal(t, "nightly-backup", m.Schedules[0].Name)
			assert.Equal(t, "every day at 02:00 in America/New_York", m.Schedules[0].Expression)
			assert.Nil(t, m.Schedules[0].Enabled)

			assert.Equal(t, "0 9 * * 1-5", m.Schedules[1].Cron)
			require.NotNil(t, m.Schedules[1].Enabled)
			assert.False(t, *m.Schedules[1].Enabled)
		})
	}
}

func TestReadFile_Errors(t *testing.T) {
	_, err := ReadFile(writeFile(t, "schedules.txt", yamlManifest))
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "reading")

	_, err = ReadFile(writeFile(t, "broken.json", `{"schedules": [`))
	assert.ErrorContains(t, err, "parsing json manifest")
}

func TestResolve(t *testing.T) {
	m, err := Decode([]byte(yamlManifest), FormatYAML)
	require.NoError(t, err)

	schedules, err := m.Resolve()
	require.NoError(t, err)
	require.Len(t, schedules, 2)

	backup := schedules[0]
	assert.NotEmpty(t, backup.ID)
	assert.Equal(t, "every day at 02:00 in America/New_York", backup.Canonical)
	assert.Equal(t, "America/New_York", backup.Timezone)
	assert.True(t, backup.Enabled)

	report := schedules[1]
	assert.NotEqual(t, backup.ID, report.ID)
	assert.Equal(t, "0 9 * * 1-5", report.Expression)
	assert.Equal(t, "every weekday at 09:00", report.Canonical)
	assert.False(t, report.Enabled)
}

func TestResolve_CronInExpressionField(t *testing.T) {
	m := &Manifest{Schedules: []Entry{{Name: "quarter-hour", Expression: "*/15 9-17 * * 1-5"}}}

	schedules, err := m.Resolve()
	require.NoError(t, err)
	assert.Equal(t, "every 15 min from 09:00 to 17:00 on weekday", schedules[0].Canonical)
}

func TestResolve_Errors(t *testing.T) {
	m := &Manifest{Schedules: []Entry{
		{Expression: "every day at 09:00"},
		{Name: "both", Expression: "every day at 09:00", Cron: "0 9 * * *"},
		{Name: "neither"},
		{Name: "bad", Expression: "every sometimes"},
		{Name: "ok", Expression: "every day at 09:00"},
		{Name: "ok", Expression: "every day at 10:00"},
	}}

	schedules, err := m.Resolve()
	require.Error(t, err)
	assert.Nil(t, schedules)

	msg := err.Error()
	assert.Contains(t, msg, "schedule 0: name is required")
	assert.Contains(t, msg, `schedule "both": expression and cron are mutually exclusive`)
	assert.Contains(t, msg, `schedule "neither": one of expression or cron is required`)
	assert.Contains(t, msg, `schedule "bad"`)
	assert.Contains(t, msg, `schedule "ok": duplicate name`)
	// "every sometimes" is rejected by the lexer.
	assert.True(t, errors.Is(err, hron.ErrLex))
	assert.False(t, errors.Is(err, hron.ErrParse))
}

func TestImport(t *testing.T) {
	store := newStore(t)

	m, err := Decode([]byte(yamlManifest), FormatYAML)
	require.NoError(t, err)
	schedules, err := m.Resolve()
	require.NoError(t, err)

	result, err := Import(store, schedules)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"nightly-backup", "legacy-report"}, result.Created)
	assert.Empty(t, result.Updated)

	stored, err := store.GetScheduleByName("legacy-report")
	require.NoError(t, err)
	assert.Equal(t, "every weekday at 09:00", stored.Canonical)
	assert.False(t, stored.Enabled)
	originalID := stored.ID

	// A second import of the same file changes nothing, even with new IDs.
	again, err := m.Resolve()
	require.NoError(t, err)
	result, err = Import(store, again)
	require.NoError(t, err)
	assert.Empty(t, result.Created)
	assert.ElementsMatch(t, []string{"nightly-backup", "legacy-report"}, result.Unchanged)

	// Changing an expression updates in place.
	m.Schedules[1] = Entry{Name: "legacy-report", Expression: "every weekday at 10:00"}
	changed, err := m.Resolve()
	require.NoError(t, err)
	result, err = Import(store, changed)
	require.NoError(t, err)
	assert.Equal(t, []string{"legacy-report"}, result.Updated)

	stored, err = store.GetScheduleByName("legacy-report")
	require.NoError(t, err)
	assert.Equal(t, originalID, stored.ID)
	assert.Equal(t, "every weekday at 10:00", stored.Canonical)
	assert.True(t, stored.Enabled)
}

func TestImport_RollsBackOnError(t *testing.T) {
	store := newStore(t)

	schedules := []db.Schedule{
		{ID: "a", Name: "first", Expression: "every day at 09:00", Canonical: "every day at 09:00", Enabled: true},
		{ID: "a", Name: "second", Expression: "every day at 10:00", Canonical: "every day at 10:00", Enabled: true},
	}
	_, err := Import(store, schedules)
	require.Error(t, err)
	assert.True(t, db.IsDuplicate(err))

	all, err := store.GetAllSchedules()
	require.NoError(t, err)
	assert.Empty(t, all)
}
