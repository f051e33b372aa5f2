package crosscheck

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/livinlefevreloca/hron/lib/hron"
)

var from = time.Date(2026, 2, 6, 12, 0, 0, 0, time.UTC)

func TestCompare_Agrees(t *testing.T) {
	inputs := []string{
		"every day at 09:00",
		"every weekday at 08:15",
		"every weekend at 10:00",
		"every tue, thu at 18:45",
		"every 15 min from 00:00 to 23:59",
		"every 3 hours from 00:00 to 23:59",
		"every month on the 1st, 15th at 06:00",
	}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			s := hron.MustParse(input)
			report, err := Compare(s, from, 50)
			require.NoError(t, err)
			assert.True(t, report.OK(), "mismatch: %+v", report.Mismatch)
			assert.Equal(t, 50, report.Checked)
			assert.Equal(t, s.String(), report.Expression)
		})
	}
}

func TestCompare_NotExpressible(t *testing.T) {
	s := hron.MustParse("every month on the last day at 09:00")
	_, err := Compare(s, from, 10)
	assert.True(t, errors.Is(err, hron.ErrCron))
}

func TestVerify_ReportsCronForm(t *testing.T) {
	s := hron.MustParse("every weekday at 09:00")
	report, err := Verify(s, from, 20)
	require.NoError(t, err)
	assert.Equal(t, "0 9 * * 1-5", report.Cron)
}

func TestFormatTime(t *testing.T) {
	assert.Equal(t, "none", formatTime(time.Time{}))
	assert.Equal(t, "2026-02-06T12:00:00Z", formatTime(from))
}
