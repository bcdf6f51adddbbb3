package recurrence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func day(t *testing.T, raw string) time.Time {
	t.Helper()
	d, err := time.Parse(DateLayout, raw)
	require.NoError(t, err)
	return d
}

func requireDay(t *testing.T, want string, got time.Time) {
	t.Helper()
	require.Equal(t, want, got.Format(DateLayout))
}

func dates(ts []time.Time) []string {
	out := make([]string, 0, len(ts))
	for _, t := range ts {
		out = append(out, t.Format(DateLayout))
	}
	return out
}
