package service

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDailySpec(t *testing.T) {
	spec, err := buildDailySpec("08:05")
	require.NoError(t, err)
	assert.Equal(t, "0 5 8 * * *", spec)

	spec, err = buildDailySpec(" 23:59 ")
	require.NoError(t, err)
	assert.Equal(t, "0 59 23 * * *", spec)

	for _, bad := range []string{"", "8", "24:00", "12:60", "aa:bb", "1:2:3"} {
		_, err := buildDailySpec(bad)
		assert.Error(t, err, bad)
	}
}

func TestSchedulerService_Entries(t *testing.T) {
	s := NewSchedulerService(time.UTC, zerolog.Nop())

	_, err := s.ScheduleInterval(0, func() {})
	require.Error(t, err)

	id, err := s.ScheduleInterval(time.Hour, func() {})
	require.NoError(t, err)
	_, err = s.ScheduleDaily("09:00", func() {})
	require.NoError(t, err)
	assert.Equal(t, 2, s.Entries())

	next, err := s.Reschedule(id, 2*time.Hour, func() {})
	require.NoError(t, err)
	assert.NotEqual(t, id, next)
	assert.Equal(t, 2, s.Entries())

	_, err = s.ScheduleDaily("bad", func() {})
	require.Error(t, err)
}

func TestSchedulerService_RecoversFromPanics(t *testing.T) {
	s := NewSchedulerService(time.UTC, zerolog.Nop())
	ran := make(chan struct{}, 2)

	_, err := s.ScheduleInterval(time.Second, func() {
		select {
		case ran <- struct{}{}:
		default:
		}
		panic("job failed")
	})
	require.NoError(t, err)

	s.Start()
	defer s.Stop()

	for i := 0; i < 2; i++ {
		select {
		case <-ran:
		case <-time.After(5 * time.Second):
			t.Fatal("job did not run again after panicking")
		}
	}
}
