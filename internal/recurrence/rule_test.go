package recurrence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRule_Validation(t *testing.T) {
	t.Parallel()

	end := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name    string
		params  RuleParams
		wantErr bool
	}{
		{name: "daily", params: RuleParams{Frequency: Daily, Interval: 1}},
		{name: "weekly with days", params: RuleParams{Frequency: Weekly, Interval: 2, Weekdays: Weekdays(time.Monday, time.Friday)}},
		{name: "monthly until", params: RuleParams{Frequency: Monthly, Interval: 1, End: Until(end)}},
		{name: "yearly count", params: RuleParams{Frequency: Yearly, Interval: 1, End: AfterCount(3)}},
		{name: "zero interval", params: RuleParams{Frequency: Daily, Interval: 0}, wantErr: true},
		{name: "negative interval", params: RuleParams{Frequency: Weekly, Interval: -2}, wantErr: true},
		{name: "largest interval", params: RuleParams{Frequency: Yearly, Interval: MaxInterval}},
		{name: "interval too large", params: RuleParams{Frequency: Weekly, Interval: MaxInterval + 1}, wantErr: true},
		{name: "huge interval", params: RuleParams{Frequency: Monthly, Interval: 1 << 62}, wantErr: true},
		{name: "weekdays on daily", params: RuleParams{Frequency: Daily, Interval: 1, Weekdays: Weekdays(time.Monday)}, wantErr: true},
		{name: "weekdays on monthly", params: RuleParams{Frequency: Monthly, Interval: 1, Weekdays: Weekdays(time.Sunday)}, wantErr: true},
		{name: "zero count", params: RuleParams{Frequency: Daily, Interval: 1, End: AfterCount(0)}, wantErr: true},
		{name: "empty end date", params: RuleParams{Frequency: Daily, Interval: 1, End: Until(time.Time{})}, wantErr: true},
		{name: "unknown frequency", params: RuleParams{Frequency: "hourly", Interval: 1}, wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rule, err := NewRule(tt.params)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidRule)
				assert.True(t, rule.IsZero())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.params.Frequency, rule.Frequency())
			assert.Equal(t, tt.params.Interval, rule.Interval())
		})
	}
}

func TestEndCondition_Accessors(t *testing.T) {
	t.Parallel()

	until := Until(time.Date(2024, 1, 10, 15, 30, 0, 0, time.UTC))
	date, ok := until.UntilDate()
	require.True(t, ok)
	requireDay(t, "2024-01-10", date)
	_, ok = until.MaxCount()
	assert.False(t, ok)

	count := AfterCount(4)
	n, ok := count.MaxCount()
	require.True(t, ok)
	assert.Equal(t, 4, n)
	_, ok = count.UntilDate()
	assert.False(t, ok)

	assert.True(t, Never().IsNever())
	assert.False(t, count.IsNever())
}

func TestRule_ParamsRoundTrip(t *testing.T) {
	t.Parallel()

	params := RuleParams{
		Frequency: Weekly,
		Interval:  2,
		Weekdays:  Weekdays(time.Tuesday, time.Thursday),
		End:       AfterCount(10),
		Anchor:    time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
	}
	rule := MustRule(params)
	again, err := NewRule(rule.Params())
	require.NoError(t, err)
	assert.Equal(t, rule, again)
}

func TestRule_String(t *testing.T) {
	t.Parallel()

	tests := []struct {
		params RuleParams
		want   string
	}{
		{RuleParams{Frequency: Daily, Interval: 1}, "every day"},
		{RuleParams{Frequency: Daily, Interval: 3}, "every 3 days"},
		{RuleParams{Frequency: Weekly, Interval: 2, Weekdays: Weekdays(time.Friday, time.Monday)}, "every 2 weeks on mon,fri"},
		{RuleParams{Frequency: Monthly, Interval: 1, End: Until(time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC))}, "every month until 2024-06-30"},
		{RuleParams{Frequency: Yearly, Interval: 1, End: AfterCount(5)}, "every year for 5 occurrences"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MustRule(tt.params).String())
	}
	assert.Equal(t, "never", Rule{}.String())
}

func TestParseFrequency(t *testing.T) {
	t.Parallel()

	for raw, want := range map[string]Frequency{
		"daily": Daily, "D": Daily, " Weekly ": Weekly, "m": Monthly, "YEARLY": Yearly, "annually": Yearly,
	} {
		got, err := ParseFrequency(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}

	_, err := ParseFrequency("hourly")
	require.ErrorIs(t, err, ErrInvalidRule)
}

func TestParseWeekdays(t *testing.T) {
	t.Parallel()

	set, err := ParseWeekdays("fri, mon;Wednesday")
	require.NoError(t, err)
	assert.Equal(t, Weekdays(time.Monday, time.Wednesday, time.Friday), set)
	assert.Equal(t, "mon,wed,fri", set.String())
	assert.Equal(t, 3, set.Len())
	assert.Equal(t, []time.Weekday{time.Monday, time.Wednesday, time.Friday}, set.Days())

	empty, err := ParseWeekdays("  ")
	require.NoError(t, err)
	assert.True(t, empty.Empty())

	_, err = ParseWeekdays("mon,funday")
	require.ErrorIs(t, err, ErrInvalidRule)
}
