package recurrence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasEnded(t *testing.T) {
	t.Parallel()

	never := MustRule(RuleParams{Frequency: Daily, Interval: 1})
	until := MustRule(RuleParams{Frequency: Daily, Interval: 1, End: Until(day(t, "2024-01-10"))})
	count := MustRule(RuleParams{Frequency: Daily, Interval: 1, End: AfterCount(3)})

	tests := []struct {
		name      string
		rule      Rule
		completed int
		candidate string
		want      bool
	}{
		{name: "never ends", rule: never, completed: 10000, candidate: "2999-01-01", want: false},
		{name: "before end date", rule: until, completed: 5, candidate: "2024-01-09", want: false},
		{name: "on end date", rule: until, completed: 5, candidate: "2024-01-10", want: false},
		{name: "day after end date", rule: until, completed: 5, candidate: "2024-01-11", want: true},
		{name: "below count", rule: count, completed: 2, candidate: "2024-01-01", want: false},
		{name: "count reached", rule: count, completed: 3, candidate: "2024-01-01", want: true},
		{name: "count exceeded", rule: count, completed: 4, candidate: "2024-01-01", want: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, HasEnded(tt.rule, tt.completed, day(t, tt.candidate)))
		})
	}
}

func TestRemaining(t *testing.T) {
	t.Parallel()

	count := MustRule(RuleParams{Frequency: Weekly, Interval: 1, End: AfterCount(5)})

	n, ok := Remaining(count, 2)
	assert.True(t, ok)
	assert.Equal(t, 3, n)

	n, ok = Remaining(count, 7)
	assert.True(t, ok)
	assert.Zero(t, n)

	_, ok = Remaining(MustRule(RuleParams{Frequency: Weekly, Interval: 1}), 2)
	assert.False(t, ok)
}
