// Package recurrence computes occurrence dates of repeating tasks and moves a
// series forward when an occurrence is completed, skipped, stopped or edited.
//
// Everything here is a pure function over values. Persisting the result and
// serializing concurrent updates of one task is the caller's job.
package recurrence
