package testutil

import "testing"

// Given, When, and Then name nested subtests so lifecycle scenarios read as
// a narrative in test output.
func Given(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	t.Run("Given "+desc, fn)
}

func When(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	t.Run("When "+desc, fn)
}

func Then(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	t.Run("Then "+desc, fn)
}

// Step runs fn as the next step of a scenario and stops the scenario when
// the step fails.
func Step(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	if !t.Run(desc, fn) {
		t.FailNow()
	}
}
