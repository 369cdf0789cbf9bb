// Integration test harness
// https://github.com/ZackZahi/rpi4-bare-metal-os
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package integration

import (
	"context"
	"fmt"
)

// AssertionError represents a failed assertion.
type AssertionError struct {
	Field    string
	Expected any
	Actual   any
	Message  string
}

func (e *AssertionError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s (expected %v, got %v)", e.Field, e.Message, e.Expected, e.Actual)
	}

	return fmt.Sprintf("%s: expected %v, got %v", e.Field, e.Expected, e.Actual)
}

// AssertCase checks one test case's expectations against the console,
// scoped to output after the given transcript mark.
func AssertCase(ctx context.Context, e *Expecter, tc TestCase, mark int) []error {
	var errs []error

	timeout := tc.Expect.Timeout.Duration()

	for _, needle := range tc.Expect.Contains {
		if err := e.WaitFor(ctx, mark, needle, timeout); err != nil {
			errs = append(errs, err)
		}
	}

	for _, needle := range tc.Expect.NotContains {
		if contains := e.Transcript(mark); len(needle) > 0 && containsStr(contains, needle) {
			errs = append(errs, &AssertionError{
				Field:    "transcript",
				Expected: fmt.Sprintf("no %q", needle),
				Actual:   tail(contains, 300),
			})
		}
	}

	for _, needle := range tc.Expect.ScreenContains {
		if err := waitScreen(ctx, e, needle, timeout); err != nil {
			errs = append(errs, err)
		}
	}

	return errs
}
