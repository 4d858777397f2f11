package milp_test

import (
	"context"
	"time"
)

// testContext returns a context bounded generously enough that a correct
// solver implementation always finishes well within it, but that still
// fails the test (via a deadline-exceeded solve) if something hangs.
func testContext() context.Context {
	ctx, _ := context.WithTimeout(context.Background(), 5*time.Second)
	return ctx
}
