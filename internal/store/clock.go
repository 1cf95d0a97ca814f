package store

import "time"

// nowFunc is swapped out in tests.
var nowFunc = func() time.Time { return time.Now().UTC() }
