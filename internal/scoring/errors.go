package scoring

import "errors"

// ErrScoreNotFound means no score row exists for the lead yet.
var ErrScoreNotFound = errors.New("lead score not found")
