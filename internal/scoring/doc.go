// Package scoring computes per-lead engagement scores from email logs.
//
// The model is deliberately split in two layers: pure functions (decay,
// temperature bucketing, the Recompute aggregation) that take an explicit
// Config and clock, and a Recomputer service that loads logs through a
// repository interface and upserts the resulting LeadScore row. The pure layer
// carries all the arithmetic and is what the batch worker and the decay sweep
// share, so the two paths cannot drift apart.
package scoring
