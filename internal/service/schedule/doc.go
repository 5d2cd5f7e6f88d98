// Package schedule implements drip-campaign scheduling and its lifecycle.
//
// Publishing a campaign expands (emails × audience leads) into one
// ScheduledJob per pair with an absolute send time, registers each with the
// time-based trigger, and flips the campaign active. Pause cancels the jobs
// and their triggers; resume re-registers the cancelled jobs in place with the
// delay clock restarted from the resume instant.
//
// The service depends on the Repository interface in this package and the
// trigger.Scheduler collaborator; it should never import from api/.
// Repository implementations live in repository/postgres/.
package schedule
