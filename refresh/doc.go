// Package refresh keeps an authenticated session alive by refreshing the
// access token shortly before it expires.
//
// # Lifecycle
//
// A [Scheduler] checks the stored token every Interval (60s by default) and
// calls the Refresher when the token is within ThresholdMinutes (10 by
// default) of expiry. The Engine starts the scheduler when a session becomes
// authenticated and stops it when the session ends. Start on a running
// scheduler is a no-op, so at most one check loop exists per scheduler.
//
// # What this package must NOT do
//
//   - Touch the credential store beyond reading the token.
//   - Decide what a failed refresh means; the Refresher owns that.
//   - Import goAuthClient or pipeline.
package refresh
