// Package janitor periodically asks the notification server to drop old jobs.
//
// Each tick calls Clear (or ForceClear when configured) with a cutoff of
// now minus the retention window. Ticks never overlap; a tick that fires
// while the previous one is still in flight is skipped.
package janitor
