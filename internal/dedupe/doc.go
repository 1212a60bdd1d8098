// Package dedupe provides packet deduplication using a time-based cache so a
// flood-routed packet heard from multiple neighbors is processed once.
package dedupe
