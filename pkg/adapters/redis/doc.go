// Package redis provides Redis-backed implementations of the run archive
// (ports.RunStore) and the run locker (ports.RunLocker), so several replan
// servers can share one archive.
package redis
