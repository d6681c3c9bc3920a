// Package memory provides in-process implementations of the run archive and
// the run locker, for tests and single-instance deployments.
package memory
