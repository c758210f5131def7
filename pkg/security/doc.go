// Package security holds the limits and input checks the scheduler applies to
// names, worker counts and error messages it logs.
package security
