// Package handler provides internal reflection-based job handlers.
//
// This package is internal and should not be imported directly.
// It provides:
//   - Handler: signature checks for plain Go functions used as jobs
//   - Decoding of a run's merged job data into the function's argument type
package handler
