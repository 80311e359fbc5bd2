// Package batch runs a list of independent jobs with a fixed concurrency cap.
//
// Results are returned in job order regardless of completion order, progress
// is reported as a monotonically non-decreasing percentage, and the first job
// failure aborts the whole batch.
package batch
