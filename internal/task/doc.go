// Package task manages background job queuing, processing, and lifecycle.
// Image generation batches run here so they never block HTTP request
// handling, and tasks left unfinished by a restart are recovered from the
// task store on startup.
package task
