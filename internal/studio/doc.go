// Package studio implements the product photo workflows: analyzing uploads
// into a creative plan, pricing and reserving credits for a generation, and
// running the generation's image batch in the background with bounded
// concurrency and per-image retries.
package studio
