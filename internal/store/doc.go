// Package store defines interfaces for data persistence operations.
// These interfaces abstract the underlying data storage mechanism from
// the application's core logic, allowing business rules to remain
// independent of specific database technologies or persistence details.
//
// Implementations live in internal/platform/postgres. Stores accept a DBTX
// so the same code runs against a connection pool or inside a transaction
// started with RunInTransaction.
package store
