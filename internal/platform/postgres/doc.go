// Package postgres provides PostgreSQL-specific implementations for the data
// storage interfaces defined in the internal/store and internal/task
// packages. It also embeds the goose migrations that create the schema those
// stores read and write.
package postgres
