// Package models contains GORM persistence models that map to database tables.
// These models are separate from domain types so the domain layer stays free of
// ORM tags and storage encodings.
//
// Sealed credentials are stored as base64 text so the same schema works on
// PostgreSQL and SQLite.
package models
