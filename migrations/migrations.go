// Package migrations embeds the SQL schema files so the migrate tool
// applies the same set regardless of working directory or deployment
// artifact.
package migrations

import "embed"

// Files holds every *.sql migration. Filenames carry a numeric prefix
// ("001_init.up.sql") that defines the apply order.
//
//go:embed *.sql
var Files embed.FS
