// Package migrations holds the SQL schema of the wizard service.
package migrations

import "embed"

// FS contains every up and down migration.
//
//go:embed *.sql
var FS embed.FS
