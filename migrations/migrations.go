// Package migrations embeds the SQL schema for every supported dialect.
package migrations

import "embed"

// FS holds one goose migration directory per dialect: postgres/ and sqlite/.
//
//go:embed postgres/*.sql sqlite/*.sql
var FS embed.FS
