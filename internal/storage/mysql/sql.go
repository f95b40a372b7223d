package mysql

import _ "embed"

//go:embed schema.sql
var schemaSQL string

// The unique key (user_id, normalized_name) turns a concurrent second insert
// into an update of the same row.
const upsertCitySQL = `
INSERT INTO cities (user_id, name, normalized_name)
VALUES (?, ?, ?)
ON DUPLICATE KEY UPDATE
  id   = LAST_INSERT_ID(id),
  name = VALUES(name)
`
