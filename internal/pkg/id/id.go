// Package id generates identifiers for queued tasks.
package id

import "github.com/oklog/ulid/v2"

// New returns a ULID string. ULIDs sort by creation time, so stream
// consumers and logs can order tasks by id alone.
func New() string {
	return ulid.Make().String()
}
