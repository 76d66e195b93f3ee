// Package cache implements the file-backed key/value store behind filecache.
// Each key is validated, hashed and mapped to <Root>/<h[0:2]>/<h[2:4]>/<h>.cache;
// the file body is the serialized value and the file's modification time is
// the entry's absolute expiry. Expired entries are removed lazily when Has or
// Get observes them, never by a background sweep.
//
// Writes go through a temp file in the shard directory followed by a rename,
// so readers never observe a half-written payload. The package holds no
// cross-process locks; Clear in particular must not run concurrently with any
// other operation against the same root.
package cache
