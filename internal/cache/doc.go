// Package cache implements the disk-backed key-value cache: one directory per
// instance, one file per key. Values of a single type T pass through an
// injected Codec so the cache never interprets stored bytes. All operations
// are queued on a per-instance scheduler: reads run concurrently with each
// other, while Set/Remove/RemoveAll act as barriers that wait for everything
// submitted before them and hold back everything submitted after. Filesystem
// failures during mutations are swallowed and only surface through the
// optional ErrorHandler hook, so callers observe a best-effort contract.
package cache
