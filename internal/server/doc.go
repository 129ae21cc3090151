// Package server exposes a DiskCache of JSON documents over HTTP using Fiber.
// It owns the middleware chain (panic recovery, request IDs, access logging)
// and the /entries routes that translate requests into cache operations.
// Handlers wait for each operation's completion signal before responding, so
// a 204 from PUT or DELETE means the barrier has run, not that it succeeded:
// filesystem failures stay inside the cache's best-effort contract.
package server
