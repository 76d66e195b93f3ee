// Package server hosts the Fiber HTTP service that exposes a single cache
// root over HTTP: per-key get/exists/put/delete, batch variants, clear, and a
// /-/status diagnostics endpoint. It carries the request-ID and recover
// middleware chain and maps cache errors to stable JSON error codes. The
// service is single-node; two servers pointed at the same root share files
// but coordinate nothing.
package server
