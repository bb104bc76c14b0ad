// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package logging sets up structured JSON logging for the server.

main builds one *slog.Logger with New and installs it as slog.Default, so
packages that call slog directly (valuation, pricing, handlers) share the same
JSON output. The request logging middleware attaches a child logger carrying
the request ID to each request context; handlers that want those fields use
FromContext(r.Context()).

Timestamps are always UTC RFC3339. The level comes from LOG_LEVEL.

SafeRollback is meant for `defer logging.SafeRollback(tx, logger, "op")`
right after BeginTx: a rollback after a successful commit is silent, a real
rollback failure is logged.
*/
package logging
