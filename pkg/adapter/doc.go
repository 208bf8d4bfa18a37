// Package adapter lets the pipeline take any stage result from an
// interchangeable synthesis backend.
//
// [Builtin] wraps the scheduler, placer and router of this module. [Exec]
// wraps an external tool behind a small JSON protocol so comparison runs
// against third-party synthesizers need no format parsing in the core. A
// [Registry] keeps them in priority order and falls back to the built-in
// adapter whenever the requested one is missing or unavailable.
package adapter
