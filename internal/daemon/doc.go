// Package daemon ties the pipeline, feedback service, and status hub into a
// single long-running process behind an HTTP API, with flock-based locking to
// prevent multiple instances from sharing one catalog.
package daemon
