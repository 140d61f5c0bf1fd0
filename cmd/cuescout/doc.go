// Package main hosts the cuescout CLI entrypoint and command graph.
//
// The Cobra-based command tree covers the daemon (`serve`), one-shot scans,
// catalog inspection and CSV export, and configuration scaffolding. It
// centralizes configuration resolution and logger setup so subcommands can
// focus on user experience instead of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
