// Package main hosts the videotools CLI entrypoint and command graph.
//
// The Cobra command tree turns terminal invocations into batches for
// internal/batch (images, merge, rotate, aspect), environment checks, job
// history queries, and configuration scaffolding. Configuration loading and
// logger setup live in commandContext so subcommands only assemble items and
// render results.
//
// SIGINT and SIGTERM cancel the batch context; the encode in flight finishes
// and the remaining items are reported as cancelled.
package main
