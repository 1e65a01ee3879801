// Package plexbif generates Plex BIF preview-thumbnail sidecars.
//
// This file re-exports the internal Reporter interface and associated
// types so callers can receive every lifecycle event the Pool and Item
// Processor emit.
package plexbif

import "github.com/plexbif/plexbif/internal/reporter"

// Reporter defines the interface for progress reporting during generation.
// Implement this interface to receive detailed events about item progress.
type Reporter = reporter.Reporter

// NullReporter is a no-op reporter that discards all events.
type NullReporter = reporter.NullReporter

// HardwareSummary contains hardware information printed once at startup.
type HardwareSummary = reporter.HardwareSummary

// LibrarySummary describes the library scan that precedes processing.
type LibrarySummary = reporter.LibrarySummary

// ItemStartInfo is reported when a worker picks up an item.
type ItemStartInfo = reporter.ItemStartInfo

// ItemProgressInfo mirrors a single FFmpeg progress update for one item.
type ItemProgressInfo = reporter.ItemProgressInfo

// ItemOutcome is reported once per item's terminal result.
type ItemOutcome = reporter.ItemOutcome

// PoolSummary is the final aggregate report.
type PoolSummary = reporter.PoolSummary

// ReporterError contains error information.
type ReporterError = reporter.ReporterError
