// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for a scan to run:
//
//   - DocumentStore: Lazy, containment-checked cache of workspace documents
//   - AnalysisService: Markdown link analysis (links and diagnostics)
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - LinkChecker: Probes external URLs. Without it, external links are not verified.
//   - ReportStore: Scan history persistence. Without it, runs are not recorded.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, connector, or analysis package
package driven
