// Package provisioning sequences one end-to-end provisioning run.
//
// # Phases
//
// An [Orchestrator] validates the configuration, creates an instance through a
// [compute.Provider], waits until it is reachable, and runs the synthesized
// setup script over an SSH [Session]. Progress is reported as a single
// line-oriented sequence: local status lines as written, remote output
// prefixed with "[REMOTE] ".
//
// # Failures
//
// Every failure becomes one "ERROR: ..." line that ends the sequence. A
// created instance is never torn down automatically; its ID is part of the
// error line so it can be destroyed explicitly.
//
// # Observability
//
// Phase events go to an [Observer] and, when configured, to [Metrics].
package provisioning
