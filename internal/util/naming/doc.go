// Package naming provides consistent naming functions for provisioned resources.
//
// Instance names follow the pattern {prefix}-{unix seconds}-{8 hex chars}. The
// timestamp keeps names sortable by creation time; the random suffix keeps
// them unique when two runs start within the same second.
package naming
