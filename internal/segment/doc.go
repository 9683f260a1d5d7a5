// Package segment owns the attachment to a named shared-memory segment.
//
// A Handle moves through three states: Unattached, Attached and Closed.
// Initialize maps an existing segment, Validate checks its byte size against
// the size the caller's layout requires, and Finalize drops the local view.
// Finalize never unlinks the segment; its lifetime belongs to whoever
// created it.
//
// Create and Unlink are provisioning helpers for that external owner (the
// CLI and tests). A Handle never calls them.
package segment
