// Package filesystem provides the workspace's view of the local disk:
// the containment guard that keeps link targets inside the workspace root,
// file:// URI conversion, markdown discovery and change watching.
package filesystem
