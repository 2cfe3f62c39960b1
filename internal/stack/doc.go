// File: internal/stack/doc.go
// Brief: Stack create-or-update and convergence polling.

// Package stack submits the stack action that matches the backend's current
// state (create when absent, update when present) and then polls the stack
// until its status leaves the PROGRESS family.
package stack
