// Package integration holds end-to-end tests that need a container runtime.
// Run them with -tags integration.
package integration
