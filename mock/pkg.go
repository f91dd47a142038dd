// Package mock has test doubles for the import components: tar archive
// builders in the layout written by "docker save", an in-memory archive
// reader that tracks open streams, and in-memory unit and scratchpad stores.
package mock
