// Package monitor defines the domain model of a watched network: nodes,
// organizations, quorum sets, and the aggregate statistics produced by the
// external crawler and quorum analyzer. These are plain value types; the
// temporal versioning of nodes and organizations lives in the snapshot
// package.
package monitor
