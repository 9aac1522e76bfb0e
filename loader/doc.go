// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

// Package loader persists ordered record sets into relational tables in
// fixed-size batches, one transaction per batch.
//
// A run owns a single connection (Store). The Orchestrator walks the relations
// in dependency order, the planner slices each RecordSet into batches, and the
// BatchLoader commits or rolls back every batch as a unit. Failed batches are
// queued per relation and resubmitted exactly once by the RetryCoordinator
// after a backoff delay. The resulting Report counts committed and failed
// batches; nothing else persists across runs.
package loader
