// Package batch sequences validation, workspace construction, compilation,
// and execution across a list of items.
//
// Items run strictly one after another in caller order. Validation and
// configuration failures reject only the affected item; a missing encoder
// aborts the whole batch. Cancellation is honoured between items: the item
// in flight finishes and everything after it is reported as cancelled.
//
// A lock file in the state directory keeps two batches from sharing the
// scratch area, and stale workspaces left behind by killed runs are purged
// when a batch starts.
package batch
