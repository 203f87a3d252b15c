// Package electionengine implements the continuous approval-voting engine
// inside the governance context.
//
// The module owns slate interning, voter weight custody (lock/free/delegate),
// per-candidate tally bookkeeping, and the caller-triggered swap/drop moves
// that keep the fixed-size elected roster approximately sorted. It keeps
// business rules in application/domain layers and isolates infrastructure
// concerns behind ports and adapters.
package electionengine
