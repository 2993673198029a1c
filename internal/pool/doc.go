// Package pool coordinates a fixed set of workers that each run the rpc
// linear-algebra service on their own goroutine. It is structured into small
// files by concern:
//
//   - pool.go: Pool, Config, CreatePool, Close, Status.
//   - registry.go: the single-slot Registry that receives a worker's replies.
//   - call.go: Dispatch, Call.Await and the abandon/drain path.
//   - dispatch_all.go: DispatchAll fan-out with ordered fan-in.
//   - parallel_linear.go: a weight matrix partitioned by rows across workers.
//   - errors.go: error types and predicates (IsProtocolViolation, IsDecode).
//   - metrics.go: Prometheus collectors.
//
// Every worker accepts at most one outstanding call. Dispatching to a worker
// whose previous call has not been consumed is a protocol violation and
// fails immediately; a call abandoned by its caller (context canceled) keeps
// the worker reserved until its reply arrives and is discarded, so a later
// dispatch waits for the drain instead of reading a stale reply.
//
// There is no timeout on worker replies. A worker that never answers stalls
// every call to it, and DispatchAll with it, until the caller's context is
// canceled.
package pool
