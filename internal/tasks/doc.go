// Package tasks is a small Redis-backed task queue used to fan work out to a
// pool of in-process workers. Producers enqueue typed JSON payloads; a Pool
// pops them and dispatches to registered handlers by task type.
//
// The queue carries throwaway work (score recomputation batches), so there is
// no retry or dead-letter machinery: a handler error is logged and the task
// dropped. Anything that must survive a crash belongs in Postgres, not here.
package tasks
