// Package worker is the child-process side of the pool.
//
// A worker is the coordinator's own executable started again with PROCPOOL_WORKER=1 in its
// environment. It announces itself with a ready frame on file descriptor 3, then reads
// request frames from stdin and answers each one with a response frame on descriptor 3,
// one task at a time, until stdin is closed.
//
// Every task runs inside a capture scope, so whatever the task prints travels back with its
// response as one block. Failures are response fields too: under the propagate policy the
// error is serialised together with a description of where it was raised; under
// log-and-continue it is printed into the task's own output and the response is marked
// suppressed.
//
// Programs opt in by calling Main (usually through procpool.ServeIfWorker) before doing
// anything else:
//
//	func main() {
//	    procpool.ServeIfWorker()
//	    ...
//	}
package worker
