// Package server ties the cache engine, the worker pool, and the text
// protocol together into the TCP service clients connect to.
//
// # Connection model
//
// One accept loop owns the listener. Every accepted connection becomes a
// single work unit handed to the executor pool: the worker runs the whole
// connection lifetime — parse, dispatch, reply, repeat — until the client
// disconnects, sends quit, or commits a fatal protocol violation.
//
// The pool's bounded queue is the server's admission control. When Execute
// rejects a connection (pool saturated or stopping), the server replies
// "SERVER_ERROR busy" and closes the socket rather than queueing without
// bound.
//
// # Shutdown
//
// Shutdown closes the listener, closes every live connection, and then
// stops the pool with await=true, so it returns only after every worker has
// finished. It is safe to call more than once.
package server
