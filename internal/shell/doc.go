// Package shell implements the interactive command console: a byte-stream
// line editor with tab completion, a prefix-dispatched command table, and
// the receive-side event printing.
//
// The shell is single-threaded by contract: Tick drains pending console
// input and runs at most one command handler at a time, and the messaging
// layer's event callbacks are serialized behind the same mutex, so handlers
// and callbacks never observe each other mid-mutation.
package shell
