// Package contact holds the bounded set of known mesh peers and its
// fixed-record binary persistence.
//
// Each contact occupies exactly 141 bytes on disk, field by field with a
// declared byte order, so files written on one host load bit-identically on
// another. The store is capacity-bounded: once full it stops accepting new
// contacts, and loading stops cleanly at capacity or end of stream.
package contact
