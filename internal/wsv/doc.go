// Package wsv holds the world state view: the trigger registry and the
// single mutation gateway every instruction goes through.
//
// Writers are serialized by a mutex and work on a private copy of the
// current world. A successful mutation publishes the copy as the new
// immutable snapshot with one atomic pointer swap, so readers never block
// and never observe a half-applied change.
package wsv
