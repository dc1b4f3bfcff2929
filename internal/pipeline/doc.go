// Package pipeline applies blocks to the world state and runs triggers.
//
// A block is applied in two phases. Transactions run first, in order,
// each one atomically: a failing instruction rolls back its whole
// transaction. Then triggers run in rounds. Round zero sees the lifecycle
// events and execute requests produced by the transactions plus the
// block's time event; every later round sees what the previous round
// produced, including TriggerCompleted notifications.
//
// Determinism: triggers are visited in sorted id order, causes in emission
// order, and every event is stamped from a logical clock. Nothing in here
// reads the wall clock.
package pipeline
