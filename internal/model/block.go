package model

import "time"

// Transaction is an ordered list of instructions submitted by one authority.
type Transaction struct {
	Authority    AccountID
	Instructions []Instruction
}

// Block is the unit of application: transactions in order plus the block's
// timestamp, which drives time-based triggers.
type Block struct {
	Height       uint64
	Time         time.Time
	Transactions []Transaction
}
