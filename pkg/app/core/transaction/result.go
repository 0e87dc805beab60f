package transaction

import "time"

// BroadcastResult is the outcome of submitting a signed transaction:
// exactly one of Ok, Failed or TimedOut. Consume it with a type switch.
type BroadcastResult interface {
	TxID() string
	Status() string
	isBroadcastResult()
}

// Ok means the transaction was confirmed.
type Ok struct {
	ID string
}

// Failed means the transaction was rejected or confirmed with an error.
type Failed struct {
	ID     string // empty if the node rejected it before assigning one
	Reason string
}

// TimedOut means no confirmation arrived before the deadline. The
// transaction may still land later.
type TimedOut struct {
	ID    string
	After time.Duration
}

func (r Ok) TxID() string       { return r.ID }
func (r Failed) TxID() string   { return r.ID }
func (r TimedOut) TxID() string { return r.ID }

func (Ok) Status() string       { return "ok" }
func (Failed) Status() string   { return "failed" }
func (TimedOut) Status() string { return "timed_out" }

func (Ok) isBroadcastResult()       {}
func (Failed) isBroadcastResult()   {}
func (TimedOut) isBroadcastResult() {}
