// Package mempool tracks signed transactions that have been forwarded to the
// node and have not settled yet. A resubmission of the same type, owner and
// nonce is refused while the first copy is in flight, so a double-clicked
// submit never reaches the node twice.
package mempool

import (
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/uhyunpark/perpdesk/pkg/app/core/transaction"
	"github.com/uhyunpark/perpdesk/pkg/util"
)

// Key identifies one signed transaction.
type Key struct {
	Type  transaction.TxType
	Owner common.Address
	Nonce string
}

// KeyOf builds the key for tx signed by owner.
func KeyOf(tx *transaction.SignedTransaction, owner common.Address) Key {
	k := Key{Type: tx.Type, Owner: owner}
	switch {
	case tx.Plan != nil:
		k.Nonce = strings.TrimLeft(tx.Plan.Nonce, "0")
	case tx.Transfer != nil:
		k.Nonce = strings.TrimLeft(tx.Transfer.Nonce, "0")
	}
	return k
}

// Mempool is safe for concurrent use.
type Mempool struct {
	mu       sync.Mutex
	clock    util.Clock
	inflight map[Key]time.Time
}

func NewMempool(clock util.Clock) *Mempool {
	if clock == nil {
		clock = util.RealClock{}
	}
	return &Mempool{clock: clock, inflight: make(map[Key]time.Time)}
}

// Admit reserves k. It returns false if k is already in flight.
func (m *Mempool) Admit(k Key) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.inflight[k]; ok {
		return false
	}
	m.inflight[k] = m.clock.Now()
	return true
}

// Release frees k and reports how long it was in flight.
func (m *Mempool) Release(k Key) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	admitted, ok := m.inflight[k]
	if !ok {
		return 0
	}
	delete(m.inflight, k)
	return m.clock.Now().Sub(admitted)
}

// Len returns total pending txs.
func (m *Mempool) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.inflight)
}

// Counts returns pending txs per transaction type.
func (m *Mempool) Counts() map[transaction.TxType]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[transaction.TxType]int)
	for k := range m.inflight {
		out[k.Type]++
	}
	return out
}
