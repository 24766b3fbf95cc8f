package ledger

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Ledger is an in-memory, thread-safe booking chain with a pending queue.
// A single RWMutex guards both, so readers never observe a half-mined state.
type Ledger struct {
	mu      sync.RWMutex
	chain   []*Block
	pending []Transaction

	now     func() time.Time
	onMined func(Block)
	logger  *zap.Logger
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock overrides the wall clock used for block timestamps.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithLogger attaches a logger; the default discards output.
func WithLogger(logger *zap.Logger) Option {
	return func(l *Ledger) { l.logger = logger }
}

// WithMinedHook registers fn to run after each successful Mine, outside the
// lock. fn receives its own copy of the block. Every mined block reaches fn
// exactly once, but concurrent Mine calls may invoke fn in either order and
// at the same time; consumers that care about order should use Block.Index.
func WithMinedHook(fn func(Block)) Option {
	return func(l *Ledger) { l.onMined = fn }
}

// New creates a Ledger holding only a freshly sealed genesis block.
func New(opts ...Option) *Ledger {
	l := &Ledger{
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	genesis := NewBlock(0, Timestamp(l.now()), GenesisPayload(), GenesisPreviousHash)
	l.chain = append(l.chain, genesis)
	return l
}

// AddTransaction queues tx for the next block. Field contents are stored as given.
func (l *Ledger) AddTransaction(tx Transaction) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pending = append(l.pending, tx)
}

// Mine seals every pending transaction into a new block and appends it.
// It returns false, leaving the ledger untouched, when nothing is pending.
func (l *Ledger) Mine() (*Block, bool) {
	b, ok := l.mine()
	if ok && l.onMined != nil {
		l.onMined(b.clone())
	}
	return b, ok
}

func (l *Ledger) mine() (*Block, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.pending) == 0 {
		return nil, false
	}

	prev := l.chain[len(l.chain)-1]
	block := NewBlock(len(l.chain), Timestamp(l.now()), TransactionsPayload(l.pending), prev.Hash)
	l.chain = append(l.chain, block)
	l.pending = nil

	l.logger.Info("block mined",
		zap.Int("index", block.Index),
		zap.Int("transactions", block.Data.Len()),
		zap.String("hash", block.Hash),
	)

	cp := block.clone()
	return &cp, true
}

// IsValid reports whether every block is self-consistent and linked to its
// predecessor.
func (l *Ledger) IsValid() bool {
	return l.Verify() == nil
}

// Verify walks the chain from genesis and returns an *IntegrityError for the
// first block that fails. The genesis block is checked for self-consistency
// only; it has no predecessor.
func (l *Ledger) Verify() error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if err := l.verifyLocked(); err != nil {
		return err
	}
	return nil
}

func (l *Ledger) verifyLocked() *IntegrityError {
	for i, curr := range l.chain {
		if curr.Hash != curr.RecomputeHash() {
			return &IntegrityError{Index: i, Err: ErrHashMismatch}
		}
		if i == 0 {
			continue
		}
		if curr.PreviousHash != l.chain[i-1].Hash {
			return &IntegrityError{Index: i, Err: ErrBrokenLink}
		}
	}
	return nil
}

// Chain returns a copy of every block in order.
func (l *Ledger) Chain() []Block {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.chainLocked()
}

func (l *Ledger) chainLocked() []Block {
	out := make([]Block, len(l.chain))
	for i, b := range l.chain {
		out[i] = b.clone()
	}
	return out
}

// Pending returns a copy of the queued transactions in arrival order.
func (l *Ledger) Pending() []Transaction {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.pendingLocked()
}

func (l *Ledger) pendingLocked() []Transaction {
	out := make([]Transaction, len(l.pending))
	copy(out, l.pending)
	return out
}

// Block returns a copy of the block at the given zero-based index.
func (l *Ledger) Block(index int) (Block, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if index < 0 || index >= len(l.chain) {
		return Block{}, fmt.Errorf("index %d: %w", index, ErrBlockNotFound)
	}
	return l.chain[index].clone(), nil
}

// Len returns the number of blocks, genesis included.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.chain)
}

// PendingLen returns the number of queued transactions.
func (l *Ledger) PendingLen() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.pending)
}

// Root returns the hash of the chain tip.
func (l *Ledger) Root() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.chain[len(l.chain)-1].Hash
}

// TotalBookings counts transactions across all non-genesis blocks.
func (l *Ledger) TotalBookings() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.totalBookingsLocked()
}

func (l *Ledger) totalBookingsLocked() int {
	n := 0
	for _, b := range l.chain[1:] {
		n += b.Data.Len()
	}
	return n
}

// Snapshot is a consistent view of the ledger taken under one lock.
type Snapshot struct {
	Chain         []Block
	Pending       []Transaction
	Root          string
	TotalBookings int
	Valid         bool
	// Integrity is the first failure found by Verify, nil when Valid.
	Integrity *IntegrityError
}

// Snapshot captures chain, queue and validity together.
func (l *Ledger) Snapshot() Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()

	s := Snapshot{
		Chain:         l.chainLocked(),
		Pending:       l.pendingLocked(),
		Root:          l.chain[len(l.chain)-1].Hash,
		TotalBookings: l.totalBookingsLocked(),
		Integrity:     l.verifyLocked(),
	}
	s.Valid = s.Integrity == nil
	return s
}

// Tamper edits a stored block in place without resealing it. It exists so
// operators can demonstrate that Verify catches modified history.
func (l *Ledger) Tamper(index int, edit func(*Block)) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if index < 0 || index >= len(l.chain) {
		return fmt.Errorf("index %d: %w", index, ErrBlockNotFound)
	}
	edit(l.chain[index])
	l.logger.Warn("block modified without resealing", zap.Int("index", index))
	return nil
}
