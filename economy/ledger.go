package economy

import (
	"fmt"
	"log"
	"strings"
	"sync"

	"figurine-bot/storage"
)

// InsufficientBalanceError reports a debit that would take a balance
// below zero. Current carries the balance at the time of the attempt.
type InsufficientBalanceError struct {
	Subject string
	Current int64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance for %s: have %d", e.Subject, e.Current)
}

// Ledger tracks usage credits for one namespace of subjects (users or
// groups). All access goes through the mutex, so a debit is an atomic
// check-and-subtract and balances can never go negative. Every mutation
// is written through to the backing store before the lock is released.
type Ledger struct {
	mu     sync.Mutex
	counts map[string]int64
	store  *storage.FileStore[int64]
}

// NewLedger loads a ledger from its backing store.
func NewLedger(store *storage.FileStore[int64]) *Ledger {
	return &Ledger{
		counts: store.Load(),
		store:  store,
	}
}

// canonicalID normalizes a subject ID so numeric and string forms of the
// same subject land on the same key.
func canonicalID(id string) string {
	return strings.TrimSpace(id)
}

// Get returns the stored balance, or 0 for an unknown subject.
func (l *Ledger) Get(id string) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.counts[canonicalID(id)]
}

// Credit adds amount to the subject's balance and returns the new
// balance. Credits have no upper bound and never fail.
func (l *Ledger) Credit(id string, amount int64) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := canonicalID(id)
	l.counts[key] += amount
	l.persist()
	return l.counts[key]
}

// Debit subtracts amount from the subject's balance and returns the new
// balance. If the balance is smaller than amount the ledger is left
// untouched and an *InsufficientBalanceError is returned.
func (l *Ledger) Debit(id string, amount int64) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := canonicalID(id)
	current := l.counts[key]
	if current < amount {
		return current, &InsufficientBalanceError{Subject: key, Current: current}
	}

	l.counts[key] = current - amount
	l.persist()
	return l.counts[key], nil
}

// persist writes the full mapping through to disk. A failed write is
// logged and the in-memory state stands; the bot keeps serving from
// memory and the update is at risk only across a restart.
func (l *Ledger) persist() {
	if err := l.store.Save(l.counts); err != nil {
		log.Printf("Failed to persist ledger %s: %v", l.store.Path(), err)
	}
}
