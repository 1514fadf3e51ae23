// Package memory is an in-process document store used for development
// (STORE=memory) and tests. It mirrors the Postgres repositories' semantics:
// user scoping, store order by (created_at, insertion), and the
// (user_id, folder_id, name) uniqueness of file records.
package memory

import (
	"context"
	"sync"

	"cloudfiles/internal/domain/models/drive"
	"cloudfiles/internal/domain/repositories"
)

// Store holds folder and file records
type Store struct {
	mu      sync.RWMutex
	seq     uint64
	folders map[string]folderRow
	files   map[string]fileRow
}

type folderRow struct {
	seq    uint64
	folder drive.Folder
}

type fileRow struct {
	seq  uint64
	file drive.File
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		folders: make(map[string]folderRow),
		files:   make(map[string]fileRow),
	}
}

func (s *Store) nextSeq() uint64 {
	s.seq++
	return s.seq
}

// TransactionManager serializes transactional blocks against each other.
// Individual repository calls stay atomic on their own.
type TransactionManager struct {
	mu sync.Mutex
}

// NewTransactionManager creates a transaction manager for the memory store
func NewTransactionManager() repositories.TransactionManager {
	return &TransactionManager{}
}

// ExecTx runs fn while holding the transaction lock
func (tm *TransactionManager) ExecTx(ctx context.Context, fn repositories.TxFn) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx)
}
