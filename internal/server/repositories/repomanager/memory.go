package repomanager

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/onetimetokens"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/users"
)

// memoryHandle tells the memory manager which side of the transaction lock
// a repository is bound to. It carries no connection and is never called.
type memoryHandle struct {
	dbx.DBTX
	name string
}

var memoryTx = &memoryHandle{name: "tx"}

// MemoryRepositoryManager keeps all state in process memory. Transactions
// are serialized; a failed transaction restores the state captured when it
// began. Repositories bound to Conn() take the same lock per call, so no
// write outside a transaction can be lost to a concurrent rollback.
// Inside RunInTx only the tx handle may be used.
type MemoryRepositoryManager struct {
	txMu          sync.Mutex
	users         *users.MemoryRepository
	refreshTokens *refreshtokens.MemoryRepository
	oneTimes      *onetimetokens.MemoryRepository
}

func NewMemoryRepositoryManager() *MemoryRepositoryManager {
	return &MemoryRepositoryManager{
		users:         users.NewMemoryRepository(),
		refreshTokens: refreshtokens.NewMemoryRepository(),
		oneTimes:      onetimetokens.NewMemoryRepository(),
	}
}

func (m *MemoryRepositoryManager) Users(db dbx.DBTX) users.Repository {
	if db == memoryTx {
		return m.users
	}
	return lockedUsers{mu: &m.txMu, repo: m.users}
}

func (m *MemoryRepositoryManager) RefreshTokens(db dbx.DBTX) refreshtokens.Repository {
	if db == memoryTx {
		return m.refreshTokens
	}
	return lockedRefreshTokens{mu: &m.txMu, repo: m.refreshTokens}
}

func (m *MemoryRepositoryManager) OneTimeTokens(db dbx.DBTX) onetimetokens.Repository {
	if db == memoryTx {
		return m.oneTimes
	}
	return lockedOneTimeTokens{mu: &m.txMu, repo: m.oneTimes}
}

func (m *MemoryRepositoryManager) Conn() dbx.DBTX { return nil }

func (m *MemoryRepositoryManager) RunMigrations(context.Context) error { return nil }

func (m *MemoryRepositoryManager) Close() error { return nil }

func (m *MemoryRepositoryManager) RunInTx(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.txMu.Lock()
	defer m.txMu.Unlock()

	restores := []func(){m.users.Snapshot(), m.refreshTokens.Snapshot(), m.oneTimes.Snapshot()}
	rollback := func() {
		for _, r := range restores {
			r()
		}
	}

	defer func() {
		if p := recover(); p != nil {
			rollback()
			panic(p)
		}
		if err != nil {
			rollback()
		}
	}()

	return fn(ctx, memoryTx)
}
