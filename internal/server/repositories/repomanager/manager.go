package repomanager

import (
	"context"

	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/onetimetokens"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a DBTX and runs units of
// work. Repositories obtained inside RunInTx with the tx handle share the
// transaction; Conn returns the non-transactional handle.
type RepositoryManager interface {
	dbx.TxRunner

	RunMigrations(ctx context.Context) error
	Conn() dbx.DBTX
	Close() error

	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	OneTimeTokens(db dbx.DBTX) onetimetokens.Repository
}
