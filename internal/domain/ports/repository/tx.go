package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

type Tx interface{}

var NoTX interface{}

// TransactionManager runs fn inside a database transaction and hands the
// transaction handle to fn as tx.
//
// Repositories accept the same handle and use it to run their statements on
// the transaction, adding row locks (SELECT ... FOR UPDATE) when one is
// present. A nil tx means the pool is used directly.
//
//	tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx Tx) error {
//		c, err := contracts.FindByID(ctx, tx, id)
//		...
//		return contracts.Update(ctx, tx, c)
//	})
//
// The concrete type of tx is infra-defined (pgx.Tx for Postgres).
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}

type afterCommitKey struct{}

type afterCommitHooks struct {
	fns []func(ctx context.Context)
}

// WithAfterCommit prepares ctx for a transaction. The returned function runs
// every hook registered through AfterCommit and must be called only once the
// transaction has committed.
func WithAfterCommit(ctx context.Context) (context.Context, func(ctx context.Context)) {
	h := &afterCommitHooks{}
	return context.WithValue(ctx, afterCommitKey{}, h), func(ctx context.Context) {
		for _, fn := range h.fns {
			fn(ctx)
		}
	}
}

// AfterCommit defers fn until the transaction carried by ctx commits. Outside
// a transaction fn runs immediately. Hooks of a rolled back transaction never run.
func AfterCommit(ctx context.Context, fn func(ctx context.Context)) {
	if h, ok := ctx.Value(afterCommitKey{}).(*afterCommitHooks); ok {
		h.fns = append(h.fns, fn)
		return
	}
	fn(ctx)
}
