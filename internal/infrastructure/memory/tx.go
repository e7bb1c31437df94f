package memory

import "context"

// TxManager is a pass-through boundary for the in-memory stores: each
// repository operation is already atomic under its own mutex, so there is
// nothing to begin or roll back.
type TxManager struct{}

func NewTxManager() *TxManager {
	return &TxManager{}
}

func (*TxManager) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
