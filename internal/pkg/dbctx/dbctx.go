package dbctx

import (
	"context"

	"gorm.io/gorm"
)

// Context bundles a request context with an optional GORM transaction.
type Context struct {
	Ctx context.Context
	Tx  *gorm.DB
}

// DB returns the transaction when one is attached, otherwise fallback,
// bound to the request context.
func (c Context) DB(fallback *gorm.DB) *gorm.DB {
	txx := c.Tx
	if txx == nil {
		txx = fallback
	}
	ctx := c.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	return txx.WithContext(ctx)
}
