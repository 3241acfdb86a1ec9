package service

import (
	"context"

	"github.com/labstack/gommon/log"

	"github.com/iliyamo/train-seat-reservation/internal/domain"
	"github.com/iliyamo/train-seat-reservation/internal/store"
)

// do runs fn as one unit of work and retries it exactly once when the
// first attempt fails with a transient error.  The retry gets a fresh
// unit of work, so nothing from the failed attempt is visible to it.
func do(ctx context.Context, st store.Store, op string, logger *log.Logger, fn func(tx store.Tx) error) error {
	err := st.Do(ctx, fn)
	if err == nil || !domain.IsTransient(err) || ctx.Err() != nil {
		return err
	}
	logger.Warnf("action=%s retry=1 err=%q", op, err.Error())
	return st.Do(ctx, fn)
}
