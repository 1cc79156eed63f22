package service

import (
	"github.com/suteetoe/erpsuite/gomicro/apperror"
	"github.com/suteetoe/erpsuite/gomicro/database"
)

// lookupError maps a failed single-row lookup to not-found or internal
func lookupError(err error, what string, id uint) error {
	if database.IsNotFound(err) {
		return apperror.NotFound("%s %d not found", what, id)
	}
	return apperror.Internal(err, "failed to load %s", what)
}

// writeError maps a failed insert/update, turning unique violations into conflicts
func writeError(err error, conflictMsg, what string) error {
	if database.IsDuplicate(err) {
		return apperror.Conflict("%s", conflictMsg)
	}
	return apperror.Internal(err, "failed to save %s", what)
}

// requireRelation turns a missing table into an explicit failure for writes
func requireRelation(err error, op string) error {
	if database.IsMissingRelation(err) {
		return apperror.Internal(err, "%s: user_tenants relation is not provisioned", op)
	}
	return err
}

// ListOptions pages list queries
type ListOptions struct {
	Limit  int
	Offset int
}

func (o ListOptions) limit() int {
	if o.Limit <= 0 || o.Limit > 500 {
		return 100
	}
	return o.Limit
}
