package service

import (
	"github.com/suteetoe/erpsuite/gomicro/apperror"
	"github.com/suteetoe/erpsuite/gomicro/database"
)

func lookupError(err error, what string, id uint) error {
	if database.IsNotFound(err) {
		return apperror.NotFound("%s %d not found", what, id)
	}
	return apperror.Internal(err, "failed to load %s", what)
}

func writeError(err error, conflictMsg, what string) error {
	if database.IsDuplicate(err) {
		return apperror.Conflict("%s", conflictMsg)
	}
	return apperror.Internal(err, "failed to save %s", what)
}
