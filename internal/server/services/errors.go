package services

import (
	"errors"

	"github.com/dmitrijs2005/travelkeeper/internal/common"
)

var domainKinds = []error{
	common.ErrValidation,
	common.ErrConflict,
	common.ErrCredentials,
	common.ErrToken,
	common.ErrSessionState,
	common.ErrNotFound,
	common.ErrBusinessRule,
	common.ErrUnavailable,
}

// classify returns domain errors as they are and marks everything else as a
// storage failure.
func classify(err error) error {
	if err == nil {
		return nil
	}
	for _, kind := range domainKinds {
		if errors.Is(err, kind) {
			return err
		}
	}
	return common.StorageError(err)
}
