package service

import (
	"errors"

	"github.com/automark/automark-api/internal/repository"
)

func isDuplicate(err error) bool {
	return errors.Is(err, repository.ErrDuplicate)
}
