package scheduler

import (
	apperrors "github.com/noah-isme/classsched/pkg/errors"
)

func newInvalidInput(msg string) *apperrors.Error {
	return apperrors.Clone(apperrors.ErrInvalidInput, msg)
}

func newInfeasible(msg string) *apperrors.Error {
	return apperrors.Clone(apperrors.ErrInfeasible, msg)
}

func newCancelled(msg string) *apperrors.Error {
	return apperrors.Clone(apperrors.ErrCancelled, msg)
}

func newBudgetExceeded(msg string) *apperrors.Error {
	return apperrors.Clone(apperrors.ErrBudgetExceeded, msg)
}
