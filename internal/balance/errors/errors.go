package balanceerrors

import (
	"net/http"

	"leaveledger/internal/shared/apperror"
)

var (
	ErrInvalidEmployeeID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid employee id",
		http.StatusBadRequest,
	)
	ErrEmployeeNotFound = apperror.New(
		apperror.CodeNotFound,
		"employee not found",
		http.StatusNotFound,
	)
	ErrEmployeeHasNoHireDate = apperror.New(
		apperror.CodeInvalidState,
		"employee has no hire date or joining date",
		http.StatusBadRequest,
	)
	ErrBalanceNotFound = apperror.New(
		apperror.CodeNotFound,
		"leave balance not found",
		http.StatusNotFound,
	)
	ErrInvalidWorkYear = apperror.New(
		apperror.CodeInvalidInput,
		"work year must be a non-negative integer",
		http.StatusBadRequest,
	)
	ErrUnknownCategory = apperror.New(
		apperror.CodeInvalidState,
		"unknown leave category",
		http.StatusBadRequest,
	)
	ErrZeroAdjustment = apperror.New(
		apperror.CodeInvalidInput,
		"adjustment days must be non-zero",
		http.StatusBadRequest,
	)
	ErrAdjustmentReasonRequired = apperror.New(
		apperror.CodeInvalidInput,
		"reason is required for a manual adjustment",
		http.StatusBadRequest,
	)
	ErrInvalidDateFormat = apperror.New(
		apperror.CodeInvalidInput,
		"invalid date format, expected YYYY-MM-DD",
		http.StatusBadRequest,
	)
)
