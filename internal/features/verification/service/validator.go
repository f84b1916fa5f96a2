package service

import (
	"context"

	apperrors "nodeproof-backend/internal/common/errors"
	"nodeproof-backend/internal/features/verification/models"
)

// Result is the outcome of a proof validation. Invalid results always carry
// the machine code and a remediation hint.
type Result struct {
	Valid  bool
	Code   apperrors.ErrorCode
	Reason string
}

func invalid(code apperrors.ErrorCode, reason string) Result {
	return Result{Valid: false, Code: code, Reason: reason}
}

// Validator checks a proof against a challenge. One implementation exists per
// interactive method; automatic methods are resolved from crawler observations
// and have no validator.
type Validator interface {
	Method() models.Method
	Validate(ctx context.Context, ch *models.Challenge, proof, nodeIP string) Result
}
