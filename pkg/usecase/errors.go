package usecase

import "github.com/m-mizutani/goerr/v2"

// Sentinel errors for use case layer
var (
	// ErrInvalidRequest marks input rejected by validation
	ErrInvalidRequest = goerr.New("invalid request")
)

// Context keys for error values
const (
	RiskIDKey = "risk_id"
)
