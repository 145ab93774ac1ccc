package middleware

import (
	"fingate/internal/service"

	"github.com/google/wire"
)

var ProviderSet = wire.NewSet(
	NewCors,
	NewLogger,
	NewRecovery,
	NewTraceEntry,
	NewAPIKey,
	wire.Bind(new(Authenticator), new(*service.APIKeyService)),
	NewRateLimit,
	NewUsage,
	NewOwner,
	NewResponse,
)
