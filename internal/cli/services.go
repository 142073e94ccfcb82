package cli

import (
	"time"

	"kandrai/internal/analysis"
	"kandrai/internal/config"
	"kandrai/internal/errors"
	"kandrai/internal/extract"
	"kandrai/internal/llm"
	"kandrai/internal/observability"
)

const credentialStatusTTL = 30 * time.Second

// services are the collaborators shared by the server and the CLI commands.
type services struct {
	Accessor  *llm.Accessor
	Analyzer  *analysis.Service
	Extractor *extract.Extractor
}

// buildServices wires the credential lookup, the upstream accessor and the
// analysis and extraction services. An unreachable Vault is logged and skipped:
// the credential is looked up per request, so the process still starts and
// reports the missing credential instead of exiting.
func buildServices(cfg *config.Config, om *observability.ObservabilityManager, logger *errors.Logger) *services {
	vault, err := config.NewVaultClient(cfg.Vault, logger)
	if err != nil {
		logger.LogError(err, "Vault unavailable, using environment credentials only",
			"address", cfg.Vault.Address)
		vault = nil
	}

	var opts []llm.AccessorOption
	if vault != nil {
		// status probes would otherwise hit Vault on every /health call
		opts = append(opts, llm.WithCredentialStatusTTL(credentialStatusTTL))
	}
	accessor := llm.NewAccessor(cfg.LLM, llm.NewCredentialSource(cfg.LLM, vault), logger, opts...)
	completer := observability.InstrumentCompleter(accessor, "analyze", om)

	return &services{
		Accessor:  accessor,
		Analyzer:  analysis.NewService(completer, cfg.LLM.ValidateSchema, logger),
		Extractor: extract.New(logger),
	}
}
