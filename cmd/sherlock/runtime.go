package main

import (
	"context"

	"github.com/sherlockintel/sherlock/internal/checkpoint"
	apperrors "github.com/sherlockintel/sherlock/internal/errors"
	"github.com/sherlockintel/sherlock/internal/ledger"
	"github.com/sherlockintel/sherlock/internal/llm"
	"github.com/sherlockintel/sherlock/internal/memory"
	"github.com/sherlockintel/sherlock/internal/monitor"
	"github.com/sherlockintel/sherlock/internal/pipeline"
	"github.com/sherlockintel/sherlock/internal/store"
)

// runtime bundles the shared backends a command needs, with a single Close.
type runtime struct {
	orchestrator   *pipeline.Orchestrator
	investigations *store.InvestigationStore
	activity       *monitor.ActivityMonitor
	closers        []func() error
}

func (r *runtime) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			logger.WithError(err).Warn("Shutdown cleanup failed")
		}
	}
}

// buildRuntime opens the ledger, checkpoint store, investigation store, and
// memory facade per the active configuration.
func buildRuntime(ctx context.Context) (*runtime, error) {
	r := &runtime{activity: monitor.NewActivityMonitor(monitor.DefaultCapacity)}

	var led ledger.Ledger
	var err error
	switch cfg.Storage.LedgerType {
	case "postgres":
		led, err = ledger.NewPostgresLedger(cfg.Storage.PostgresDSN, logger)
	default:
		led, err = ledger.NewSQLiteLedger(cfg.Storage.LedgerPath, logger)
	}
	if err != nil {
		return nil, apperrors.StorageError(err, "open ledger")
	}
	r.closers = append(r.closers, led.Close)

	investigations, err := store.NewInvestigationStore(cfg.Storage.DataDir, logger)
	if err != nil {
		r.Close()
		return nil, apperrors.StorageError(err, "open investigation store")
	}
	r.investigations = investigations

	var checkpoints *checkpoint.Store
	if cfg.Storage.CheckpointDir != "" {
		checkpoints, err = checkpoint.Open(cfg.Storage.CheckpointDir)
		if err != nil {
			r.Close()
			return nil, apperrors.StorageError(err, "open checkpoint store")
		}
		r.closers = append(r.closers, checkpoints.Close)
	}

	mem, err := memory.NewManager(cfg.Storage.MemoryDir, logger)
	if err != nil {
		r.Close()
		return nil, apperrors.StorageError(err, "open memory store")
	}

	llmClient, err := llm.NewFromConfig(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Warn("LLM client unavailable, narrative generation disabled")
		llmClient = nil
	}
	if llmClient != nil {
		r.closers = append(r.closers, llmClient.Close)
	}

	r.orchestrator = pipeline.NewOrchestrator(cfg, pipeline.Deps{
		Ledger:         led,
		Monitor:        r.activity,
		Checkpoints:    checkpoints,
		Investigations: investigations,
		Memory:         mem,
		LLM:            llmClient,
	}, cfg.Pipeline.Monitored, logger)

	return r, nil
}
