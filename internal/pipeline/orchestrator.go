// Package pipeline wires the ten analysis stages into a single run: state
// construction, stage execution with checkpointing, the human-in-the-loop
// interrupt before the compliance gate, terminal routing, and memory
// consolidation.
package pipeline

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/sherlockintel/sherlock/internal/checkpoint"
	"github.com/sherlockintel/sherlock/internal/classify"
	"github.com/sherlockintel/sherlock/internal/compliance"
	"github.com/sherlockintel/sherlock/internal/config"
	"github.com/sherlockintel/sherlock/internal/cryptanalysis"
	"github.com/sherlockintel/sherlock/internal/entities"
	apperrors "github.com/sherlockintel/sherlock/internal/errors"
	"github.com/sherlockintel/sherlock/internal/graph"
	"github.com/sherlockintel/sherlock/internal/ingestion"
	"github.com/sherlockintel/sherlock/internal/ledger"
	"github.com/sherlockintel/sherlock/internal/llm"
	"github.com/sherlockintel/sherlock/internal/memory"
	"github.com/sherlockintel/sherlock/internal/models"
	"github.com/sherlockintel/sherlock/internal/monitor"
	"github.com/sherlockintel/sherlock/internal/patterns"
	"github.com/sherlockintel/sherlock/internal/rag"
	"github.com/sherlockintel/sherlock/internal/semantic"
	"github.com/sherlockintel/sherlock/internal/store"
	"github.com/sherlockintel/sherlock/internal/synthesis"
	"github.com/sherlockintel/sherlock/internal/timeline"
)

// Terminal routing outcomes.
const (
	RouteReport       = "report"
	RouteRefinement   = "refinement"
	RouteBlocked      = "blocked"
	StatusInterrupted = "interrupted"
)

// node is one registered stage.
type node struct {
	name string
	run  func(ctx context.Context, state *models.InvestigationState) error
}

// Orchestrator owns the stage registry and the run lifecycle.
type Orchestrator struct {
	cfg            *config.Config
	ledger         ledger.Ledger
	monitor        *monitor.ActivityMonitor
	checkpoints    *checkpoint.Store
	investigations *store.InvestigationStore
	memory         *memory.Manager
	llmClient      llm.Client
	monitored      bool
	logger         *logrus.Logger
}

// Deps carries the shared backends the orchestrator runs against. Ledger
// and investigations are required; the rest are optional and default to
// in-process fallbacks.
type Deps struct {
	Ledger         ledger.Ledger
	Monitor        *monitor.ActivityMonitor
	Checkpoints    *checkpoint.Store
	Investigations *store.InvestigationStore
	Memory         *memory.Manager
	LLM            llm.Client
}

// NewOrchestrator creates the pipeline runtime. monitored controls whether
// stage boundaries emit activity events and episodes.
func NewOrchestrator(cfg *config.Config, deps Deps, monitored bool, logger *logrus.Logger) *Orchestrator {
	return &Orchestrator{
		cfg:            cfg,
		ledger:         deps.Ledger,
		monitor:        deps.Monitor,
		checkpoints:    deps.Checkpoints,
		investigations: deps.Investigations,
		memory:         deps.Memory,
		llmClient:      deps.LLM,
		monitored:      monitored,
		logger:         logger,
	}
}

// nodes builds the stage registry in execution order. Vector and graph
// backends are opened per run and closed when the run ends.
func (o *Orchestrator) nodes() ([]node, func(), error) {
	vectorStore, graphBackend, cleanup, err := o.openBackends()
	if err != nil {
		return nil, nil, err
	}

	embedder := o.embedder()
	ingest := ingestion.NewAgent(o.cfg, o.ledger, o.logger)
	classifier, err := classify.NewClassifier(o.logger)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	extractor := entities.NewExtractor(o.cfg, o.logger)
	hunter := cryptanalysis.NewHunter(o.logger)
	linker := semantic.NewLinker(o.cfg, embedder, vectorStore, o.logger)
	builder := timeline.NewBuilder(o.logger)
	recognizer := patterns.NewRecognizer(o.cfg, o.logger)
	graphBuilder := graph.NewBuilder(graphBackend, o.logger)
	synthesizer := synthesis.NewAgent(o.cfg.Storage.ReportsDir, o.llmClient, o.logger)
	gate := compliance.NewGate(o.cfg, o.logger)

	nodes := []node{
		{"ingest_documents", ingest.Run},
		{"classify_documents", func(_ context.Context, s *models.InvestigationState) error { return classifier.Run(s) }},
		{"extract_entities", extractor.Run},
		{"cryptanalysis_hunter", func(_ context.Context, s *models.InvestigationState) error { return hunter.Run(s) }},
		{"semantic_linker", linker.Run},
		{"timeline", func(_ context.Context, s *models.InvestigationState) error { return builder.Run(s) }},
		{"pattern_recognition", func(_ context.Context, s *models.InvestigationState) error { return recognizer.Run(s) }},
		{"build_knowledge_graph", graphBuilder.Run},
		{"synthesis", synthesizer.Run},
		{"odos_guardian", func(_ context.Context, s *models.InvestigationState) error { return gate.Run(s) }},
	}
	return nodes, cleanup, nil
}

// Run executes a full investigation. When interrupt-before-gate is enabled
// the run suspends before odos_guardian and must be continued with Resume.
func (o *Orchestrator) Run(ctx context.Context, investigationID string) (*models.InvestigationState, error) {
	state := models.NewInvestigationState(investigationID, o.cfg.Ingestion.UploadsPath)
	state.Config.ThreadID = uuid.NewString()
	return o.execute(ctx, state, 0)
}

// Resume continues an interrupted or checkpointed run from its last saved
// stage boundary.
func (o *Orchestrator) Resume(ctx context.Context, threadID string) (*models.InvestigationState, error) {
	if o.checkpoints == nil {
		return nil, apperrors.New(apperrors.ErrorTypePipeline, apperrors.SeverityHigh, "no checkpoint backend configured")
	}
	env, err := o.checkpoints.Load(threadID)
	if err != nil {
		return nil, apperrors.PipelineErrorf(err, "load checkpoint %s", threadID)
	}
	if env == nil {
		return nil, apperrors.New(apperrors.ErrorTypePipeline, apperrors.SeverityHigh, "no checkpoint for thread "+threadID)
	}
	return o.execute(ctx, env.State, env.NextIndex)
}

func (o *Orchestrator) execute(ctx context.Context, state *models.InvestigationState, startIndex int) (*models.InvestigationState, error) {
	nodes, cleanup, err := o.nodes()
	if err != nil {
		return nil, err
	}
	defer cleanup()

	gateIndex := len(nodes) - 1
	resuming := startIndex > 0

	for i := startIndex; i < len(nodes); i++ {
		if err := ctx.Err(); err != nil {
			o.saveState(state)
			return state, err
		}

		if i == gateIndex && o.cfg.Pipeline.InterruptBeforeGate && !resuming {
			state.CurrentStep = StatusInterrupted
			o.checkpointAt(state, nodes[i].name, i)
			o.saveState(state)
			o.emit(state, "orchestrator", StatusInterrupted, map[string]any{"thread_id": state.Config.ThreadID})
			o.logger.WithFields(logrus.Fields{
				"investigation_id": state.Config.InvestigationID,
				"thread_id":        state.Config.ThreadID,
			}).Info("Run interrupted before compliance gate")
			return state, nil
		}

		o.runNode(ctx, nodes[i], state)
		o.checkpointAt(state, nodes[i].name, i+1)
	}

	route := o.route(state)
	state.CurrentStep = route
	o.emit(state, "orchestrator", "routed_"+route, nil)

	if o.memory != nil {
		if err := o.memory.Consolidate(state); err != nil {
			o.logger.WithError(err).Warn("Memory consolidation failed")
		}
	}
	o.saveState(state)
	o.finishInvestigation(state, route)

	if o.checkpoints != nil {
		if err := o.checkpoints.Delete(state.Config.ThreadID); err != nil {
			o.logger.WithError(err).Warn("Checkpoint cleanup failed")
		}
	}
	return state, nil
}

// runNode executes one stage; its error becomes log data, never control
// flow.
func (o *Orchestrator) runNode(ctx context.Context, n node, state *models.InvestigationState) {
	o.emit(state, n.name, "started", nil)
	if err := n.run(ctx, state); err != nil {
		state.AppendError(n.name, err)
		o.logger.WithError(err).WithField("stage", n.name).Warn("Stage finished with error")
	}
	state.CurrentStep = shortName(n.name) + "_complete"
	o.emit(state, n.name, "completed", map[string]any{"errors": len(state.ErrorLog)})
}

func (o *Orchestrator) route(state *models.InvestigationState) string {
	if state.ComplianceReport == nil {
		return RouteRefinement
	}
	switch state.ComplianceReport.OverallStatus {
	case models.ComplianceValid:
		return RouteReport
	case models.ComplianceBlocked:
		return RouteBlocked
	default:
		return RouteRefinement
	}
}

func (o *Orchestrator) checkpointAt(state *models.InvestigationState, stage string, nextIndex int) {
	if o.checkpoints == nil {
		return
	}
	if err := o.checkpoints.Save(state.Config.ThreadID, stage, nextIndex, state); err != nil {
		o.logger.WithError(err).WithField("stage", stage).Warn("Checkpoint save failed")
	}
}

func (o *Orchestrator) saveState(state *models.InvestigationState) {
	if o.investigations == nil {
		return
	}
	if err := o.investigations.SaveState(state.Config.InvestigationID, state); err != nil {
		o.logger.WithError(err).Warn("State save failed")
	}
}

func (o *Orchestrator) finishInvestigation(state *models.InvestigationState, route string) {
	if o.investigations == nil {
		return
	}
	status := store.StatusCompleted
	if route == RouteBlocked {
		status = store.StatusBlocked
	}
	if err := o.investigations.SetStatus(state.Config.InvestigationID, status); err != nil {
		o.logger.WithError(err).Warn("Status update failed")
	}
}

func (o *Orchestrator) emit(state *models.InvestigationState, agent, step string, payload map[string]any) {
	if !o.monitored {
		return
	}
	if o.monitor != nil {
		o.monitor.Emit(state.Config.InvestigationID, agent, step, payload)
	}
	if o.memory != nil {
		o.memory.RecordEpisode(state.Config.InvestigationID, agent, step, payload)
	}
}

func (o *Orchestrator) embedder() rag.Embedder {
	if o.cfg.Vector.EmbeddingProvider == "openai" && o.cfg.LLM.APIKey != "" {
		return rag.NewOpenAIEmbedder(o.cfg.LLM.APIKey, o.cfg.Vector.EmbeddingModel)
	}
	return rag.NewLocalEmbedder()
}

// openBackends builds the vector and graph adapters for one run and
// returns a cleanup closing both.
func (o *Orchestrator) openBackends() (rag.VectorStore, graph.Backend, func(), error) {
	var vectorStore rag.VectorStore = rag.NewMemoryVectorStore()
	if path := o.cfg.Vector.LocalPath; path != "" {
		s, err := rag.NewSQLiteVectorStore(path, o.cfg.Vector.Collection, o.logger)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("open vector store: %w", err)
		}
		vectorStore = s
	}

	var graphBackend graph.Backend = graph.NewMemoryBackend()
	if o.cfg.Graph.Enabled {
		b, err := graph.NewNeo4jBackend(context.Background(), o.cfg.Graph.URI, o.cfg.Graph.Username, o.cfg.Graph.Password, o.cfg.Graph.Database)
		if err != nil {
			o.logger.WithError(err).Warn("Graph database unavailable, using in-memory graph")
		} else {
			graphBackend = b
		}
	}

	cleanup := func() {
		if err := vectorStore.Close(); err != nil {
			o.logger.WithError(err).Warn("Vector store close failed")
		}
		if err := graphBackend.Close(context.Background()); err != nil {
			o.logger.WithError(err).Warn("Graph backend close failed")
		}
	}
	return vectorStore, graphBackend, cleanup, nil
}

// shortName maps a node name to the step label recorded in current_step.
func shortName(stage string) string {
	switch stage {
	case "ingest_documents":
		return "ingestion"
	case "classify_documents":
		return "classification"
	case "extract_entities":
		return "entity_extraction"
	case "cryptanalysis_hunter":
		return "cryptanalysis"
	case "semantic_linker":
		return "semantic_linking"
	case "timeline":
		return "timeline"
	case "pattern_recognition":
		return "pattern_recognition"
	case "build_knowledge_graph":
		return "graph_construction"
	case "synthesis":
		return "synthesis"
	case "odos_guardian":
		return "compliance"
	default:
		return stage
	}
}
