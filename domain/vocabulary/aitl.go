package vocabulary

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/emergent-company/vocab/pkg/llm"
	"github.com/emergent-company/vocab/pkg/logger"
)

// decisionStore is the persistence surface an AITL review needs
type decisionStore interface {
	ListPendingAITL(ctx context.Context, limit int) ([]PruningRecommendation, error)
	ListActivePreferences(ctx context.Context) ([]DecisionPreference, error)
	RecordAIDecision(ctx context.Context, id uuid.UUID, confidence float64, reasoning, status string) error
	TransitionRecommendation(ctx context.Context, id uuid.UUID, from []string, to string, decidedBy string) error
	AppendHistory(ctx context.Context, entry *HistoryEntry) error
}

// AITLWorker polls pending AITL recommendations and resolves them with a
// bounded reasoning call. A slow or unavailable reasoning provider never
// blocks ingestion: on timeout, error, or low confidence the batch is
// escalated to human review instead of being retried indefinitely.
type AITLWorker struct {
	repo     decisionStore
	executor recommendationExecutor
	reasoner Reasoner
	settings *Settings
	log      *slog.Logger

	interval time.Duration

	mu        sync.Mutex
	running   bool
	stopCh    chan struct{}
	stoppedCh chan struct{}
}

// NewAITLWorker creates a new AITL worker
func NewAITLWorker(repo *Repository, executor *Executor, reasoner Reasoner, settings *Settings, log *slog.Logger) *AITLWorker {
	return &AITLWorker{
		repo:     repo,
		executor: executor,
		reasoner: reasoner,
		settings: settings,
		log:      log.With(logger.Scope("aitl-worker")),
		interval: 5 * time.Second,
	}
}

// Start begins the polling loop
func (w *AITLWorker) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.stoppedCh = make(chan struct{})

	go w.run(ctx)
	w.log.Info("AITL worker started", slog.Duration("interval", w.interval))
}

// Stop signals the loop to exit and waits for it
func (w *AITLWorker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	close(w.stopCh)
	stopped := w.stoppedCh
	w.mu.Unlock()

	<-stopped
	w.log.Info("AITL worker stopped")
}

func (w *AITLWorker) run(ctx context.Context) {
	defer close(w.stoppedCh)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.processPending(ctx)
		}
	}
}

// processPending reviews each pending AITL recommendation in turn
func (w *AITLWorker) processPending(ctx context.Context) {
	recs, err := w.repo.ListPendingAITL(ctx, 10)
	if err != nil {
		w.log.Error("failed to list pending AITL recommendations", logger.Error(err))
		return
	}

	for i := range recs {
		select {
		case <-w.stopCh:
			return
		default:
		}
		w.Review(ctx, &recs[i])
	}
}

// Review resolves one recommendation: it asks the reasoning provider for
// a structured verdict and either executes, rejects, or escalates.
func (w *AITLWorker) Review(ctx context.Context, rec *PruningRecommendation) {
	cfg := w.settings.Current()

	if !w.reasoner.IsConfigured() {
		w.escalate(ctx, rec, "reasoning provider not configured")
		return
	}

	prefs, err := w.repo.ListActivePreferences(ctx)
	if err != nil {
		w.log.Error("failed to load preferences", logger.Error(err))
		prefs = nil
	}

	callCtx, cancel := context.WithTimeout(ctx, w.settings.AITLTimeout())
	defer cancel()

	completion, err := w.reasoner.Complete(callCtx, BuildDecisionPrompt(rec, prefs))
	if err != nil {
		w.escalate(ctx, rec, "reasoning call failed: "+err.Error())
		return
	}

	decision, err := llm.ParseDecision(completion)
	if err != nil {
		w.escalate(ctx, rec, "unparseable reasoning response: "+err.Error())
		return
	}

	if decision.Confidence < cfg.AITLConfidenceThreshold {
		if err := w.repo.RecordAIDecision(ctx, rec.ID, decision.Confidence, decision.Reasoning, RecommendationEscalated); err != nil {
			w.log.Error("failed to escalate recommendation", logger.Error(err))
		}
		w.log.Info("AI confidence below threshold, escalating to human review",
			slog.String("id", rec.ID.String()),
			slog.Float64("confidence", decision.Confidence),
			slog.Float64("threshold", cfg.AITLConfidenceThreshold),
		)
		return
	}

	switch decision.Decision {
	case llm.DecisionApprove:
		if err := w.repo.RecordAIDecision(ctx, rec.ID, decision.Confidence, decision.Reasoning, RecommendationAIDecided); err != nil {
			w.log.Error("failed to record AI decision", logger.Error(err))
			return
		}
		rec.Status = RecommendationAIDecided
		w.executor.Execute(ctx, rec, PerformerAI)
		if err := w.repo.TransitionRecommendation(ctx, rec.ID,
			[]string{RecommendationAIDecided}, RecommendationExecuted, PerformerAI); err != nil {
			w.log.Error("failed to mark recommendation executed", logger.Error(err))
			return
		}
		w.appendDecisionHistory(ctx, rec, decision)
		w.log.Info("AI approved and executed recommendation",
			slog.String("id", rec.ID.String()),
			slog.Float64("confidence", decision.Confidence),
		)

	case llm.DecisionReject:
		if err := w.repo.RecordAIDecision(ctx, rec.ID, decision.Confidence, decision.Reasoning, RecommendationRejected); err != nil {
			w.log.Error("failed to record AI rejection", logger.Error(err))
			return
		}
		w.appendDecisionHistory(ctx, rec, decision)
		w.log.Info("AI rejected recommendation",
			slog.String("id", rec.ID.String()),
			slog.Float64("confidence", decision.Confidence),
		)

	default:
		// "modify" needs human judgment about what to change
		if err := w.repo.RecordAIDecision(ctx, rec.ID, decision.Confidence, decision.Reasoning, RecommendationEscalated); err != nil {
			w.log.Error("failed to escalate modified recommendation", logger.Error(err))
		}
	}
}

// escalate downgrades a recommendation to human review
func (w *AITLWorker) escalate(ctx context.Context, rec *PruningRecommendation, reason string) {
	w.log.Warn("downgrading AITL recommendation to HITL",
		slog.String("id", rec.ID.String()),
		slog.String("reason", reason),
	)
	if err := w.repo.RecordAIDecision(ctx, rec.ID, 0, reason, RecommendationEscalated); err != nil {
		w.log.Error("failed to escalate recommendation", logger.Error(err))
	}
}

// appendDecisionHistory logs the AI verdict in the audit trail
func (w *AITLWorker) appendDecisionHistory(ctx context.Context, rec *PruningRecommendation, decision *llm.Decision) {
	names := make([]string, 0, len(rec.Targets.Merges)+len(rec.Targets.Prunes))
	for _, m := range rec.Targets.Merges {
		names = append(names, m.Source)
	}
	names = append(names, rec.Targets.Prunes...)

	entry := &HistoryEntry{
		Action:      HistoryDecision,
		TypeNames:   names,
		PerformedBy: PerformerAI,
		Snapshot: Snapshot{
			Note: decision.Decision + ": " + decision.Reasoning,
		},
	}
	if err := w.repo.AppendHistory(ctx, entry); err != nil {
		w.log.Error("failed to append decision history", logger.Error(err))
	}
}
