package ego

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/edenrobotics/egograph/ego/metrics"
)

// CommitRequest carries an accepted event into the graph store.
type CommitRequest struct {
	Event      *EventFrame
	Content    string
	NodeType   string
	Importance float64
	Embedding  []float32 // nil when the event embedding was unavailable
}

// GraphStore is the pipeline's view of the ego graph.
type GraphStore interface {
	MemorySource

	// Commit atomically creates a memory node anchored to SELF and returns
	// its identifier.
	Commit(ctx context.Context, req CommitRequest) (string, error)

	// Personality returns the current trait snapshot.
	Personality() PersonalityVector

	// MemoryCount returns the number of memory nodes in the graph.
	MemoryCount() int
}

// EpisodicEntry is a rejected event bound for the episodic store.
type EpisodicEntry struct {
	Content    string
	NodeType   string
	Importance float64
	User       string // empty means global
	CreatedAt  time.Time
	Embedding  []float32
}

// EpisodicStore is the pipeline's view of the episodic memory store.
type EpisodicStore interface {
	Record(ctx context.Context, entry EpisodicEntry) error
	Count() int
}

// Change notification types.
const (
	ChangeMemoryCommitted    = "memory_committed"
	ChangePersonalityUpdated = "personality_updated"
)

// ChangeEvent is broadcast to external listeners on every successful commit
// or personality change.
type ChangeEvent struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Notifier publishes change events to external observers. Publishing must
// never block the pipeline.
type Notifier interface {
	Publish(event ChangeEvent)
}

// NopNotifier discards change events.
type NopNotifier struct{}

func (NopNotifier) Publish(ChangeEvent) {}

// Engine orchestrates the per-event pipeline:
// received -> signals-extracted -> aggregated -> thresholded -> {committed | episodic}.
type Engine struct {
	heuristic *HeuristicScorer
	semantic  *SemanticScorer
	analyzer  *Analyzer // nil when the LLM layer is disabled
	aggregate *Aggregator
	policy    *ThresholdPolicy
	graph     GraphStore
	episodic  EpisodicStore
	notifier  Notifier
	recorder  *metrics.Recorder
	cfg       *Config
}

// NewEngine wires the pipeline. analyzer may be nil; notifier and recorder
// may be nil and default to no-ops.
func NewEngine(cfg *Config, heuristic *HeuristicScorer, semantic *SemanticScorer, analyzer *Analyzer, graph GraphStore, episodic EpisodicStore, notifier Notifier, recorder *metrics.Recorder) *Engine {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Engine{
		heuristic: heuristic,
		semantic:  semantic,
		analyzer:  analyzer,
		aggregate: NewAggregator(cfg),
		policy:    NewThresholdPolicy(cfg),
		graph:     graph,
		episodic:  episodic,
		notifier:  notifier,
		recorder:  recorder,
		cfg:       cfg,
	}
}

// ProcessEvent runs one event through the pipeline and returns its reasoning
// trace. It returns an error only for structurally invalid input; collaborator
// failures degrade the signal set and are recorded in the trace.
func (e *Engine) ProcessEvent(ctx context.Context, event *EventFrame) (*ReasoningTrace, error) {
	start := time.Now()

	event.Normalize()
	if err := event.Validate(); err != nil {
		if e.recorder != nil {
			e.recorder.RecordEvent(metrics.OutcomeErrored, 0, time.Since(start))
		}
		return nil, err
	}

	personality := e.graph.Personality()

	// Signal extraction. The semantic pass also yields the retrieved
	// memories fed to the LLM layer and the event embedding reused at commit.
	heuristicScore := e.heuristic.Score(event)
	semantic := e.semantic.Evaluate(ctx, event)

	signals := Signals{
		Heuristic: heuristicScore,
		Semantic:  semantic.Score,
		Novel:     semantic.Novel,
	}

	var assessment *Assessment
	if e.analyzer != nil {
		result, err := e.analyzer.Analyze(ctx, event, semantic.Relevant, personality)
		switch {
		case err != nil:
			slog.Warn("pipeline: llm layer unavailable, degrading to two signals",
				"event_id", event.FrameID, "error", err)
			e.recordLLMCall(metrics.LLMResultUnavailable)
		case result.ParseFailed:
			assessment = result
			signals.LLM = &result.Score
			e.recordLLMCall(metrics.LLMResultDegraded)
		default:
			assessment = result
			signals.LLM = &result.Score
			e.recordLLMCall(metrics.LLMResultOK)
		}
	}

	nodeType := ResolveNodeType(assessment, e.heuristic, event)
	base, modulator, final := e.aggregate.Aggregate(signals, event, nodeType, personality)
	threshold := e.policy.Threshold(nodeType, personality, e.graph.MemoryCount())
	accepted := e.policy.Accept(final, threshold)

	trace := &ReasoningTrace{
		EventID:         event.FrameID,
		HeuristicScore:  heuristicScore,
		SemanticScore:   semantic.Score,
		Novel:           semantic.Novel,
		BaseImportance:  base,
		Modulation:      modulator,
		FinalImportance: final,
		NodeType:        nodeType,
		Threshold:       threshold,
		Accepted:        accepted,
		RelevantCount:   len(semantic.Relevant),
	}
	if assessment != nil {
		trace.LLMScore = &assessment.Score
		trace.LLMReasoning = &assessment.Reasoning
		trace.LLMConfidence = &assessment.Confidence
		trace.EmotionalImpact = assessment.EmotionalImpact
		trace.KeyInsights = assessment.KeyInsights
		trace.LLMDegraded = assessment.ParseFailed
	} else if e.analyzer != nil {
		trace.LLMDegraded = true
	}

	content := composeContent(event)

	if accepted {
		memoryID, err := e.graph.Commit(ctx, CommitRequest{
			Event:      event,
			Content:    content,
			NodeType:   nodeType,
			Importance: final,
			Embedding:  semantic.Embedding,
		})
		if err != nil {
			if e.recorder != nil {
				e.recorder.RecordEvent(metrics.OutcomeErrored, final, time.Since(start))
			}
			return nil, errors.Wrap(err, "commit memory")
		}
		trace.Action = ActionAddedToGraph
		trace.MemoryID = &memoryID

		e.notifier.Publish(ChangeEvent{Type: ChangeMemoryCommitted, Payload: trace})
		if e.recorder != nil {
			e.recorder.RecordEvent(metrics.OutcomeCommitted, final, time.Since(start))
			e.recorder.SetGraphNodes(e.graph.MemoryCount())
		}
	} else {
		trace.Action = ActionStoredAsEpisodic
		if err := e.episodic.Record(ctx, EpisodicEntry{
			Content:    content,
			NodeType:   nodeType,
			Importance: final,
			User:       event.User(),
			CreatedAt:  event.Timestamp,
			Embedding:  semantic.Embedding,
		}); err != nil {
			if e.recorder != nil {
				e.recorder.RecordEvent(metrics.OutcomeErrored, final, time.Since(start))
			}
			return nil, errors.Wrap(err, "record episodic memory")
		}
		if e.recorder != nil {
			e.recorder.RecordEvent(metrics.OutcomeEpisodic, final, time.Since(start))
			e.recorder.SetEpisodicEntries(e.episodic.Count())
		}
	}

	slog.Debug("pipeline: event processed",
		"event_id", event.FrameID,
		"node_type", nodeType,
		"importance", final,
		"threshold", threshold,
		"action", trace.Action,
	)
	return trace, nil
}

// BatchItem is one per-event result inside a batch response.
type BatchItem struct {
	Trace *ReasoningTrace `json:"trace,omitempty"`
	Error string          `json:"error,omitempty"`
}

// BatchResult summarizes a batch run.
type BatchResult struct {
	Total     int          `json:"total_events"`
	Committed int          `json:"added_to_graph"`
	Episodic  int          `json:"episodic_memories"`
	Errored   int          `json:"errors"`
	Results   []*BatchItem `json:"results"`
}

// ProcessBatch runs the per-event pipeline for each item in order, preserving
// the supplied temporal sequence. An invalid item is counted as errored and
// skipped; it never aborts the batch.
func (e *Engine) ProcessBatch(ctx context.Context, events []*EventFrame) *BatchResult {
	result := &BatchResult{
		Total:   len(events),
		Results: make([]*BatchItem, 0, len(events)),
	}

	for _, event := range events {
		trace, err := e.ProcessEvent(ctx, event)
		if err != nil {
			result.Errored++
			result.Results = append(result.Results, &BatchItem{Error: err.Error()})
			continue
		}
		if trace.Accepted {
			result.Committed++
		} else {
			result.Episodic++
		}
		result.Results = append(result.Results, &BatchItem{Trace: trace})
	}
	return result
}

func (e *Engine) recordLLMCall(result string) {
	if e.recorder != nil {
		e.recorder.RecordLLMCall(result)
	}
}

// composeContent folds the event into the stored memory text.
func composeContent(event *EventFrame) string {
	user := event.User()
	if user == "" {
		user = "Unknown"
	}
	actions := "None"
	if len(event.DetectedActions) > 0 {
		actions = strings.Join(event.DetectedActions, ", ")
	}
	return fmt.Sprintf("%s | User: %s | Actions: %s", event.Description, user, actions)
}
