package ego

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/edenrobotics/egograph/ai"
)

// Assessment is the structured result of one LLM analysis pass.
type Assessment struct {
	EventID         string
	Score           float64
	NodeType        string
	Reasoning       string
	Confidence      float64
	EmotionalImpact string
	KeyInsights     []string
	ParseFailed     bool // response arrived but was malformed; defaults applied
}

// Analyzer is the LLM signal layer: the only scorer permitted to block on an
// external call. Calls are bounded by a timeout, a concurrency semaphore, and
// a rate limiter; a late response tagged with a different event is discarded.
type Analyzer struct {
	llm     ai.LLMService
	sem     *semaphore.Weighted
	limiter *rate.Limiter
	timeout time.Duration
}

// NewAnalyzer creates an analyzer over the given LLM service.
func NewAnalyzer(llm ai.LLMService, cfg *Config) *Analyzer {
	return &Analyzer{
		llm:     llm,
		sem:     semaphore.NewWeighted(cfg.LLMMaxConcurrent),
		limiter: rate.NewLimiter(rate.Limit(cfg.LLMRatePerSecond), int(cfg.LLMMaxConcurrent)),
		timeout: cfg.LLMTimeout,
	}
}

type llmReply struct {
	eventID string
	content string
	err     error
}

// Analyze requests a structured importance judgement. It returns an error
// only when the collaborator is unavailable (timeout, connection, rate
// cancel); a malformed response degrades to defaults with ParseFailed set.
func (a *Analyzer) Analyze(ctx context.Context, event *EventFrame, memories []ScoredMemory, personality PersonalityVector) (*Assessment, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	if err := a.limiter.Wait(ctx); err != nil {
		return nil, errors.Wrap(err, "llm rate limit wait")
	}
	if err := a.sem.Acquire(ctx, 1); err != nil {
		return nil, errors.Wrap(err, "llm concurrency acquire")
	}

	// The call runs in its own goroutine so a timeout abandons it cleanly;
	// the reply carries the originating event ID so a late result can never
	// be applied to a different event.
	replyCh := make(chan llmReply, 1)
	go func() {
		defer a.sem.Release(1)
		content, _, err := a.llm.Chat(ctx, []ai.Message{
			ai.SystemPrompt(analysisSystemPrompt),
			ai.UserMessage(buildAnalysisPrompt(event, memories, personality)),
		})
		replyCh <- llmReply{eventID: event.FrameID, content: content, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, errors.Wrap(ctx.Err(), "llm analysis abandoned")
	case reply := <-replyCh:
		if reply.eventID != event.FrameID {
			return nil, errors.New("llm reply event mismatch, discarded")
		}
		if reply.err != nil {
			return nil, errors.Wrap(reply.err, "llm analysis failed")
		}
		return parseAssessment(reply.content, event), nil
	}
}

const analysisSystemPrompt = `You are the cognitive core of a humanoid robot. You judge how significant observed events are, through the lens of the robot's current personality and memories. Respond STRICTLY in valid JSON.`

func buildAnalysisPrompt(event *EventFrame, memories []ScoredMemory, personality PersonalityVector) string {
	var b strings.Builder

	b.WriteString("CURRENT PERSONALITY STATE:\n")
	fmt.Fprintf(&b, "- Openness: %.2f (curiosity, creativity)\n", personality.Openness)
	fmt.Fprintf(&b, "- Conscientiousness: %.2f (organization, achievement)\n", personality.Conscientiousness)
	fmt.Fprintf(&b, "- Extroversion: %.2f (social energy)\n", personality.Extroversion)
	fmt.Fprintf(&b, "- Agreeableness: %.2f (kindness, cooperation)\n", personality.Agreeableness)
	fmt.Fprintf(&b, "- Neuroticism: %.2f (anxiety, emotional reactivity)\n\n", personality.Neuroticism)

	if len(memories) > 0 {
		b.WriteString("RELEVANT PAST MEMORIES:\n")
		for i, mem := range memories {
			if i >= 5 {
				break
			}
			content := mem.Content
			if len(content) > 100 {
				content = content[:100]
			}
			fmt.Fprintf(&b, "- %s (importance: %.2f)\n", content, mem.Importance)
		}
		b.WriteString("\n")
	} else {
		b.WriteString("No directly relevant memories found.\n\n")
	}

	b.WriteString("EVENT TO ANALYZE:\n")
	b.WriteString(event.Description)
	if len(event.DetectedActions) > 0 {
		fmt.Fprintf(&b, "\nDetected Actions: %s", strings.Join(event.DetectedActions, ", "))
	}
	if event.EmotionalTone != "" {
		fmt.Fprintf(&b, "\nEmotional Tone: %s", event.EmotionalTone)
	}
	user := event.User()
	if user == "" {
		user = "Unknown"
	}
	fmt.Fprintf(&b, "\n\nUser: %s\nSource: %s\nTimestamp: %s\n\n", user, event.Source, event.Timestamp.Format(time.RFC3339))

	b.WriteString(`TASK: Judge the event considering:
1. How significant is this event given the personality traits?
2. How does it relate to past memories?
3. What emotional or cognitive impact might it have?
4. Should this be remembered long-term?

Respond with exactly these JSON fields:
{
    "importance": <float 0.0-1.0>,
    "reasoning": "<why this is important or unimportant>",
    "node_type": "<one of: memory, trauma, joy, threat, interaction, achievement, routine>",
    "confidence": <float 0.0-1.0>,
    "emotional_impact": "<brief description, or empty>",
    "key_insights": ["<insight>", ...]
}`)

	return b.String()
}

type assessmentPayload struct {
	Importance      float64  `json:"importance"`
	Reasoning       string   `json:"reasoning"`
	NodeType        string   `json:"node_type"`
	Confidence      float64  `json:"confidence"`
	EmotionalImpact string   `json:"emotional_impact"`
	KeyInsights     []string `json:"key_insights"`
}

// parseAssessment extracts the JSON object from the response, tolerating
// markdown fences and surrounding prose. A response with no parseable JSON is
// salvaged from its plain text; total garbage degrades to mid-range defaults.
func parseAssessment(content string, event *EventFrame) *Assessment {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start >= 0 && end > start {
		var payload assessmentPayload
		if err := json.Unmarshal([]byte(content[start:end+1]), &payload); err == nil {
			nodeType := payload.NodeType
			if !knownNodeTypes[nodeType] {
				nodeType = ""
			}
			confidence := payload.Confidence
			if confidence <= 0 {
				confidence = 0.8
			}
			return &Assessment{
				EventID:         event.FrameID,
				Score:           Clamp01(payload.Importance),
				NodeType:        nodeType,
				Reasoning:       payload.Reasoning,
				Confidence:      Clamp01(confidence),
				EmotionalImpact: payload.EmotionalImpact,
				KeyInsights:     payload.KeyInsights,
			}
		}
	}

	slog.Debug("llm: structured parse failed, salvaging plain text", "event_id", event.FrameID)
	return salvageTextAssessment(content, event)
}

// salvageTextAssessment derives a score and type from response keywords
// before giving up on the LLM signal entirely.
func salvageTextAssessment(content string, event *EventFrame) *Assessment {
	text := strings.ToLower(content)

	score := 0.5
	switch {
	case containsAny(text, "very important", "critical", "significant"):
		score = 0.8
	case strings.Contains(text, "not important"), containsAny(text, "trivial", "routine"):
		score = 0.3
	case strings.Contains(text, "important"):
		score = 0.6
	}

	nodeType := ""
	switch {
	case containsAny(text, "trauma", "threat"):
		nodeType = NodeTypeThreat
	case containsAny(text, "joy", "happy", "positive"):
		nodeType = NodeTypeJoy
	case containsAny(text, "achievement", "completed"):
		nodeType = NodeTypeAchievement
	}

	reasoning := strings.TrimSpace(content)
	if len(reasoning) > 500 {
		reasoning = reasoning[:500]
	}

	return &Assessment{
		EventID:     event.FrameID,
		Score:       score,
		NodeType:    nodeType,
		Reasoning:   reasoning,
		Confidence:  0.6,
		ParseFailed: true,
	}
}
