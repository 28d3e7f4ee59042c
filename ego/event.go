package ego

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Event sources.
const (
	SourceCameraFrame = "camera_frame"
	SourceInteraction = "interaction"
	SourceSystem      = "system"
)

// EventFrame is the input unit of the pipeline: a natural-language description
// of an observed occurrence, optionally tagged with detections and a user
// identity. Frames are immutable once normalized and consumed exactly once.
type EventFrame struct {
	FrameID         string         `json:"frame_id"`
	Timestamp       time.Time      `json:"timestamp"`
	Description     string         `json:"description"`
	UserID          string         `json:"user_id,omitempty"`
	UserName        string         `json:"user_name,omitempty"`
	DetectedObjects []string       `json:"detected_objects,omitempty"`
	DetectedActions []string       `json:"detected_actions,omitempty"`
	EmotionalTone   string         `json:"emotional_tone,omitempty"`
	SceneContext    string         `json:"scene_context,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty"`
	Source          string         `json:"source,omitempty"`
}

// Normalize fills generated defaults for optional fields.
func (e *EventFrame) Normalize() {
	if e.FrameID == "" {
		e.FrameID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	if e.Source == "" {
		e.Source = SourceCameraFrame
	}
}

// ErrInvalidEvent marks frames that fail structural validation. Callers
// distinguish it from internal failures with errors.Is.
var ErrInvalidEvent = errors.New("invalid event")

// Validate reports whether the frame is structurally usable.
func (e *EventFrame) Validate() error {
	if strings.TrimSpace(e.Description) == "" {
		return errors.Wrap(ErrInvalidEvent, "description is required")
	}
	return nil
}

// User returns the owning user reference, preferring the identifier over the
// display name. Empty means the event is global.
func (e *EventFrame) User() string {
	if e.UserID != "" {
		return e.UserID
	}
	return e.UserName
}

// IsSocial reports whether the event involves an identified user.
func (e *EventFrame) IsSocial() bool {
	return e.User() != ""
}
