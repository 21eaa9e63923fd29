package stream

import (
	"fmt"
	"strings"
	"time"

	"github.com/RishiKendai/cheatcheck/internal/models"
)

// StreamMessage is a stream entry with its string fields
type StreamMessage struct {
	ID     string
	Fields map[string]string
}

// ParseSubmission builds a submission from a stream entry. Empty source code
// is a valid submission; a missing sourceCode field is not.
func ParseSubmission(msg *StreamMessage) (*models.Submission, error) {
	var missing []string
	for _, key := range []string{"attemptID", "driveId"} {
		if strings.TrimSpace(msg.Fields[key]) == "" {
			missing = append(missing, key)
		}
	}
	if _, ok := msg.Fields["sourceCode"]; !ok {
		missing = append(missing, "sourceCode")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("message %s missing fields: %s", msg.ID, strings.Join(missing, ", "))
	}

	return &models.Submission{
		AttemptID:  strings.TrimSpace(msg.Fields["attemptID"]),
		Email:      strings.TrimSpace(msg.Fields["email"]),
		DriveID:    strings.TrimSpace(msg.Fields["driveId"]),
		Filename:   strings.TrimSpace(msg.Fields["filename"]),
		SourceCode: msg.Fields["sourceCode"],
		CreatedAt:  time.Now(),
	}, nil
}
