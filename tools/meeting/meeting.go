// Package meeting provides the scheduling tools served by the meeting
// tool server.
package meeting

import (
	"context"
	"fmt"

	"github.com/joeshaw/envdecode"

	"github.com/denser-ai/toolfleet/mcp"
	"github.com/denser-ai/toolfleet/tools"
)

// Config carries the environment-provided meeting settings.
type Config struct {
	SchedulingURL string `env:"MEETING_SCHEDULING_URL,default=https://calendly.com/denser-support/30min"`
}

// ConfigFromEnv decodes Config from the environment.
func ConfigFromEnv() (Config, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode meeting config: %w", err)
	}
	return cfg, nil
}

// ScheduleMeeting returns the scheduling link configured at construction.
// The tool takes no parameters and is idempotent.
type ScheduleMeeting struct {
	url string
}

// NewScheduleMeeting creates the tool with its scheduling link baked in.
func NewScheduleMeeting(url string) *ScheduleMeeting {
	return &ScheduleMeeting{url: url}
}

func (t *ScheduleMeeting) Name() string { return "schedule_meeting" }

func (t *ScheduleMeeting) Description() string {
	return "Generate a meeting scheduling link for the user"
}

func (t *ScheduleMeeting) InputSchema() mcp.InputSchema {
	return mcp.ObjectSchema(nil)
}

func (t *ScheduleMeeting) Execute(ctx context.Context, args map[string]any) (any, error) {
	return map[string]any{
		"url":     t.url,
		"message": fmt.Sprintf("I'd be happy to help you schedule a meeting! Book a slot here: %s", t.url),
	}, nil
}

// All returns the meeting server's tool set.
func All(cfg Config) []tools.Tool {
	return []tools.Tool{
		NewScheduleMeeting(cfg.SchedulingURL),
	}
}
