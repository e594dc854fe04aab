package sinks

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"

	"tilewalk/client/logging"
)

// Console renders events as single human readable lines.
type Console struct {
	logger  *log.Logger
	compact bool
}

func NewConsole(w io.Writer, cfg logging.ConsoleConfig) *Console {
	return &Console{logger: log.New(w, "", log.LstdFlags), compact: cfg.Compact}
}

func (s *Console) Write(event logging.Event) error {
	if s.logger == nil {
		return nil
	}
	payload := ""
	if !s.compact {
		payload = formatPayload(event.Payload)
	}
	s.logger.Printf("[%s] step=%d actor=%s severity=%s%s%s", event.Type, event.Step, formatEntity(event.Actor), event.Severity, formatCommand(event.CommandID), payload)
	return nil
}

func (s *Console) Close(context.Context) error {
	return nil
}

func formatEntity(ref logging.EntityRef) string {
	if ref.ID == "" {
		return string(ref.Kind)
	}
	if ref.Kind == "" {
		return ref.ID
	}
	return fmt.Sprintf("%s:%s", ref.Kind, ref.ID)
}

func formatCommand(id string) string {
	if id == "" {
		return ""
	}
	return " command=" + id
}

func formatPayload(payload any) string {
	if payload == nil {
		return ""
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Sprintf(" payload=%v", payload)
	}
	return fmt.Sprintf(" payload=%s", data)
}
