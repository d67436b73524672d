package domain

import (
	"encoding/json"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"otto/internal/agent/ports"
	id "otto/internal/utils/id"
)

// NormalizeToolCalls prepares LLM-requested calls for dispatch: calls that
// arrived with a raw provider argument string are decoded (repairing
// malformed JSON first), and missing call ids are generated so every call
// can be paired with its eventual tool-result turn. Calls whose arguments
// cannot be recovered at all are dropped.
func NormalizeToolCalls(calls []ports.ToolCall, logger ports.Logger) []ports.ToolCall {
	logger = ports.OrNop(logger)

	out := make([]ports.ToolCall, 0, len(calls))
	for _, call := range calls {
		if strings.TrimSpace(call.Name) == "" {
			logger.Warn("Dropping tool call with empty name (id=%s)", call.ID)
			continue
		}
		if call.Arguments == nil && strings.TrimSpace(call.RawArguments) != "" {
			args, ok := decodeArguments(call.RawArguments, logger)
			if !ok {
				logger.Warn("Dropping tool call %s: unrecoverable arguments", call.Name)
				continue
			}
			call.Arguments = args
		}
		if call.Arguments == nil {
			call.Arguments = map[string]any{}
		}
		call.RawArguments = ""
		if call.ID == "" {
			call.ID = id.NewToolCallID()
		}
		out = append(out, call)
	}
	return out
}

func decodeArguments(raw string, logger ports.Logger) (map[string]any, bool) {
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err == nil {
		return args, true
	}

	repaired, err := jsonrepair.JSONRepair(raw)
	if err != nil {
		logger.Warn("JSON repair failed: %v", err)
		return nil, false
	}
	if err := json.Unmarshal([]byte(repaired), &args); err != nil {
		logger.Warn("Arguments still undecodable after repair: %v", err)
		return nil, false
	}
	logger.Debug("Repaired malformed tool arguments (%d -> %d bytes)", len(raw), len(repaired))
	return args, true
}
