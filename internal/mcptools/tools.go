// Package mcptools exposes the planner over the Model Context Protocol.
// Each tool is a small struct with a Definition and a Handle method; the
// composition root in server.go wires them against one planner service.
package mcptools

import (
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/felixgeelhaar/taskplan/internal/errors"
	"github.com/felixgeelhaar/taskplan/internal/log"
	"github.com/felixgeelhaar/taskplan/internal/planner"
)

// toolDeps carries the shared collaborators of every tool.
type toolDeps struct {
	svc    *planner.Service
	logger *log.Logger

	// strict controls the error surfacing policy: strict failures become
	// protocol-level tool errors, lenient failures become structured
	// success=false payloads the model can read and recover from.
	strict bool
}

func newToolDeps(svc *planner.Service, logger *log.Logger, strict bool) toolDeps {
	if logger == nil {
		logger = log.DefaultLogger()
	}
	return toolDeps{svc: svc, logger: logger, strict: strict}
}

// success marshals v as the tool's text content.
func (d toolDeps) success(v any) *mcp.CallToolResult {
	body, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err))
	}
	return mcp.NewToolResultText(string(body))
}

// failure renders err according to the configured surfacing policy.
func (d toolDeps) failure(err error) *mcp.CallToolResult {
	code := errors.CodeOf(err)
	d.logger.WithError(err).Warn("tool call failed", "code", code)

	if d.strict {
		if code != "" {
			return mcp.NewToolResultError(fmt.Sprintf("%s: %s", code, err.Error()))
		}
		return mcp.NewToolResultError(err.Error())
	}

	payload := map[string]any{
		"success": false,
		"error":   code,
		"message": err.Error(),
	}
	body, mErr := json.Marshal(payload)
	if mErr != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(body))
}

// invalid reports a malformed request. Argument problems are always
// protocol-level errors regardless of the surfacing policy.
func (d toolDeps) invalid(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(err.Error())
}
