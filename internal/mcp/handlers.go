package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"shopchat/internal/chat"
	"shopchat/internal/errors"
	"shopchat/internal/shop"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	engine *chat.Engine
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(engine *chat.Engine) *Handlers {
	return &Handlers{engine: engine}
}

// Request types for each tool

// SendRequest represents the arguments for chat_send.
type SendRequest struct {
	Message    string         `json:"message"`
	MaxResults int            `json:"max_results,omitempty"`
	Filters    map[string]any `json:"filters,omitempty"`
}

// MoreRequest represents the arguments for chat_more.
type MoreRequest struct {
	Kind string `json:"kind"`
}

// HistoryRequest represents the arguments for chat_history.
type HistoryRequest struct {
	Limit int `json:"limit,omitempty"`
}

// IdentifyRequest represents the arguments for chat_identify.
type IdentifyRequest struct {
	Email      string `json:"email"`
	NewSession bool   `json:"new_session,omitempty"`
}

// Handler implementations

// HandleSend handles the chat_send tool call.
func (h *Handlers) HandleSend(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SendRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	turn, err := h.engine.Send(ctx, input.Message, chat.SendOptions{
		MaxResults: input.MaxResults,
		Filters:    input.Filters,
	})
	if err != nil {
		return errorResult(err), nil
	}
	if turn == nil {
		return errorResult(errors.NewInvalidRequest("message is empty")), nil
	}

	return successResult(map[string]any{
		"turn":    turn,
		"context": h.engine.Focus(),
	})
}

// HandleMore handles the chat_more tool call.
func (h *Handlers) HandleMore(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[MoreRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	turn, err := h.engine.LoadMore(ctx, shop.ListKind(input.Kind))
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(map[string]any{
		"turn":   turn,
		"cursor": h.engine.Cursor(shop.ListKind(input.Kind)),
	})
}

// HandleHistory handles the chat_history tool call.
func (h *Handlers) HandleHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[HistoryRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	turns := h.engine.Turns()
	if input.Limit > 0 && len(turns) > input.Limit {
		turns = turns[len(turns)-input.Limit:]
	}

	return successResult(map[string]any{
		"turns": turns,
		"count": len(turns),
	})
}

// HandleContext handles the chat_context tool call.
func (h *Handlers) HandleContext(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return successResult(map[string]any{
		"context": h.engine.Focus(),
		"cursors": map[string]shop.Cursor{
			string(shop.ListExact):       h.engine.Cursor(shop.ListExact),
			string(shop.ListSuggestions): h.engine.Cursor(shop.ListSuggestions),
		},
	})
}

// HandleClear handles the chat_clear tool call.
func (h *Handlers) HandleClear(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := h.engine.ResetConversation(ctx); err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{
		"cleared":       true,
		"session_token": h.engine.Sessions().Current().SessionToken,
	})
}

// HandleIdentify handles the chat_identify tool call.
func (h *Handlers) HandleIdentify(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[IdentifyRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	ident, reused, err := h.engine.Sessions().Identify(ctx, input.Email, input.NewSession)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(map[string]any{
		"email":         ident.Email,
		"user_id":       ident.UserID,
		"session_token": ident.SessionToken,
		"reused":        reused,
	})
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Note: Internal error details are not exposed to prevent leaking sensitive info.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if shopErr, ok := err.(*errors.ShopError); ok {
		errorObj := map[string]any{
			"code":    shopErr.Code,
			"message": shopErr.Message,
			"status":  shopErr.Status,
		}
		// Only include details for non-internal errors to avoid leaking
		// sensitive info like file paths or transport errors
		if shopErr.Code != errors.ErrInternal && shopErr.Details != nil {
			errorObj["details"] = shopErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
