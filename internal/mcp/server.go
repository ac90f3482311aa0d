package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"shopchat/internal/chat"
	"shopchat/internal/config"
)

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"chat_send": {
		def:     sendToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSend },
	},
	"chat_more": {
		def:     moreToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleMore },
	},
	"chat_history": {
		def:     historyToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleHistory },
	},
	"chat_context": {
		def:     contextToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleContext },
	},
	"chat_clear": {
		def:     clearToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleClear },
	},
	"chat_identify": {
		def:     identifyToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleIdentify },
	},
}

// AllToolNames returns a list of all valid tool names.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	return names
}

// ValidateDisabledTools returns a list of unknown tool names from the given list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// NewServer creates a new MCP server with the chat tools registered.
// Tools listed in cfg.DisabledTools are excluded from registration.
func NewServer(engine *chat.Engine, cfg *config.Config, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"shopchat",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(engine)

	disabled := make(map[string]bool)
	for _, name := range cfg.DisabledTools {
		disabled[name] = true
	}

	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// Run starts the MCP server using stdio transport. The engine is hydrated
// from remote history first so a fresh install resumes the conversation.
func Run(engine *chat.Engine, cfg *config.Config, version string) error {
	engine.Hydrate(context.Background())
	engine.EnsureWelcome()
	return server.ServeStdio(NewServer(engine, cfg, version))
}
