package mcp

import "github.com/mark3labs/mcp-go/mcp"

var sendToolDef = mcp.NewTool("chat_send",
	mcp.WithDescription("Send one message to the shopping assistant and return the assistant turn with any product or order results."),
	mcp.WithString("message", mcp.Required(), mcp.Description("The user message to send.")),
	mcp.WithNumber("max_results", mcp.Description("Cap on results per list for this message.")),
	mcp.WithObject("filters", mcp.Description("Search filters forwarded to the backend (vendor, price bounds, etc.).")),
)

var moreToolDef = mcp.NewTool("chat_more",
	mcp.WithDescription("Load the next page of the last search for one result list."),
	mcp.WithString("kind", mcp.Required(), mcp.Description("Which list to page: exact or suggestions.")),
)

var historyToolDef = mcp.NewTool("chat_history",
	mcp.WithDescription("Return the local conversation timeline in order."),
	mcp.WithNumber("limit", mcp.Description("Return only the most recent N turns.")),
)

var contextToolDef = mcp.NewTool("chat_context",
	mcp.WithDescription("Return the focused product and the pagination cursors."),
)

var clearToolDef = mcp.NewTool("chat_clear",
	mcp.WithDescription("Reset the conversation: timeline, focused product, cursors, and session token."),
)

var identifyToolDef = mcp.NewTool("chat_identify",
	mcp.WithDescription("Identify the user by email so history survives across devices."),
	mcp.WithString("email", mcp.Required(), mcp.Description("The user's email address.")),
	mcp.WithBoolean("new_session", mcp.Description("Force a fresh backend session instead of resuming one.")),
)
