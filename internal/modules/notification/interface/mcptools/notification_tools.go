// Package mcptools exposes notification operations as MCP tools so agents
// and internal services can produce and inspect notifications.
package mcptools

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"Herald/internal/modules/notification/application/dto/request"
	"Herald/internal/modules/notification/application/service"
	"Herald/pkg/xerr"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

type ServerConfig struct {
	Name    string
	Version string
}

// NotificationToolHandler 通知相关的 MCP 工具
type NotificationToolHandler struct {
	producer service.NotificationService
	feed     service.FeedService
}

func NewNotificationToolHandler(producer service.NotificationService, feed service.FeedService) *NotificationToolHandler {
	return &NotificationToolHandler{producer: producer, feed: feed}
}

// NewServer builds an MCP server with the notification tools registered.
func NewServer(conf ServerConfig, h *NotificationToolHandler) *server.MCPServer {
	s := server.NewMCPServer(
		conf.Name,
		conf.Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)
	h.RegisterTools(s)
	return s
}

// NewHTTPHandler serves s over streamable HTTP.
func NewHTTPHandler(s *server.MCPServer) http.Handler {
	return server.NewStreamableHTTPServer(s, server.WithStateLess(true))
}

func (h *NotificationToolHandler) RegisterTools(s *server.MCPServer) {
	s.AddTool(mcp.NewTool("push_notification",
		mcp.WithDescription("Create a notification for a user and push it to their open sessions."),
		mcp.WithString("recipient_id", mcp.Required(), mcp.Description("User who receives the notification")),
		mcp.WithString("type", mcp.Required(), mcp.Description("engagement, system, content_milestone or person_activity")),
		mcp.WithString("title", mcp.Required(), mcp.Description("Short headline")),
		mcp.WithString("message", mcp.Description("Body text")),
		mcp.WithString("priority", mcp.Description("low, medium or high; defaults to medium")),
		mcp.WithObject("data", mcp.Description("Type-specific payload")),
	), h.handlePush)

	s.AddTool(mcp.NewTool("notify_comment",
		mcp.WithDescription("Tell an article's author that someone commented on it."),
		mcp.WithString("recipient_id", mcp.Required(), mcp.Description("Author of the article")),
		mcp.WithString("actor_id", mcp.Required(), mcp.Description("User who wrote the comment")),
		mcp.WithString("article_id", mcp.Required()),
		mcp.WithString("comment_id", mcp.Required()),
	), h.handleNotifyComment)

	s.AddTool(mcp.NewTool("notify_milestone",
		mcp.WithDescription("Tell an author that an article crossed a milestone."),
		mcp.WithString("recipient_id", mcp.Required(), mcp.Description("Author of the article")),
		mcp.WithString("article_id", mcp.Required()),
		mcp.WithString("milestone", mcp.Required(), mcp.Description("What was counted, e.g. views or likes")),
		mcp.WithNumber("count", mcp.Required(), mcp.Description("The value reached")),
	), h.handleNotifyMilestone)

	s.AddTool(mcp.NewTool("list_notifications",
		mcp.WithDescription("List a user's notifications, newest first."),
		mcp.WithString("user_id", mcp.Required(), mcp.Description("Whose feed to read")),
		mcp.WithString("cursor", mcp.Description("next_cursor from a previous page")),
		mcp.WithNumber("limit", mcp.Description("Page size, 1-100")),
		mcp.WithBoolean("unread_only", mcp.Description("Only unread notifications")),
	), h.handleList)

	s.AddTool(mcp.NewTool("unread_count",
		mcp.WithDescription("Count a user's unread notifications."),
		mcp.WithString("user_id", mcp.Required(), mcp.Description("Whose notifications to count")),
	), h.handleUnreadCount)
}

func (h *NotificationToolHandler) handlePush(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	in := request.CreateNotificationRequest{
		RecipientId: req.GetString("recipient_id", ""),
		Type:        req.GetString("type", ""),
		Title:       req.GetString("title", ""),
		Message:     req.GetString("message", ""),
		Priority:    req.GetString("priority", ""),
	}
	if data, ok := req.GetArguments()["data"]; ok && data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return mcp.NewToolResultError("data must be an object"), nil
		}
		in.Data = raw
	}

	item, err := h.producer.Create(ctx, in)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(item)
}

func (h *NotificationToolHandler) handleNotifyComment(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	item, err := h.producer.NotifyComment(ctx,
		req.GetString("article_id", ""),
		req.GetString("comment_id", ""),
		req.GetString("actor_id", ""),
		req.GetString("recipient_id", ""),
	)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(item)
}

func (h *NotificationToolHandler) handleNotifyMilestone(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	count := req.GetInt("count", 0)
	if count <= 0 {
		return mcp.NewToolResultError("count must be positive"), nil
	}
	item, err := h.producer.NotifyMilestone(ctx,
		req.GetString("recipient_id", ""),
		req.GetString("article_id", ""),
		req.GetString("milestone", ""),
		int64(count),
	)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(item)
}

func (h *NotificationToolHandler) handleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	page, err := h.feed.GetFeed(ctx, req.GetString("user_id", ""), request.FeedRequest{
		Cursor:     req.GetString("cursor", ""),
		Limit:      req.GetInt("limit", 0),
		UnreadOnly: req.GetBool("unread_only", false),
	})
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(page)
}

func (h *NotificationToolHandler) handleUnreadCount(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	n, err := h.feed.UnreadCount(ctx, req.GetString("user_id", ""))
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(map[string]int64{"unread_count": n})
}

// toolError reports a failed call inside the result so the caller model can
// see and react to it.
func toolError(err error) *mcp.CallToolResult {
	var ce *xerr.CodeError
	if errors.As(err, &ce) {
		return mcp.NewToolResultError(ce.Message)
	}
	return mcp.NewToolResultError(xerr.ErrServerError.Message)
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(b)), nil
}
