package handler

import (
	"Herald/internal/modules/notification/application/dto/request"
	"Herald/internal/modules/notification/application/dto/respond"
	"Herald/internal/modules/notification/application/service"
	"Herald/internal/modules/notification/domain/eligibility"
	"Herald/pkg/back"
	"Herald/pkg/xerr"
	"Herald/pkg/zlog"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type NotificationHandler struct {
	producer service.NotificationService
	feed     service.FeedService
	reads    service.ReadStateService
}

func NewNotificationHandler(producer service.NotificationService, feed service.FeedService, reads service.ReadStateService) *NotificationHandler {
	return &NotificationHandler{producer: producer, feed: feed, reads: reads}
}

func viewerOf(c *gin.Context) eligibility.Viewer {
	return eligibility.Viewer{ID: c.GetString("uuid"), Role: c.GetString("role")}
}

// Create 仅限 admin / service 角色，由路由中间件保证
func (h *NotificationHandler) Create(c *gin.Context) {
	var req request.CreateNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		zlog.Warn("bind create notification failed", zap.Error(err))
		back.Error(c, xerr.BadRequest, xerr.ErrParam.Message)
		return
	}
	item, err := h.producer.Create(c.Request.Context(), req)
	if err != nil {
		back.Result(c, nil, err)
		return
	}
	back.Created(c, item)
}

func (h *NotificationHandler) GetFeed(c *gin.Context) {
	var req request.FeedRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		back.Error(c, xerr.BadRequest, xerr.ErrParam.Message)
		return
	}
	data, err := h.feed.GetFeed(c.Request.Context(), c.GetString("uuid"), req)
	back.Result(c, data, err)
}

func (h *NotificationHandler) GetFollowingFeed(c *gin.Context) {
	var req request.FeedRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		back.Error(c, xerr.BadRequest, xerr.ErrParam.Message)
		return
	}
	data, err := h.feed.GetPersonFollowFeed(c.Request.Context(), viewerOf(c), req)
	back.Result(c, data, err)
}

func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	n, err := h.feed.UnreadCount(c.Request.Context(), c.GetString("uuid"))
	if err != nil {
		back.Result(c, nil, err)
		return
	}
	back.Success(c, respond.UnreadCountRespond{UnreadCount: n})
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	data, err := h.reads.MarkOneRead(c.Request.Context(), c.Param("id"), c.GetString("uuid"))
	back.Result(c, data, err)
}

func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	data, err := h.reads.MarkAllRead(c.Request.Context(), c.GetString("uuid"))
	back.Result(c, data, err)
}
