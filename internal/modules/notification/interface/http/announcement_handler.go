package handler

import (
	"time"

	"Herald/internal/modules/notification/application/dto/request"
	"Herald/internal/modules/notification/application/service"
	"Herald/pkg/back"
	"Herald/pkg/xerr"
	"Herald/pkg/zlog"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AnnouncementHandler struct {
	feed service.FeedService
	svc  service.AnnouncementService
	now  func() time.Time
}

func NewAnnouncementHandler(feed service.FeedService, svc service.AnnouncementService) *AnnouncementHandler {
	return &AnnouncementHandler{feed: feed, svc: svc, now: time.Now}
}

func (h *AnnouncementHandler) Timeline(c *gin.Context) {
	data, err := h.feed.GetTimeline(c.Request.Context(), viewerOf(c), h.now())
	back.Result(c, data, err)
}

func (h *AnnouncementHandler) Create(c *gin.Context) {
	var req request.CreateAnnouncementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		zlog.Warn("bind create announcement failed", zap.Error(err))
		back.Error(c, xerr.BadRequest, xerr.ErrParam.Message)
		return
	}
	item, err := h.svc.Create(c.Request.Context(), c.GetString("uuid"), req)
	if err != nil {
		back.Result(c, nil, err)
		return
	}
	back.Created(c, item)
}

func (h *AnnouncementHandler) List(c *gin.Context) {
	var req request.ListAnnouncementsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		back.Error(c, xerr.BadRequest, xerr.ErrParam.Message)
		return
	}
	data, err := h.svc.List(c.Request.Context(), req)
	back.Result(c, data, err)
}

func (h *AnnouncementHandler) Archive(c *gin.Context) {
	data, err := h.svc.Archive(c.Request.Context(), c.Param("id"))
	back.Result(c, data, err)
}
