package handler

import (
	"strings"

	"Herald/internal/modules/notification/domain/repository"
	"Herald/pkg/back"
	"Herald/pkg/xerr"
	"Herald/pkg/zlog"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// FollowHandler maintains the caller's person-follow set.
type FollowHandler struct {
	follows repository.FollowStore
}

func NewFollowHandler(follows repository.FollowStore) *FollowHandler {
	return &FollowHandler{follows: follows}
}

func (h *FollowHandler) target(c *gin.Context) (string, string, bool) {
	uid := c.GetString("uuid")
	personID := strings.TrimSpace(c.Param("personId"))
	if personID == "" || personID == uid {
		back.Error(c, xerr.BadRequest, "invalid person id")
		return "", "", false
	}
	return uid, personID, true
}

func (h *FollowHandler) Follow(c *gin.Context) {
	uid, personID, ok := h.target(c)
	if !ok {
		return
	}
	if err := h.follows.Follow(c.Request.Context(), uid, personID); err != nil {
		zlog.Warn("follow failed", zap.String("user_id", uid), zap.String("person_id", personID), zap.Error(err))
		back.Result(c, nil, xerr.Wrap(xerr.ServiceUnavailable, xerr.ErrTransientStore.Message, err))
		return
	}
	back.Success(c, gin.H{"person_id": personID, "following": true})
}

func (h *FollowHandler) Unfollow(c *gin.Context) {
	uid, personID, ok := h.target(c)
	if !ok {
		return
	}
	if err := h.follows.Unfollow(c.Request.Context(), uid, personID); err != nil {
		zlog.Warn("unfollow failed", zap.String("user_id", uid), zap.String("person_id", personID), zap.Error(err))
		back.Result(c, nil, xerr.Wrap(xerr.ServiceUnavailable, xerr.ErrTransientStore.Message, err))
		return
	}
	back.Success(c, gin.H{"person_id": personID, "following": false})
}
