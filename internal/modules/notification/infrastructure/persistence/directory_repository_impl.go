package persistence

import (
	"context"
	"errors"
	"time"

	"Herald/internal/modules/notification/domain/entity"
	"Herald/internal/modules/notification/domain/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type userDirectoryImpl struct {
	db *gorm.DB
}

func NewUserDirectory(db *gorm.DB) repository.UserDirectory {
	return &userDirectoryImpl{db: db}
}

func (r *userDirectoryImpl) FindUserByID(ctx context.Context, userID string) (*repository.UserSummary, error) {
	var u entity.UserInfo
	if err := r.db.WithContext(ctx).Where("uuid = ?", userID).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrUserNotFound
		}
		return nil, err
	}
	return &repository.UserSummary{ID: u.Uuid, Name: u.DisplayName()}, nil
}

// followStoreImpl keeps follows in the person_follow table. Used when redis
// is not configured.
type followStoreImpl struct {
	db *gorm.DB
}

func NewFollowStore(db *gorm.DB) repository.FollowStore {
	return &followStoreImpl{db: db}
}

func (r *followStoreImpl) ListFollowedPersonIDs(ctx context.Context, userID string) ([]string, error) {
	ids := []string{}
	err := r.db.WithContext(ctx).
		Model(&entity.PersonFollow{}).
		Where("follower_id = ?", userID).
		Order("followee_id ASC").
		Pluck("followee_id", &ids).Error
	return ids, err
}

func (r *followStoreImpl) Follow(ctx context.Context, userID, personID string) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&entity.PersonFollow{FollowerId: userID, FolloweeId: personID, CreatedAt: time.Now().UTC()}).Error
}

func (r *followStoreImpl) Unfollow(ctx context.Context, userID, personID string) error {
	return r.db.WithContext(ctx).
		Where("follower_id = ? AND followee_id = ?", userID, personID).
		Delete(&entity.PersonFollow{}).Error
}
