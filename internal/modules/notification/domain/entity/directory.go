package entity

import "time"

// UserInfo is the read-only slice of the user table the notifier needs for
// display names.
type UserInfo struct {
	Id        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Uuid      string    `gorm:"column:uuid;type:varchar(64);uniqueIndex;not null"`
	Nickname  string    `gorm:"column:nickname;type:varchar(64)"`
	Username  string    `gorm:"column:username;type:varchar(64)"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (UserInfo) TableName() string {
	return "user_info"
}

// DisplayName prefers the nickname.
func (u *UserInfo) DisplayName() string {
	if u.Nickname != "" {
		return u.Nickname
	}
	return u.Username
}

// PersonFollow records that FollowerId follows the person FolloweeId.
type PersonFollow struct {
	Id         int64     `gorm:"column:id;primaryKey;autoIncrement"`
	FollowerId string    `gorm:"column:follower_id;type:varchar(64);not null;uniqueIndex:uk_person_follow,priority:1"`
	FolloweeId string    `gorm:"column:followee_id;type:varchar(64);not null;uniqueIndex:uk_person_follow,priority:2"`
	CreatedAt  time.Time `gorm:"column:created_at;not null"`
}

func (PersonFollow) TableName() string {
	return "person_follow"
}
