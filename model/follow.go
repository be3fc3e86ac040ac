package model

import "time"

/*

Follow is a directed edge meaning the follower receives the author's
posts in their personal feed

Id: primary key, use to identify a follow edge
UserID: the follower
AuthorID: the followed author
CreatedAt: time when relation is created

Both invariants live in the storage layer so that concurrent writes
cannot bypass them:
  - a user follows a given author at most once (unique index on the pair)
  - a user never follows themselves (check constraint)
*/
type Follow struct {
	Id        string `gorm:"primaryKey"`
	UserID    string `gorm:"not null;uniqueIndex:idx_follows_user_author;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	User      User   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	AuthorID  string `gorm:"not null;index;uniqueIndex:idx_follows_user_author;check:chk_follows_no_self,user_id <> author_id"`
	Author    User   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	CreatedAt time.Time
}
