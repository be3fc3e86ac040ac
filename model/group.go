package model

import "time"

/*

Group is a named category posts may belong to

Id: primary key, use to identify a group
Title: display name of the group
Slug: unique url-safe identifier, used in group routes
Description: free-form text describing the group
CreatedAt: time when entity is created

Posts: all posts filed under this group, "has-many" relation

Groups are created by an administrative flow and immutable afterwards.
Deleting a group must not delete its posts, their group reference is
cleared instead (OnDelete:SET NULL on Post.GroupID).
*/
type Group struct {
	Id          string `gorm:"primaryKey"`
	Title       string `gorm:"not null"`
	Slug        string `gorm:"uniqueIndex;not null"`
	Description string
	CreatedAt   time.Time
	Posts       []*Post `json:"posts" gorm:"foreignKey:GroupID"`
}
