package model

import "time"

/*

Post is a piece of content written by a user

Id: primary key, use to identify a post
Text: post's body in plain text
CreatedAt: time when entity is created, set once and immutable; all
listing views order by this field, newest first
AuthorID:
Author: user who wrote the post, "belongs-to" relation, deleting the
author deletes their posts
GroupID:
Group: optional category the post is filed under, "belongs-to" relation,
deleting the group detaches the posts instead of deleting them
Image: optional file-store key of an attached image

Comments: all comments left on this post, "has-many" relation
*/
type Post struct {
	Id        string `gorm:"primaryKey"`
	Text      string `gorm:"not null"`
	CreatedAt time.Time
	AuthorID  string `gorm:"not null;index;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	Author    User   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	GroupID   *string
	Group     *Group `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;"`
	Image     string
	Comments  []*Comment `json:"comments" gorm:"foreignKey:PostID"`
}
