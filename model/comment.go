package model

import "time"

/*

Comment is a reply left on a post

Id: primary key, use to identify a comment
PostID:
Post: post the comment replies to, "belongs-to" relation, deleting the
post deletes its comments
AuthorID:
Author: user who wrote the comment, "belongs-to" relation, deleting the
author deletes their comments
Text: comment body in plain text
CreatedAt: time when entity is created, set once; the detail view lists
comments by this field, oldest first
*/
type Comment struct {
	Id        string `gorm:"primaryKey"`
	PostID    string `gorm:"not null;index;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	Post      Post   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	AuthorID  string `gorm:"not null;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	Author    User   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	Text      string `gorm:"not null"`
	CreatedAt time.Time
}
