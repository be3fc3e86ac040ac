package model

import "time"

/*

User is an author identity managed by the external account service

Id: primary key, use to identify a user
Username: unique handle, used in profile routes
CreatedAt: time when entity is created

Posts: all posts written by this user, "has-many" relation
Comments: all comments written by this user, "has-many" relation

Deleting a user cascades to their posts, comments and follow edges.
*/
type User struct {
	Id        string `gorm:"primaryKey"`
	Username  string `gorm:"uniqueIndex;not null"`
	CreatedAt time.Time
	Posts     []*Post    `json:"posts" gorm:"foreignKey:AuthorID"`
	Comments  []*Comment `json:"comments" gorm:"foreignKey:AuthorID"`
}
