package utils

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/postline/postline/model"
)

// create user with the given username, do sanity checks and return it
func TestCreateUser(t *testing.T, db *gorm.DB, username string) *model.User {
	t.Helper()
	user := model.User{
		Id:        uuid.New().String(),
		Username:  username,
		CreatedAt: time.Now(),
	}
	require.NoError(t, db.Create(&user).Error)
	return &user
}

// create group with the given slug, do sanity checks and return it
func TestCreateGroup(t *testing.T, db *gorm.DB, title, slug string) *model.Group {
	t.Helper()
	group := model.Group{
		Id:          uuid.New().String(),
		Title:       title,
		Slug:        slug,
		Description: "group for " + title,
		CreatedAt:   time.Now(),
	}
	require.NoError(t, db.Create(&group).Error)
	return &group
}

// create post at an explicit creation time so listing order is
// deterministic in tests
func TestCreatePostAt(t *testing.T, db *gorm.DB, author *model.User, group *model.Group, text string, createdAt time.Time) *model.Post {
	t.Helper()
	post := model.Post{
		Id:        uuid.New().String(),
		Text:      text,
		CreatedAt: createdAt,
		AuthorID:  author.Id,
	}
	if group != nil {
		post.GroupID = &group.Id
	}
	require.NoError(t, db.Create(&post).Error)
	return &post
}

func TestCreatePost(t *testing.T, db *gorm.DB, author *model.User, group *model.Group, text string) *model.Post {
	t.Helper()
	return TestCreatePostAt(t, db, author, group, text, time.Now())
}

// create comment at an explicit creation time
func TestCreateCommentAt(t *testing.T, db *gorm.DB, post *model.Post, author *model.User, text string, createdAt time.Time) *model.Comment {
	t.Helper()
	comment := model.Comment{
		Id:        uuid.New().String(),
		PostID:    post.Id,
		AuthorID:  author.Id,
		Text:      text,
		CreatedAt: createdAt,
	}
	require.NoError(t, db.Create(&comment).Error)
	return &comment
}
