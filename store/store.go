// Package store is the canonical place for all DB access. It should not
// include:
// 1. Any response shaping or redirect decisions
// 2. Any util that doesn't manipulate DB
package store

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/postline/postline/model"
)

// PageSize is the fixed number of entities per paginated listing.
const PageSize = 10

var (
	// ErrNotFound is returned when a referenced Group/Post/User/Follow is
	// absent. Surfaced by handlers as 404.
	ErrNotFound = errors.New("store: record not found")

	// ErrDuplicateFollow is returned when the (user, author) follow edge
	// already exists. Raised by the unique index, not by a prior read, so
	// two concurrent attempts resolve to exactly one edge.
	ErrDuplicateFollow = errors.New("store: already following")

	// ErrSelfFollow is returned when a user attempts to follow themselves.
	// Raised by the DB check constraint.
	ErrSelfFollow = errors.New("store: self follow forbidden")
)

// Postgres error codes, see https://www.postgresql.org/docs/current/errcodes-appendix.html
const (
	pgUniqueViolation = "23505"
	pgCheckViolation  = "23514"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// PostPage is one page of a post listing, newest first.
//
// Number is the 1-based page actually served. Out-of-range requests are
// clamped into [1, NumPages] instead of erroring, matching paginator
// behavior users expect from listing pages.
type PostPage struct {
	Posts    []model.Post
	Number   int
	NumPages int
	Count    int64
}

// HasNext returns true if there is a page after this one.
func (p PostPage) HasNext() bool {
	return p.Number < p.NumPages
}

// HasPrev returns true if there is a page before this one.
func (p PostPage) HasPrev() bool {
	return p.Number > 1
}

// paginate counts the rows selected by query, clamps the requested page
// and fetches that slice ordered by creation time descending. query must
// already scope to Post rows.
func (s *Store) paginate(query *gorm.DB, page int) (PostPage, error) {
	var count int64
	if err := query.Session(&gorm.Session{}).Count(&count).Error; err != nil {
		return PostPage{}, errors.Wrap(err, "count posts")
	}

	numPages := int((count + PageSize - 1) / PageSize)
	if numPages == 0 {
		numPages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > numPages {
		page = numPages
	}

	var posts []model.Post
	err := query.Session(&gorm.Session{}).
		Preload("Author").
		Preload("Group").
		Order("posts.created_at DESC").
		Offset((page - 1) * PageSize).
		Limit(PageSize).
		Find(&posts).Error
	if err != nil {
		return PostPage{}, errors.Wrap(err, "fetch posts page")
	}

	return PostPage{Posts: posts, Number: page, NumPages: numPages, Count: count}, nil
}

// ListPosts returns one page of all posts.
func (s *Store) ListPosts(page int) (PostPage, error) {
	return s.paginate(s.db.Model(&model.Post{}), page)
}

// ListGroupPosts returns one page of the posts filed under a group.
func (s *Store) ListGroupPosts(groupID string, page int) (PostPage, error) {
	return s.paginate(s.db.Model(&model.Post{}).Where("group_id = ?", groupID), page)
}

// ListAuthorPosts returns one page of the posts written by an author.
func (s *Store) ListAuthorPosts(authorID string, page int) (PostPage, error) {
	return s.paginate(s.db.Model(&model.Post{}).Where("author_id = ?", authorID), page)
}

// ListFeedPosts returns one page of posts written by authors the user
// follows.
func (s *Store) ListFeedPosts(userID string, page int) (PostPage, error) {
	query := s.db.Model(&model.Post{}).
		Joins("INNER JOIN follows ON follows.author_id = posts.author_id").
		Where("follows.user_id = ?", userID)
	return s.paginate(query, page)
}

// CountAuthorPosts returns the total number of posts by an author.
func (s *Store) CountAuthorPosts(authorID string) (int64, error) {
	var count int64
	err := s.db.Model(&model.Post{}).Where("author_id = ?", authorID).Count(&count).Error
	return count, errors.Wrap(err, "count author posts")
}

// GetPost fetches a post by id with its author and group attached.
// Returns ErrNotFound if absent.
func (s *Store) GetPost(id string) (*model.Post, error) {
	var post model.Post
	err := s.db.Preload("Author").Preload("Group").Where("id = ?", id).First(&post).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "get post")
	}
	return &post, nil
}

// GetGroupBySlug fetches a group by its unique slug. Returns ErrNotFound
// if absent.
func (s *Store) GetGroupBySlug(slug string) (*model.Group, error) {
	var group model.Group
	err := s.db.Where("slug = ?", slug).First(&group).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "get group")
	}
	return &group, nil
}

// GetGroup fetches a group by id. Returns ErrNotFound if absent.
func (s *Store) GetGroup(id string) (*model.Group, error) {
	var group model.Group
	err := s.db.Where("id = ?", id).First(&group).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "get group")
	}
	return &group, nil
}

// GetUserByUsername fetches a user by their unique handle. Returns
// ErrNotFound if absent.
func (s *Store) GetUserByUsername(username string) (*model.User, error) {
	var user model.User
	err := s.db.Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "get user")
	}
	return &user, nil
}

// ListComments returns all comments on a post, oldest first.
func (s *Store) ListComments(postID string) ([]model.Comment, error) {
	var comments []model.Comment
	err := s.db.
		Preload("Author").
		Where("post_id = ?", postID).
		Order("created_at ASC").
		Find(&comments).Error
	return comments, errors.Wrap(err, "list comments")
}

// CreatePost persists a new post and returns it. CreatedAt is set here
// once and never updated afterwards.
func (s *Store) CreatePost(authorID, text string, groupID *string, image string) (*model.Post, error) {
	post := model.Post{
		Id:        uuid.New().String(),
		Text:      text,
		CreatedAt: time.Now(),
		AuthorID:  authorID,
		GroupID:   groupID,
		Image:     image,
	}
	if err := s.db.Create(&post).Error; err != nil {
		return nil, errors.Wrap(err, "create post")
	}
	return &post, nil
}

// UpdatePost persists in-place changes to a post's text, group and image.
// Author and creation time are never touched.
func (s *Store) UpdatePost(post *model.Post) error {
	err := s.db.Model(&model.Post{}).
		Where("id = ?", post.Id).
		Updates(map[string]interface{}{
			"text":     post.Text,
			"group_id": post.GroupID,
			"image":    post.Image,
		}).Error
	return errors.Wrap(err, "update post")
}

// CreateComment persists a new comment on a post and returns it.
func (s *Store) CreateComment(postID, authorID, text string) (*model.Comment, error) {
	comment := model.Comment{
		Id:        uuid.New().String(),
		PostID:    postID,
		AuthorID:  authorID,
		Text:      text,
		CreatedAt: time.Now(),
	}
	if err := s.db.Create(&comment).Error; err != nil {
		return nil, errors.Wrap(err, "create comment")
	}
	return &comment, nil
}

// IsFollowing reports whether a follow edge (userID -> authorID) exists.
func (s *Store) IsFollowing(userID, authorID string) (bool, error) {
	var count int64
	err := s.db.Model(&model.Follow{}).
		Where("user_id = ? AND author_id = ?", userID, authorID).
		Count(&count).Error
	if err != nil {
		return false, errors.Wrap(err, "check following")
	}
	return count > 0, nil
}

// CreateFollow inserts the follow edge (userID -> authorID) with a single
// constrained write. The DB unique index rejects duplicates and the check
// constraint rejects self-follow, so there is no check-then-write race:
// of two concurrent attempts exactly one succeeds.
func (s *Store) CreateFollow(userID, authorID string) error {
	follow := model.Follow{
		Id:        uuid.New().String(),
		UserID:    userID,
		AuthorID:  authorID,
		CreatedAt: time.Now(),
	}
	err := s.db.Create(&follow).Error
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return ErrDuplicateFollow
		case pgCheckViolation:
			return ErrSelfFollow
		}
	}
	return errors.Wrap(err, "create follow")
}

// DeleteFollow removes the follow edge (userID -> authorID). Returns
// ErrNotFound if the edge does not exist.
func (s *Store) DeleteFollow(userID, authorID string) error {
	res := s.db.Where("user_id = ? AND author_id = ?", userID, authorID).
		Delete(&model.Follow{})
	if res.Error != nil {
		return errors.Wrap(res.Error, "delete follow")
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
