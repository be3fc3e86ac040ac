// Package server holds the HTTP handlers of the content platform. Each
// handler resolves referenced entities through the store, applies
// authorization, validates submitted forms and either renders a JSON
// page context or redirects.
package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jinzhu/copier"

	"github.com/postline/postline/model"
	"github.com/postline/postline/store"
	Logger "github.com/postline/postline/utils/log"
)

type userJSON struct {
	Id       string `json:"id"`
	Username string `json:"username"`
}

type groupJSON struct {
	Id          string `json:"id"`
	Title       string `json:"title"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
}

type postJSON struct {
	Id        string     `json:"id"`
	Text      string     `json:"text"`
	CreatedAt time.Time  `json:"created_at"`
	Author    userJSON   `json:"author"`
	Group     *groupJSON `json:"group"`
	Image     string     `json:"image,omitempty"`
}

type commentJSON struct {
	Id        string    `json:"id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
	Author    userJSON  `json:"author"`
}

type pageJSON struct {
	Posts    []postJSON `json:"posts"`
	Page     int        `json:"page"`
	NumPages int        `json:"num_pages"`
	Count    int64      `json:"count"`
}

func toPostJSON(post *model.Post) postJSON {
	out := postJSON{}
	copier.Copy(&out, post)
	return out
}

func toPageJSON(page store.PostPage) pageJSON {
	posts := make([]postJSON, 0, len(page.Posts))
	for i := range page.Posts {
		posts = append(posts, toPostJSON(&page.Posts[i]))
	}
	return pageJSON{
		Posts:    posts,
		Page:     page.Number,
		NumPages: page.NumPages,
		Count:    page.Count,
	}
}

func toCommentsJSON(comments []model.Comment) []commentJSON {
	out := make([]commentJSON, 0, len(comments))
	for i := range comments {
		c := commentJSON{}
		copier.Copy(&c, &comments[i])
		out = append(out, c)
	}
	return out
}

// pageNumber reads the 1-based ?page= query parameter. Garbage input is
// treated as page 1, out-of-range values are clamped later by the store.
func pageNumber(c *gin.Context) int {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil {
		return 1
	}
	return page
}

func notFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
}

// serverError logs the unexpected storage failure and fails the request.
// Nothing is retried.
func serverError(c *gin.Context, err error) {
	Logger.Log.Error(err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}
