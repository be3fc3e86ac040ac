package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"github.com/postline/postline/cache"
	"github.com/postline/postline/filestore"
	"github.com/postline/postline/forms"
	"github.com/postline/postline/server/middlewares"
	"github.com/postline/postline/store"
	Logger "github.com/postline/postline/utils/log"
)

const maxImageSize = 5 * 1024 * 1024

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
}

func indexKey(page int) string {
	return fmt.Sprintf("index:%d", page)
}

// IndexHandler serves the front page: all posts, newest first, paginated.
// The rendered body is memoized per page number so repeated requests
// within the cache window are byte-identical, even after new posts land.
func IndexHandler(s *store.Store, pc cache.PageCache) gin.HandlerFunc {
	return func(c *gin.Context) {
		page := pageNumber(c)

		if body, ok := pc.Get(indexKey(page)); ok {
			c.Data(http.StatusOK, "application/json; charset=utf-8", body)
			return
		}

		postPage, err := s.ListPosts(page)
		if err != nil {
			serverError(c, err)
			return
		}

		body, err := json.Marshal(toPageJSON(postPage))
		if err != nil {
			serverError(c, err)
			return
		}

		// Cache under the page actually served, so an out-of-range
		// request fills the same entry as its clamped page instead of
		// storing a duplicate body under its own key.
		pc.Set(indexKey(postPage.Number), body)
		c.Data(http.StatusOK, "application/json; charset=utf-8", body)
	}
}

// GroupPostsHandler serves one group's posts, paginated.
func GroupPostsHandler(s *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		group, err := s.GetGroupBySlug(c.Param("slug"))
		if errors.Is(err, store.ErrNotFound) {
			notFound(c)
			return
		}
		if err != nil {
			serverError(c, err)
			return
		}

		page, err := s.ListGroupPosts(group.Id, pageNumber(c))
		if err != nil {
			serverError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"group": groupJSON{
				Id:    group.Id,
				Title: group.Title,
				Slug:  group.Slug, Description: group.Description,
			},
			"page_obj": toPageJSON(page),
		})
	}
}

// PostDetailHandler serves one post with its comments, oldest comment
// first, plus an empty comment form.
func PostDetailHandler(s *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		post, err := s.GetPost(c.Param("id"))
		if errors.Is(err, store.ErrNotFound) {
			notFound(c)
			return
		}
		if err != nil {
			serverError(c, err)
			return
		}

		comments, err := s.ListComments(post.Id)
		if err != nil {
			serverError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"post":     toPostJSON(post),
			"comments": toCommentsJSON(comments),
			"form":     forms.CommentInput{},
		})
	}
}

// saveUploadedImage stores the optional multipart "image" field and
// returns its file-store key. An absent field is not an error.
func saveUploadedImage(c *gin.Context, images filestore.ImageStore) (string, string) {
	header, err := c.FormFile("image")
	if err != nil {
		return "", ""
	}
	if header.Size > maxImageSize {
		return "", "image is too large"
	}
	if !allowedImageTypes[header.Header.Get("Content-Type")] {
		return "", "unsupported image type"
	}

	file, err := header.Open()
	if err != nil {
		return "", "image upload failed"
	}
	defer file.Close()

	key, err := images.Save(header.Filename, file)
	if err != nil {
		Logger.Log.Error("fail to store uploaded image: ", err)
		return "", "image upload failed"
	}
	return key, ""
}

// PostCreateHandler renders an empty post form on GET and handles the
// submission on POST. The author is always the current user. Validation
// failure re-renders the form with field errors and the prior input.
func PostCreateHandler(s *store.Store, images filestore.ImageStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost {
			c.JSON(http.StatusOK, gin.H{"form": forms.PostInput{}, "is_edit": false})
			return
		}

		user := middlewares.CurrentUser(c)

		var input forms.PostInput
		c.ShouldBind(&input)

		errs, err := input.Validate(s)
		if err != nil {
			serverError(c, err)
			return
		}

		imageKey, imageErr := saveUploadedImage(c, images)
		if imageErr != "" {
			errs["image"] = imageErr
		}

		if errs.HasErrors() {
			c.JSON(http.StatusOK, gin.H{"form": input, "errors": errs, "is_edit": false})
			return
		}

		input.Image = imageKey
		post, err := s.CreatePost(user.Id, input.Text, input.Group(), input.Image)
		if err != nil {
			serverError(c, err)
			return
		}

		Logger.Log.Infof("user %s created post %s", user.Username, post.Id)
		c.Redirect(http.StatusFound, "/profile/"+user.Username+"/")
	}
}

// PostEditHandler lets the author and only the author change a post's
// text, group and image in place. Anyone else is silently sent back to
// the post detail page, no error surfaced. Author and creation time are
// never touched.
func PostEditHandler(s *store.Store, images filestore.ImageStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		post, err := s.GetPost(c.Param("id"))
		if errors.Is(err, store.ErrNotFound) {
			notFound(c)
			return
		}
		if err != nil {
			serverError(c, err)
			return
		}

		user := middlewares.CurrentUser(c)
		detail := "/posts/" + post.Id + "/"
		if user.Id != post.AuthorID {
			c.Redirect(http.StatusFound, detail)
			return
		}

		if c.Request.Method != http.MethodPost {
			groupID := ""
			if post.GroupID != nil {
				groupID = *post.GroupID
			}
			form := forms.PostInput{Text: post.Text, GroupID: groupID, Image: post.Image}
			c.JSON(http.StatusOK, gin.H{"form": form, "is_edit": true})
			return
		}

		var input forms.PostInput
		c.ShouldBind(&input)

		errs, err := input.Validate(s)
		if err != nil {
			serverError(c, err)
			return
		}

		imageKey, imageErr := saveUploadedImage(c, images)
		if imageErr != "" {
			errs["image"] = imageErr
		}

		if errs.HasErrors() {
			c.JSON(http.StatusOK, gin.H{"form": input, "errors": errs, "is_edit": true})
			return
		}

		post.Text = input.Text
		post.GroupID = input.Group()
		if imageKey != "" {
			post.Image = imageKey
		}
		if err := s.UpdatePost(post); err != nil {
			serverError(c, err)
			return
		}

		c.Redirect(http.StatusFound, detail)
	}
}
