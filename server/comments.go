package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"github.com/postline/postline/forms"
	"github.com/postline/postline/server/middlewares"
	"github.com/postline/postline/store"
)

// AddCommentHandler creates a comment on a post as the current user.
// Whatever the validation outcome, the caller ends up back on the post
// detail page; an invalid comment is simply not created.
func AddCommentHandler(s *store.Store) gin.HandlerFunc {
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

		var input forms.CommentInput
		c.ShouldBind(&input)

		if !input.Validate().HasErrors() {
			user := middlewares.CurrentUser(c)
			if _, err := s.CreateComment(post.Id, user.Id, input.Text); err != nil {
				serverError(c, err)
				return
			}
		}

		c.Redirect(http.StatusFound, "/posts/"+post.Id+"/")
	}
}
