package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"github.com/postline/postline/server/middlewares"
	"github.com/postline/postline/store"
	Logger "github.com/postline/postline/utils/log"
)

// ProfileHandler serves an author's page: their posts paginated, total
// post count, and whether the viewer follows them. `following` is only
// ever true for an authenticated viewer looking at someone else's
// profile with an existing follow edge.
func ProfileHandler(s *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		author, err := s.GetUserByUsername(c.Param("username"))
		if errors.Is(err, store.ErrNotFound) {
			notFound(c)
			return
		}
		if err != nil {
			serverError(c, err)
			return
		}

		page, err := s.ListAuthorPosts(author.Id, pageNumber(c))
		if err != nil {
			serverError(c, err)
			return
		}

		count, err := s.CountAuthorPosts(author.Id)
		if err != nil {
			serverError(c, err)
			return
		}

		following := false
		if viewer := middlewares.CurrentUser(c); viewer != nil && viewer.Id != author.Id {
			following, err = s.IsFollowing(viewer.Id, author.Id)
			if err != nil {
				serverError(c, err)
				return
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"author":     userJSON{Id: author.Id, Username: author.Username},
			"page_obj":   toPageJSON(page),
			"post_count": count,
			"following":  following,
		})
	}
}

// FollowFeedHandler serves the personal feed: posts by every author the
// current user follows, paginated.
func FollowFeedHandler(s *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := middlewares.CurrentUser(c)

		page, err := s.ListFeedPosts(user.Id, pageNumber(c))
		if err != nil {
			serverError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"page_obj": toPageJSON(page)})
	}
}

// FollowHandler creates the follow edge from the current user to the
// profile's author. Following yourself or someone you already follow is
// a silent no-op: the DB constraint rejects the write and the user is
// redirected to the profile either way.
func FollowHandler(s *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		author, err := s.GetUserByUsername(c.Param("username"))
		if errors.Is(err, store.ErrNotFound) {
			notFound(c)
			return
		}
		if err != nil {
			serverError(c, err)
			return
		}

		user := middlewares.CurrentUser(c)
		profile := "/profile/" + author.Username + "/"

		err = s.CreateFollow(user.Id, author.Id)
		switch {
		case err == nil:
			Logger.Log.Infof("user %s followed %s", user.Username, author.Username)
		case errors.Is(err, store.ErrDuplicateFollow), errors.Is(err, store.ErrSelfFollow):
			// No feedback on purpose, the profile page reflects the state.
		default:
			serverError(c, err)
			return
		}

		c.Redirect(http.StatusFound, profile)
	}
}

// UnfollowHandler deletes the follow edge from the current user to the
// profile's author and sends the user back to the global feed. A missing
// edge is a 404; unfollowing yourself is a silent redirect to the
// profile, mirroring the follow side.
func UnfollowHandler(s *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		author, err := s.GetUserByUsername(c.Param("username"))
		if errors.Is(err, store.ErrNotFound) {
			notFound(c)
			return
		}
		if err != nil {
			serverError(c, err)
			return
		}

		user := middlewares.CurrentUser(c)
		if user.Id == author.Id {
			c.Redirect(http.StatusFound, "/profile/"+author.Username+"/")
			return
		}

		err = s.DeleteFollow(user.Id, author.Id)
		if errors.Is(err, store.ErrNotFound) {
			notFound(c)
			return
		}
		if err != nil {
			serverError(c, err)
			return
		}

		Logger.Log.Infof("user %s unfollowed %s", user.Username, author.Username)
		c.Redirect(http.StatusFound, "/")
	}
}
