package server

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/postline/postline/cache"
	"github.com/postline/postline/filestore"
	"github.com/postline/postline/server/middlewares"
	"github.com/postline/postline/store"
)

// AddRoutes registers the whole route surface on the router. The session
// middleware runs on every route; write routes additionally require a
// logged-in user and redirect anonymous callers to the login route with
// the original path preserved.
func AddRoutes(router *gin.Engine, db *gorm.DB, pc cache.PageCache, images filestore.ImageStore) {
	s := store.New(db)

	router.Use(middlewares.Session(db))

	router.GET("/", IndexHandler(s, pc))
	router.GET("/group/:slug/", GroupPostsHandler(s))
	router.GET("/profile/:username/", ProfileHandler(s))
	router.GET("/posts/:id/", PostDetailHandler(s))

	auth := router.Group("/")
	auth.Use(middlewares.LoginRequired())

	auth.GET("/create/", PostCreateHandler(s, images))
	auth.POST("/create/", PostCreateHandler(s, images))
	auth.GET("/posts/:id/edit/", PostEditHandler(s, images))
	auth.POST("/posts/:id/edit/", PostEditHandler(s, images))
	// Comment data posted to the detail route goes through the same
	// validation path as the dedicated comment route.
	auth.POST("/posts/:id/", AddCommentHandler(s))
	auth.POST("/posts/:id/comment/", AddCommentHandler(s))
	auth.GET("/follow/", FollowFeedHandler(s))
	auth.GET("/profile/:username/follow/", FollowHandler(s))
	auth.GET("/profile/:username/unfollow/", UnfollowHandler(s))

	router.NoRoute(notFound)
}
