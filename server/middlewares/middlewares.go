package middlewares

import (
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"gorm.io/gorm"

	"github.com/postline/postline/model"
)

const (
	// SessionCookie holds the signed session token issued by the external
	// login service.
	SessionCookie = "session"

	// LoginRoute is where anonymous users are sent. The login service
	// returns them to the `next` query parameter after a successful login.
	LoginRoute = "/auth/login/"

	userContextKey = "current_user"
)

func sessionSecret() []byte {
	return []byte(os.Getenv("SESSION_SECRET"))
}

// NewSessionToken mints a signed session token for a user id. The login
// service uses the same secret, tests use this directly.
func NewSessionToken(userID string) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(sessionSecret())
}

// Session resolves the session cookie into the current user and stores
// it in the request context. Anonymous and invalid sessions pass through
// unauthenticated, gating is LoginRequired's job.
func Session(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(SessionCookie)
		if err != nil {
			c.Next()
			return
		}

		claims := jwt.RegisteredClaims{}
		parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return sessionSecret(), nil
		})
		if err != nil || !parsed.Valid {
			c.Next()
			return
		}

		var user model.User
		res := db.Where("id = ?", claims.Subject).First(&user)
		if res.Error != nil {
			c.Next()
			return
		}

		c.Set(userContextKey, &user)
		c.Next()
	}
}

// CurrentUser returns the authenticated user of this request, or nil for
// anonymous requests.
func CurrentUser(c *gin.Context) *model.User {
	val, ok := c.Get(userContextKey)
	if !ok {
		return nil
	}
	return val.(*model.User)
}

// LoginRequired redirects anonymous requests to the login route,
// preserving the originally requested path as the round-trip target.
func LoginRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUser(c) != nil {
			c.Next()
			return
		}

		next := url.QueryEscape(c.Request.URL.RequestURI())
		c.Redirect(http.StatusFound, LoginRoute+"?next="+next)
		c.Abort()
	}
}
