package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/postline/postline/cache"
	"github.com/postline/postline/filestore"
	"github.com/postline/postline/model"
	"github.com/postline/postline/server/middlewares"
	"github.com/postline/postline/utils"
	"github.com/postline/postline/utils/dotenv"
)

func TestMain(m *testing.M) {
	dotenv.LoadDotEnvsInTests()
	gin.SetMode(gin.TestMode)
	os.Setenv("SESSION_SECRET", "test-secret")
	os.Exit(m.Run())
}

func newTestServer(t *testing.T) (*gorm.DB, *gin.Engine, *cache.MemoryCache) {
	t.Helper()
	db, _ := utils.CreateTempDB(t)

	pc := cache.NewMemoryCache(cache.DefaultTTL)
	router := gin.New()
	AddRoutes(router, db, pc, &filestore.FakeImageStore{})
	return db, router, pc
}

// get performs a GET request, optionally authenticated as user.
func get(t *testing.T, router *gin.Engine, path string, user *model.User) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	attachSession(t, req, user)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// postForm performs a POST request with form data, optionally
// authenticated as user.
func postForm(t *testing.T, router *gin.Engine, path string, form url.Values, user *model.User) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	attachSession(t, req, user)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// postMultipart performs a POST request with form fields plus one
// uploaded "image" file carrying an explicit part content type.
func postMultipart(t *testing.T, router *gin.Engine, path string, form url.Values, fileName, fileType string, fileBody []byte, user *model.User) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for key, vals := range form {
		for _, v := range vals {
			require.NoError(t, mw.WriteField(key, v))
		}
	}
	if fileName != "" {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename="%s"`, fileName))
		header.Set("Content-Type", fileType)
		part, err := mw.CreatePart(header)
		require.NoError(t, err)
		_, err = part.Write(fileBody)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	attachSession(t, req, user)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func attachSession(t *testing.T, req *http.Request, user *model.User) {
	t.Helper()
	if user == nil {
		return
	}
	token, err := middlewares.NewSessionToken(user.Id)
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: middlewares.SessionCookie, Value: token})
}

func decodePage(t *testing.T, body []byte) pageJSON {
	t.Helper()
	var page pageJSON
	require.NoError(t, json.Unmarshal(body, &page))
	return page
}

func TestIndexPagination(t *testing.T) {
	db, router, _ := newTestServer(t)

	author := utils.TestCreateUser(t, db, "leo")
	group := utils.TestCreateGroup(t, db, "Travel", "travel")
	base := time.Now()
	for i := 0; i < 13; i++ {
		utils.TestCreatePostAt(t, db, author, group, fmt.Sprintf("post %d", i), base.Add(time.Duration(i)*time.Second))
	}

	w := get(t, router, "/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	page := decodePage(t, w.Body.Bytes())
	require.Equal(t, 10, len(page.Posts))
	require.Equal(t, "post 12", page.Posts[0].Text)
	require.Equal(t, "leo", page.Posts[0].Author.Username)
	require.NotNil(t, page.Posts[0].Group)
	require.Equal(t, "travel", page.Posts[0].Group.Slug)

	w = get(t, router, "/?page=2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	page = decodePage(t, w.Body.Bytes())
	require.Equal(t, 3, len(page.Posts))

	// out of range pages clamp instead of erroring
	w = get(t, router, "/?page=42", nil)
	require.Equal(t, http.StatusOK, w.Code)
	page = decodePage(t, w.Body.Bytes())
	require.Equal(t, 2, page.Page)
	require.Equal(t, 3, len(page.Posts))
}

func TestIndexCache(t *testing.T) {
	db, router, pc := newTestServer(t)

	author := utils.TestCreateUser(t, db, "leo")
	utils.TestCreatePost(t, db, author, nil, "first post")

	before := get(t, router, "/", nil)
	require.Equal(t, http.StatusOK, before.Code)

	// A new post within the cache window must not change the body.
	utils.TestCreatePost(t, db, author, nil, "second post")
	within := get(t, router, "/", nil)
	require.Equal(t, before.Body.Bytes(), within.Body.Bytes())

	// Manual invalidation makes the next request reflect the new data.
	pc.Clear()
	after := get(t, router, "/", nil)
	require.NotEqual(t, before.Body.Bytes(), after.Body.Bytes())
	page := decodePage(t, after.Body.Bytes())
	require.Equal(t, 2, len(page.Posts))
}

func TestIndexCacheClampedPageKey(t *testing.T) {
	db, router, _ := newTestServer(t)

	author := utils.TestCreateUser(t, db, "leo")
	base := time.Now()
	for i := 0; i < 13; i++ {
		utils.TestCreatePostAt(t, db, author, nil, fmt.Sprintf("post %d", i), base.Add(time.Duration(i)*time.Second))
	}

	// An out-of-range request is served as page 2 and cached under that
	// page, not under its own requested number.
	first := get(t, router, "/?page=42", nil)
	require.Equal(t, http.StatusOK, first.Code)
	require.Equal(t, 2, decodePage(t, first.Body.Bytes()).Page)

	utils.TestCreatePost(t, db, author, nil, "new within window")

	second := get(t, router, "/?page=2", nil)
	require.Equal(t, first.Body.Bytes(), second.Body.Bytes())
}

func TestGroupPosts(t *testing.T) {
	db, router, _ := newTestServer(t)

	author := utils.TestCreateUser(t, db, "leo")
	travel := utils.TestCreateGroup(t, db, "Travel", "travel")
	utils.TestCreatePost(t, db, author, travel, "grouped")
	utils.TestCreatePost(t, db, author, nil, "ungrouped")

	w := get(t, router, "/group/travel/", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Group   groupJSON `json:"group"`
		PageObj pageJSON  `json:"page_obj"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "Travel", resp.Group.Title)
	require.Equal(t, 1, len(resp.PageObj.Posts))
	require.Equal(t, "grouped", resp.PageObj.Posts[0].Text)

	w = get(t, router, "/group/missing/", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestProfile(t *testing.T) {
	db, router, _ := newTestServer(t)

	alice := utils.TestCreateUser(t, db, "alice")
	bob := utils.TestCreateUser(t, db, "bob")
	utils.TestCreatePost(t, db, bob, nil, "bob writes")

	var resp struct {
		Author    userJSON `json:"author"`
		PageObj   pageJSON `json:"page_obj"`
		PostCount int64    `json:"post_count"`
		Following bool     `json:"following"`
	}

	t.Run("anonymous viewer", func(t *testing.T) {
		w := get(t, router, "/profile/bob/", nil)
		require.Equal(t, http.StatusOK, w.Code)
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Equal(t, "bob", resp.Author.Username)
		require.Equal(t, int64(1), resp.PostCount)
		require.False(t, resp.Following)
	})

	t.Run("following viewer", func(t *testing.T) {
		w := get(t, router, "/profile/bob/follow/", alice)
		require.Equal(t, http.StatusFound, w.Code)

		w = get(t, router, "/profile/bob/", alice)
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.True(t, resp.Following)
	})

	t.Run("own profile is never following", func(t *testing.T) {
		w := get(t, router, "/profile/bob/", bob)
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.False(t, resp.Following)
	})

	t.Run("unknown profile", func(t *testing.T) {
		w := get(t, router, "/profile/nobody/", nil)
		require.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestPostDetail(t *testing.T) {
	db, router, _ := newTestServer(t)

	author := utils.TestCreateUser(t, db, "leo")
	post := utils.TestCreatePost(t, db, author, nil, "detailed")
	base := time.Now()
	utils.TestCreateCommentAt(t, db, post, author, "older", base)
	utils.TestCreateCommentAt(t, db, post, author, "newer", base.Add(time.Second))

	w := get(t, router, "/posts/"+post.Id+"/", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Post     postJSON      `json:"post"`
		Comments []commentJSON `json:"comments"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "detailed", resp.Post.Text)
	require.Equal(t, 2, len(resp.Comments))
	require.Equal(t, "older", resp.Comments[0].Text)

	w = get(t, router, "/posts/00000000-0000-0000-0000-000000000000/", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestLoginRedirect(t *testing.T) {
	_, router, _ := newTestServer(t)

	for _, path := range []string{"/create/", "/follow/", "/profile/x/follow/"} {
		w := get(t, router, path, nil)
		require.Equal(t, http.StatusFound, w.Code)
		require.Equal(t, middlewares.LoginRoute+"?next="+url.QueryEscape(path), w.Header().Get("Location"))
	}
}

func TestCreatePost(t *testing.T) {
	db, router, _ := newTestServer(t)

	leo := utils.TestCreateUser(t, db, "leo")
	travel := utils.TestCreateGroup(t, db, "Travel", "travel")

	t.Run("GET renders an empty form", func(t *testing.T) {
		w := get(t, router, "/create/", leo)
		require.Equal(t, http.StatusOK, w.Code)
		require.Contains(t, w.Body.String(), `"is_edit":false`)
	})

	t.Run("valid submission creates the post and redirects to profile", func(t *testing.T) {
		w := postForm(t, router, "/create/", url.Values{"text": {"hello world"}, "group": {travel.Id}}, leo)
		require.Equal(t, http.StatusFound, w.Code)
		require.Equal(t, "/profile/leo/", w.Header().Get("Location"))

		var post model.Post
		require.NoError(t, db.Where("text = ?", "hello world").First(&post).Error)
		require.Equal(t, leo.Id, post.AuthorID)
		require.Equal(t, travel.Id, *post.GroupID)
	})

	t.Run("blank text re-renders the form with errors", func(t *testing.T) {
		w := postForm(t, router, "/create/", url.Values{"text": {"   "}}, leo)
		require.Equal(t, http.StatusOK, w.Code)
		require.Contains(t, w.Body.String(), `"text":"text is required"`)

		var count int64
		require.NoError(t, db.Model(&model.Post{}).Count(&count).Error)
		require.Equal(t, int64(1), count)
	})

	t.Run("unknown group re-renders with the input preserved", func(t *testing.T) {
		w := postForm(t, router, "/create/", url.Values{"text": {"keep me"}, "group": {"bogus"}}, leo)
		require.Equal(t, http.StatusOK, w.Code)
		require.Contains(t, w.Body.String(), `"group does not exist"`)
		require.Contains(t, w.Body.String(), `"keep me"`)
	})
}

func TestCreatePostWithImage(t *testing.T) {
	db, router, _ := newTestServer(t)

	leo := utils.TestCreateUser(t, db, "leo")

	postCount := func() int64 {
		var count int64
		require.NoError(t, db.Model(&model.Post{}).Count(&count).Error)
		return count
	}

	t.Run("accepted image is stored and its key kept on the post", func(t *testing.T) {
		w := postMultipart(t, router, "/create/", url.Values{"text": {"with image"}}, "sunset.png", "image/png", []byte("png-bytes"), leo)
		require.Equal(t, http.StatusFound, w.Code)
		require.Equal(t, "/profile/leo/", w.Header().Get("Location"))

		var post model.Post
		require.NoError(t, db.Where("text = ?", "with image").First(&post).Error)
		// the fake image store keys by file name
		require.Equal(t, "sunset.png", post.Image)
	})

	t.Run("oversize image re-renders with a field error", func(t *testing.T) {
		big := bytes.Repeat([]byte("a"), maxImageSize+1)
		w := postMultipart(t, router, "/create/", url.Values{"text": {"too big"}}, "huge.png", "image/png", big, leo)
		require.Equal(t, http.StatusOK, w.Code)
		require.Contains(t, w.Body.String(), `"image":"image is too large"`)
		require.Equal(t, int64(1), postCount())
	})

	t.Run("disallowed type re-renders with a field error", func(t *testing.T) {
		w := postMultipart(t, router, "/create/", url.Values{"text": {"not an image"}}, "notes.txt", "text/plain", []byte("plain text"), leo)
		require.Equal(t, http.StatusOK, w.Code)
		require.Contains(t, w.Body.String(), `"image":"unsupported image type"`)
		require.Equal(t, int64(1), postCount())
	})

	t.Run("image stays optional", func(t *testing.T) {
		w := postMultipart(t, router, "/create/", url.Values{"text": {"no image"}}, "", "", nil, leo)
		require.Equal(t, http.StatusFound, w.Code)

		var post model.Post
		require.NoError(t, db.Where("text = ?", "no image").First(&post).Error)
		require.Equal(t, "", post.Image)
	})
}

func TestEditPost(t *testing.T) {
	db, router, _ := newTestServer(t)

	leo := utils.TestCreateUser(t, db, "leo")
	mallory := utils.TestCreateUser(t, db, "mallory")
	post := utils.TestCreatePost(t, db, leo, nil, "original text")

	t.Run("non-author is silently redirected to the detail page", func(t *testing.T) {
		w := postForm(t, router, "/posts/"+post.Id+"/edit/", url.Values{"text": {"hijacked"}}, mallory)
		require.Equal(t, http.StatusFound, w.Code)
		require.Equal(t, "/posts/"+post.Id+"/", w.Header().Get("Location"))

		var got model.Post
		require.NoError(t, db.Where("id = ?", post.Id).First(&got).Error)
		require.Equal(t, "original text", got.Text)
	})

	t.Run("author gets a pre-filled form", func(t *testing.T) {
		w := get(t, router, "/posts/"+post.Id+"/edit/", leo)
		require.Equal(t, http.StatusOK, w.Code)
		require.Contains(t, w.Body.String(), `"is_edit":true`)
		require.Contains(t, w.Body.String(), "original text")
	})

	t.Run("pre-filled form carries the current image key", func(t *testing.T) {
		require.NoError(t, db.Model(&model.Post{}).Where("id = ?", post.Id).Update("image", "sunset.png").Error)

		w := get(t, router, "/posts/"+post.Id+"/edit/", leo)
		require.Equal(t, http.StatusOK, w.Code)
		require.Contains(t, w.Body.String(), `"image":"sunset.png"`)
	})

	t.Run("author edit persists in place", func(t *testing.T) {
		w := postForm(t, router, "/posts/"+post.Id+"/edit/", url.Values{"text": {"revised text"}}, leo)
		require.Equal(t, http.StatusFound, w.Code)
		require.Equal(t, "/posts/"+post.Id+"/", w.Header().Get("Location"))

		var got model.Post
		require.NoError(t, db.Where("id = ?", post.Id).First(&got).Error)
		require.Equal(t, "revised text", got.Text)
		require.Equal(t, leo.Id, got.AuthorID)
		require.WithinDuration(t, post.CreatedAt, got.CreatedAt, time.Second)
	})

	t.Run("unknown post", func(t *testing.T) {
		w := get(t, router, "/posts/00000000-0000-0000-0000-000000000000/edit/", leo)
		require.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestAddComment(t *testing.T) {
	db, router, _ := newTestServer(t)

	leo := utils.TestCreateUser(t, db, "leo")
	post := utils.TestCreatePost(t, db, leo, nil, "commented post")

	commentCount := func() int64 {
		var count int64
		require.NoError(t, db.Model(&model.Comment{}).Count(&count).Error)
		return count
	}

	t.Run("anonymous caller is redirected to login, nothing created", func(t *testing.T) {
		w := postForm(t, router, "/posts/"+post.Id+"/comment/", url.Values{"text": {"hi"}}, nil)
		require.Equal(t, http.StatusFound, w.Code)
		require.Contains(t, w.Header().Get("Location"), middlewares.LoginRoute)
		require.Equal(t, int64(0), commentCount())
	})

	t.Run("valid comment is created and redirects to detail", func(t *testing.T) {
		w := postForm(t, router, "/posts/"+post.Id+"/comment/", url.Values{"text": {"nice one"}}, leo)
		require.Equal(t, http.StatusFound, w.Code)
		require.Equal(t, "/posts/"+post.Id+"/", w.Header().Get("Location"))
		require.Equal(t, int64(1), commentCount())

		var comment model.Comment
		require.NoError(t, db.First(&comment).Error)
		require.Equal(t, leo.Id, comment.AuthorID)
		require.Equal(t, post.Id, comment.PostID)
	})

	t.Run("blank comment is silently dropped, still redirects", func(t *testing.T) {
		w := postForm(t, router, "/posts/"+post.Id+"/comment/", url.Values{"text": {"  "}}, leo)
		require.Equal(t, http.StatusFound, w.Code)
		require.Equal(t, "/posts/"+post.Id+"/", w.Header().Get("Location"))
		require.Equal(t, int64(1), commentCount())
	})

	t.Run("detail route accepts comment submissions too", func(t *testing.T) {
		w := postForm(t, router, "/posts/"+post.Id+"/", url.Values{"text": {"via detail"}}, leo)
		require.Equal(t, http.StatusFound, w.Code)
		require.Equal(t, int64(2), commentCount())
	})
}

func TestFollowLifecycle(t *testing.T) {
	db, router, _ := newTestServer(t)

	alice := utils.TestCreateUser(t, db, "alice")
	bob := utils.TestCreateUser(t, db, "bob")
	carol := utils.TestCreateUser(t, db, "carol")

	followCount := func(userID, authorID string) int64 {
		var count int64
		require.NoError(t, db.Model(&model.Follow{}).Where("user_id = ? AND author_id = ?", userID, authorID).Count(&count).Error)
		return count
	}

	t.Run("follow is idempotent", func(t *testing.T) {
		for i := 0; i < 2; i++ {
			w := get(t, router, "/profile/bob/follow/", alice)
			require.Equal(t, http.StatusFound, w.Code)
			require.Equal(t, "/profile/bob/", w.Header().Get("Location"))
		}
		require.Equal(t, int64(1), followCount(alice.Id, bob.Id))
	})

	t.Run("self follow never creates an edge", func(t *testing.T) {
		w := get(t, router, "/profile/alice/follow/", alice)
		require.Equal(t, http.StatusFound, w.Code)
		require.Equal(t, "/profile/alice/", w.Header().Get("Location"))
		require.Equal(t, int64(0), followCount(alice.Id, alice.Id))
	})

	t.Run("feed shows followed authors only", func(t *testing.T) {
		utils.TestCreatePost(t, db, bob, nil, "from bob")
		utils.TestCreatePost(t, db, carol, nil, "from carol")

		w := get(t, router, "/follow/", alice)
		require.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			PageObj pageJSON `json:"page_obj"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Equal(t, 1, len(resp.PageObj.Posts))
		require.Equal(t, "from bob", resp.PageObj.Posts[0].Text)

		w = get(t, router, "/follow/", carol)
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Equal(t, 0, len(resp.PageObj.Posts))
	})

	t.Run("unfollow deletes the edge and redirects home", func(t *testing.T) {
		w := get(t, router, "/profile/bob/unfollow/", alice)
		require.Equal(t, http.StatusFound, w.Code)
		require.Equal(t, "/", w.Header().Get("Location"))
		require.Equal(t, int64(0), followCount(alice.Id, bob.Id))
	})

	t.Run("unfollow without an edge is not found", func(t *testing.T) {
		w := get(t, router, "/profile/bob/unfollow/", alice)
		require.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("unfollow self is a silent redirect", func(t *testing.T) {
		w := get(t, router, "/profile/alice/unfollow/", alice)
		require.Equal(t, http.StatusFound, w.Code)
		require.Equal(t, "/profile/alice/", w.Header().Get("Location"))
	})

	t.Run("follow an unknown author", func(t *testing.T) {
		w := get(t, router, "/profile/nobody/follow/", alice)
		require.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestUnknownRoute(t *testing.T) {
	_, router, _ := newTestServer(t)

	w := get(t, router, "/definitely/not/a/route/", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}
