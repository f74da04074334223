package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"ceseminars/internal/logger"
	"ceseminars/internal/models"
	"ceseminars/internal/repository/memory"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAuthCache struct {
	entries map[string]int64
	lookups int
}

func (f *fakeAuthCache) GetUserIDByAuth(ctx context.Context, email, passwordHash string) (int64, error) {
	f.lookups++
	if id, ok := f.entries[email+":"+passwordHash]; ok {
		return id, nil
	}
	return 0, errors.New("miss")
}

func (f *fakeAuthCache) StoreUserAuth(ctx context.Context, email, passwordHash string, userID int64) error {
	f.entries[email+":"+passwordHash] = userID
	return nil
}

func setup(t *testing.T, cache AuthCache) (*gin.Engine, *memory.UserRepository, *models.User, *models.User) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	users := memory.NewRepositories(memory.NewDB()).Users
	member := &models.User{Email: "ann@example.com", FirstName: "Ann", PasswordHash: HashPassword("secret"), IsActive: true}
	admin := &models.User{Email: "root@example.com", FirstName: "Root", PasswordHash: HashPassword("toor"), IsActive: true, IsAdmin: true}
	require.NoError(t, users.Create(context.Background(), member))
	require.NoError(t, users.Create(context.Background(), admin))

	r := gin.New()
	r.Use(RequestID())
	api := r.Group("/api", BasicAuth(users, cache))
	api.GET("/me", func(c *gin.Context) {
		id, _ := UserID(c)
		ctxID, _ := logger.UserIDFromContext(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"user_id": id, "ctx_user_id": ctxID})
	})
	api.GET("/admin", RequireAdmin(users), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	return r, users, member, admin
}

func call(r *gin.Engine, path, user, password string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if user != "" {
		req.SetBasicAuth(user, password)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestBasicAuth(t *testing.T) {
	r, _, member, _ := setup(t, nil)

	w := call(r, "/api/me", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.NotEmpty(t, w.Header().Get("WWW-Authenticate"))

	assert.Equal(t, http.StatusUnauthorized, call(r, "/api/me", "ann@example.com", "wrong").Code)
	assert.Equal(t, http.StatusUnauthorized, call(r, "/api/me", "nobody@example.com", "secret").Code)

	w = call(r, "/api/me", "ann@example.com", "secret")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":`+itoa(member.UserID)+`,"ctx_user_id":`+itoa(member.UserID)+`}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestBasicAuth_UsesCache(t *testing.T) {
	cache := &fakeAuthCache{entries: map[string]int64{}}
	r, _, member, _ := setup(t, cache)

	require.Equal(t, http.StatusOK, call(r, "/api/me", "ann@example.com", "secret").Code)
	assert.Equal(t, member.UserID, cache.entries["ann@example.com:"+HashPassword("secret")])

	// a cached credential is honoured without a users lookup
	cache.entries["ghost@example.com:"+HashPassword("x")] = member.UserID
	assert.Equal(t, http.StatusOK, call(r, "/api/me", "ghost@example.com", "x").Code)
}

func TestRequireAdmin(t *testing.T) {
	cache := &fakeAuthCache{entries: map[string]int64{}}
	r, _, _, admin := setup(t, cache)

	assert.Equal(t, http.StatusForbidden, call(r, "/api/admin", "ann@example.com", "secret").Code)
	assert.Equal(t, http.StatusNoContent, call(r, "/api/admin", "root@example.com", "toor").Code)

	// second call hits the cache, so the admin flag is loaded by id
	assert.Equal(t, admin.UserID, cache.entries["root@example.com:"+HashPassword("toor")])
	assert.Equal(t, http.StatusNoContent, call(r, "/api/admin", "root@example.com", "toor").Code)
}

func TestRequestIDIsPropagated(t *testing.T) {
	r, _, _, _ := setup(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("X-Request-ID", "req-42")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "req-42", w.Header().Get("X-Request-ID"))
}

func TestCORSPreflight(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORS())
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusTeapot) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/x", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Recovery())
	r.GET("/boom", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Internal server error"}`, w.Body.String())
}

func itoa(v int64) string { return strconv.FormatInt(v, 10) }
