package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/sessions"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alextreichler/luxora/internal/auth"
	"github.com/alextreichler/luxora/internal/catalog"
	"github.com/alextreichler/luxora/internal/media"
	"github.com/alextreichler/luxora/internal/models"
	"github.com/alextreichler/luxora/internal/ordering"
	"github.com/alextreichler/luxora/internal/store"
	"github.com/alextreichler/luxora/web"
)

const (
	adminPassword = "admin-secret"
	userPassword  = "user-secret"
)

type testApp struct {
	t       *testing.T
	db      *store.Store
	auth    *auth.Service
	tokens  *auth.TokenIssuer
	router  *Router
	handler http.Handler
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	dir := t.TempDir()

	db, err := store.NewStore(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate(context.Background()))

	images, err := media.NewStore(filepath.Join(dir, "uploads"))
	require.NoError(t, err)

	templates := NewTemplateCache()
	require.NoError(t, templates.Load(web.FS, web.TemplatesDir))

	sessionStore := sessions.NewCookieStore([]byte("0123456789abcdef0123456789abcdef"))
	base := Base{SessionStore: sessionStore, Templates: templates}

	authService := auth.NewService(db)
	catalogService := catalog.NewService(db, images)
	orderService := ordering.NewService(db, db, false)
	tokens := auth.NewTokenIssuer("test-secret", time.Hour)

	router := &Router{
		Home:    &HomeHandler{Base: base, Catalog: catalogService},
		Orders:  &OrderHandler{Base: base, Catalog: catalogService, Orders: orderService, Store: db},
		Account: &AccountHandler{Base: base, Auth: authService, Store: db},
		Admin: &AdminHandler{
			Base:           base,
			Store:          db,
			Catalog:        catalogService,
			Orders:         orderService,
			MaxUploadBytes: 10 << 20,
		},
		API:       &APIHandler{Store: db, Orders: orderService, Auth: authService, Tokens: tokens},
		Auth:      &Authenticator{SessionStore: sessionStore, Users: db, Tokens: tokens},
		Static:    web.Static(),
		UploadDir: images.Dir,
	}

	_, err = authService.EnsureAdmin(context.Background(), "admin", "", adminPassword)
	require.NoError(t, err)
	_, err = authService.Register(context.Background(), auth.Registration{
		Username:        "jane",
		Email:           "jane@example.com",
		Password:        userPassword,
		ConfirmPassword: userPassword,
	})
	require.NoError(t, err)

	return &testApp{
		t:       t,
		db:      db,
		auth:    authService,
		tokens:  tokens,
		router:  router,
		handler: router.Handler(),
	}
}

func (a *testApp) serve(req *http.Request, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func (a *testApp) get(path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	return a.serve(httptest.NewRequest(http.MethodGet, path, nil), cookies...)
}

func (a *testApp) postForm(path string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return a.serve(req, cookies...)
}

// login signs in through the login form and returns the session cookies.
func (a *testApp) login(username, password string) []*http.Cookie {
	a.t.Helper()
	rec := a.postForm("/login", url.Values{"username_or_email": {username}, "password": {password}})
	require.Equal(a.t, http.StatusSeeOther, rec.Code)
	cookies := rec.Result().Cookies()
	require.NotEmpty(a.t, cookies, "login must set the session cookie")
	return cookies
}

func (a *testApp) addProduct(name, price string) *models.Product {
	a.t.Helper()
	p := &models.Product{Name: name, Price: decimal.RequireFromString(price), Description: name + " description"}
	require.NoError(a.t, a.db.CreateProduct(context.Background(), p, nil))
	return p
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

func TestSecurityHeaders(t *testing.T) {
	app := newTestApp(t)

	rec := app.get("/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.NotEmpty(t, rec.Header().Get("Content-Security-Policy"))
}

func TestHomeListsProducts(t *testing.T) {
	app := newTestApp(t)
	app.addProduct("Silk Scarf", "45.00")
	app.addProduct("Wool Hat", "20.00")

	rec := app.get("/?search=silk")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Silk Scarf")
	assert.NotContains(t, rec.Body.String(), "Wool Hat")
	assert.Contains(t, rec.Body.String(), "45.00")
}

func TestProductPage(t *testing.T) {
	app := newTestApp(t)
	p := app.addProduct("Silk Scarf", "45.00")

	rec := app.get("/product/" + itoa(p.ID))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Silk Scarf")
	assert.Contains(t, rec.Body.String(), "/static/placeholder.svg")

	rec = app.get("/product/999")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Product not found")
}

func TestUnknownPageIsNotFound(t *testing.T) {
	app := newTestApp(t)

	rec := app.get("/no-such-page")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStaticAssets(t *testing.T) {
	app := newTestApp(t)

	rec := app.get("/static/style.css")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/css")
}

func TestLoginAndLogout(t *testing.T) {
	app := newTestApp(t)

	rec := app.postForm("/login", url.Values{"username_or_email": {"jane@example.com"}, "password": {userPassword}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	cookies := rec.Result().Cookies()

	rec = app.get("/profile", cookies...)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "jane")

	rec = app.postForm("/logout", nil, cookies...)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	rec = app.get("/profile", rec.Result().Cookies()...)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login?next=%2Fprofile", rec.Header().Get("Location"))
}

func TestLoginFailureRedirectsBack(t *testing.T) {
	app := newTestApp(t)

	rec := app.postForm("/login", url.Values{"username_or_email": {"jane"}, "password": {"wrong"}, "next": {"/profile"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login?next=%2Fprofile", rec.Header().Get("Location"))
}

func TestAdminLandsOnDashboard(t *testing.T) {
	app := newTestApp(t)

	rec := app.postForm("/login", url.Values{"username": {"admin"}, "password": {adminPassword}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin", rec.Header().Get("Location"))
}

func TestRegisterLogsIn(t *testing.T) {
	app := newTestApp(t)

	rec := app.postForm("/register", url.Values{
		"username":         {"bob"},
		"email":            {"bob@example.com"},
		"password":         {"hunter22"},
		"confirm_password": {"hunter22"},
	})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/profile", rec.Header().Get("Location"))

	rec = app.get("/profile", rec.Result().Cookies()...)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "bob")
}

func TestRegisterValidationRedirectsBack(t *testing.T) {
	app := newTestApp(t)

	rec := app.postForm("/register", url.Values{
		"username":         {"bo"},
		"email":            {"bob@example.com"},
		"password":         {"hunter22"},
		"confirm_password": {"hunter22"},
	})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/register", rec.Header().Get("Location"))
}

func TestEditProfile(t *testing.T) {
	app := newTestApp(t)
	cookies := app.login("jane", userPassword)

	rec := app.postForm("/profile/edit", url.Values{"first_name": {"Jane"}, "phone": {"555-0100"}}, cookies...)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/profile", rec.Header().Get("Location"))

	u, err := app.db.GetUserByLogin(context.Background(), "jane")
	require.NoError(t, err)
	assert.Equal(t, "Jane", u.FirstName)
	assert.Equal(t, "555-0100", u.Phone)
}

func TestSafeNext(t *testing.T) {
	assert.Equal(t, "/profile", safeNext("/profile"))
	assert.Empty(t, safeNext("https://evil.example"))
	assert.Empty(t, safeNext("//evil.example"))
	assert.Empty(t, safeNext(`/\evil.example`))

	admin := &models.User{IsAdmin: true}
	customer := &models.User{}
	assert.Equal(t, "/admin/orders", landingPage(admin, "/admin/orders"))
	assert.Equal(t, "/", landingPage(customer, "/admin/orders"))
	assert.Equal(t, "/admin", landingPage(admin, ""))
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(time.Minute)
	calls := 0
	h := rl.Middleware(func(w http.ResponseWriter, r *http.Request) { calls++ })

	for range 2 {
		req := httptest.NewRequest(http.MethodPost, "/order/1", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		h(httptest.NewRecorder(), req)
	}
	req := httptest.NewRequest(http.MethodPost, "/order/1", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	rec := httptest.NewRecorder()
	h(rec, req)

	assert.Equal(t, 2, calls, "second request from the same address is throttled")
	assert.Equal(t, http.StatusOK, rec.Code)

	rl.cleanup(time.Now().Add(2 * time.Minute))
	_, ok := rl.visitors.Load("10.0.0.1")
	assert.False(t, ok)
}
