package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/notes-backend/internal/handler"
	"github.com/iliyamo/notes-backend/internal/metrics"
	"github.com/iliyamo/notes-backend/internal/repository"
	"github.com/iliyamo/notes-backend/internal/service"
	"github.com/iliyamo/notes-backend/internal/utils"
)

type app struct {
	e        *echo.Echo
	accounts *service.AccountService
	tokens   *utils.TokenService
}

func newApp(t *testing.T) *app {
	t.Helper()
	log := zap.NewNop()
	m := metrics.New()
	tokens := utils.NewTokenService("router-test-secret", 30*time.Minute)
	accounts := service.NewAccountService(
		repository.NewMemoryUserRepo(),
		utils.NewPasswordHasher(bcrypt.MinCost, 2),
		tokens, nil, m, log)
	notes := service.NewNoteService(repository.NewMemoryNoteRepo(), nil, log)
	e := New(Deps{
		Auth:     handler.NewAuthHandler(accounts, 5*time.Second, log),
		Notes:    handler.NewNotesHandler(notes, 5*time.Second, log),
		Accounts: accounts,
		Metrics:  m,
		Log:      log,
	})
	return &app{e: e, accounts: accounts, tokens: tokens}
}

func (a *app) do(method, path, token, contentType, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, contentType)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func (a *app) json(method, path, token, body string) *httptest.ResponseRecorder {
	return a.do(method, path, token, echo.MIMEApplicationJSON, body)
}

func (a *app) register(t *testing.T, body string) map[string]any {
	t.Helper()
	rec := a.json(http.MethodPost, "/auth/register", "", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func (a *app) login(username, password string) *httptest.ResponseRecorder {
	form := url.Values{"username": {username}, "password": {password}}
	return a.do(http.MethodPost, "/auth/token", "", echo.MIMEApplicationForm, form.Encode())
}

func (a *app) token(t *testing.T, username, password string) string {
	t.Helper()
	rec := a.login(username, password)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Equal(t, "bearer", out["token_type"])
	return out["access_token"]
}

func TestRegister_ResponseShape(t *testing.T) {
	a := newApp(t)
	user := a.register(t, `{"username":"alice","email":"a@x.com","password":"secret123"}`)

	require.Equal(t, "alice", user["username"])
	require.Equal(t, "a@x.com", user["email"])
	require.Nil(t, user["full_name"])
	require.Equal(t, false, user["disabled"])
	require.Equal(t, time.Now().UTC().Format("2006-01-02"), user["created_at"])
	_, err := uuid.Parse(user["user_id"].(string))
	require.NoError(t, err)
	for k := range user {
		require.NotContains(t, strings.ToLower(k), "password")
		require.NotContains(t, strings.ToLower(k), "hash")
	}
}

func TestRegister_Duplicates(t *testing.T) {
	a := newApp(t)
	a.register(t, `{"username":"alice","email":"a@x.com","password":"secret123"}`)

	rec := a.json(http.MethodPost, "/auth/register", "", `{"username":"alice","email":"b@x.com","password":"pw"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.JSONEq(t, `{"detail":"Username already taken"}`, rec.Body.String())

	rec = a.json(http.MethodPost, "/auth/register", "", `{"username":"bob","email":"a@x.com","password":"pw"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.JSONEq(t, `{"detail":"Email already registered"}`, rec.Body.String())

	// the first account still logs in
	a.token(t, "alice", "secret123")
}

func TestRegister_Validation(t *testing.T) {
	a := newApp(t)
	rec := a.json(http.MethodPost, "/auth/register", "", `{"username":"alice","email":"not-an-email","password":""}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Contains(t, rec.Body.String(), `"field":"email"`)
	require.Contains(t, rec.Body.String(), `"field":"password"`)
}

func TestRegister_PasswordByteLimit(t *testing.T) {
	a := newApp(t)
	longest := strings.Repeat("p", 72)
	a.register(t, `{"username":"alice","email":"a@x.com","password":"`+longest+`"}`)
	require.NotEmpty(t, a.token(t, "alice", longest))

	for name, pw := range map[string]string{
		"73 bytes":        strings.Repeat("p", 73),
		"multibyte runes": strings.Repeat("é", 37),
	} {
		t.Run(name, func(t *testing.T) {
			rec := a.json(http.MethodPost, "/auth/register", "", `{"username":"bob","email":"b@x.com","password":"`+pw+`"}`)
			require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
			require.JSONEq(t, `{"detail":[{"field":"password","error":"max"}]}`, rec.Body.String())
		})
	}
}

func TestLogin_FailuresAreIdentical(t *testing.T) {
	a := newApp(t)
	a.register(t, `{"username":"alice","email":"a@x.com","password":"secret123"}`)

	wrong := a.login("alice", "nope")
	unknown := a.login("nobody", "secret123")
	for _, rec := range []*httptest.ResponseRecorder{wrong, unknown} {
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Equal(t, "Bearer", rec.Header().Get(echo.HeaderWWWAuthenticate))
		require.JSONEq(t, `{"detail":"Incorrect username or password"}`, rec.Body.String())
	}
	require.Equal(t, wrong.Body.String(), unknown.Body.String())
}

func TestProtected_Rejections(t *testing.T) {
	a := newApp(t)
	expired, err := a.tokens.Issue(uuid.NewString(), time.Nanosecond)
	require.NoError(t, err)
	time.Sleep(1100 * time.Millisecond)

	for _, tok := range []string{"", "garbage", expired.Token} {
		rec := a.do(http.MethodGet, "/users/me", tok, "", "")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Equal(t, "Bearer", rec.Header().Get(echo.HeaderWWWAuthenticate))
		require.JSONEq(t, `{"detail":"Could not validate credentials"}`, rec.Body.String())
	}
}

func TestScenario_DisabledAccount(t *testing.T) {
	a := newApp(t)
	user := a.register(t, `{"username":"alice","email":"a@x.com","password":"secret123"}`)
	tok := a.token(t, "alice", "secret123")

	rec := a.do(http.MethodGet, "/users/me", tok, "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"username":"alice"`)

	id := uuid.MustParse(user["user_id"].(string))
	_, err := a.accounts.SetActive(context.Background(), id, false)
	require.NoError(t, err)

	rec = a.do(http.MethodGet, "/users/me", tok, "", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.JSONEq(t, `{"detail":"Inactive user"}`, rec.Body.String())

	rec = a.do(http.MethodGet, "/notes", tok, "", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNotes_CRUD(t *testing.T) {
	a := newApp(t)
	a.register(t, `{"username":"alice","email":"a@x.com","password":"secret123"}`)
	tok := a.token(t, "alice", "secret123")

	rec := a.json(http.MethodPost, "/notes", tok, `{"note_title":"groceries","note_content":"milk"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var note map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &note))
	id := note["note_id"]
	require.Equal(t, "groceries", note["note_title"])

	rec = a.json(http.MethodPut, "/notes/"+id, tok, `{"note_content":"milk, eggs"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &note))
	require.Equal(t, "groceries", note["note_title"])
	require.Equal(t, "milk, eggs", note["note_content"])

	rec = a.do(http.MethodGet, "/notes", tok, "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)

	rec = a.do(http.MethodDelete, "/notes/"+id, tok, "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"detail":"Note deleted"}`, rec.Body.String())

	rec = a.do(http.MethodGet, "/notes/"+id, tok, "", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.JSONEq(t, `{"detail":"Note not found"}`, rec.Body.String())

	rec = a.do(http.MethodGet, "/notes/not-a-uuid", tok, "", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNotes_CreateRequiresContent(t *testing.T) {
	a := newApp(t)
	a.register(t, `{"username":"alice","email":"a@x.com","password":"secret123"}`)
	tok := a.token(t, "alice", "secret123")

	rec := a.json(http.MethodPost, "/notes", tok, `{"note_title":"groceries"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.JSONEq(t, `{"detail":[{"field":"note_content","error":"required"}]}`, rec.Body.String())

	rec = a.do(http.MethodGet, "/notes", tok, "", "")
	require.JSONEq(t, `[]`, rec.Body.String())
}

func TestNotes_ScopedToOwner(t *testing.T) {
	a := newApp(t)
	a.register(t, `{"username":"alice","email":"a@x.com","password":"pw-a"}`)
	a.register(t, `{"username":"bob","email":"b@x.com","password":"pw-b"}`)
	alice := a.token(t, "alice", "pw-a")
	bob := a.token(t, "bob", "pw-b")

	rec := a.json(http.MethodPost, "/notes", alice, `{"note_title":"diary","note_content":""}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var note map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &note))

	rec = a.do(http.MethodGet, "/notes/"+note["note_id"], bob, "", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	rec = a.do(http.MethodDelete, "/notes/"+note["note_id"], bob, "", "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = a.do(http.MethodGet, "/notes", bob, "", "")
	require.JSONEq(t, `[]`, rec.Body.String())
}

func TestProtected_RecordsResolveOutcomes(t *testing.T) {
	a := newApp(t)
	user := a.register(t, `{"username":"alice","email":"a@x.com","password":"secret123"}`)
	tok := a.token(t, "alice", "secret123")

	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/users/me", tok, "", "").Code)
	require.Equal(t, http.StatusUnauthorized, a.do(http.MethodGet, "/users/me", "garbage", "", "").Code)
	_, err := a.accounts.SetActive(context.Background(), uuid.MustParse(user["user_id"].(string)), false)
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, a.do(http.MethodGet, "/users/me", tok, "", "").Code)

	body := a.do(http.MethodGet, "/metrics", "", "", "").Body.String()
	require.Contains(t, body, `notes_auth_outcomes_total{op="resolve",outcome="success"} 1`)
	require.Contains(t, body, `notes_auth_outcomes_total{op="resolve",outcome="malformed"} 1`)
	require.Contains(t, body, `notes_auth_outcomes_total{op="resolve",outcome="account_disabled"} 1`)
}

func TestAmbientRoutes(t *testing.T) {
	a := newApp(t)
	rec := a.do(http.MethodGet, "/healthz", "", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", rec.Body.String())
	require.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))

	rec = a.do(http.MethodGet, "/metrics", "", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "notes_http_request_duration_seconds")

	rec = a.do(http.MethodGet, "/nowhere", "", "", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, rec.Body.String(), `"detail"`)
}
