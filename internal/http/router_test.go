package http

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/cookgpt-backend/internal/cache"
	"github.com/yungbote/cookgpt-backend/internal/data/repos"
	"github.com/yungbote/cookgpt-backend/internal/data/repos/testutil"
	"github.com/yungbote/cookgpt-backend/internal/generation"
	"github.com/yungbote/cookgpt-backend/internal/generation/prompts"
	httpH "github.com/yungbote/cookgpt-backend/internal/http/handlers"
	httpMW "github.com/yungbote/cookgpt-backend/internal/http/middleware"
	"github.com/yungbote/cookgpt-backend/internal/media"
	"github.com/yungbote/cookgpt-backend/internal/modules/chat"
	"github.com/yungbote/cookgpt-backend/internal/modules/chat/stream"
	"github.com/yungbote/cookgpt-backend/internal/observability"
	"github.com/yungbote/cookgpt-backend/internal/services"
	"github.com/yungbote/cookgpt-backend/internal/tasks"
)

const reply = "Let the dough rest for an hour."

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.DB(t)
	log := testutil.Logger(t)
	rs := repos.New(db, log)
	mem := cache.NewMemoryStore()
	mediaSvc := media.NewService(media.NewMemoryStorage(), nil, media.Config{}, log)
	store := chat.NewStore(chat.StoreDeps{
		DB: db, Log: log,
		Threads: rs.Thread, Chats: rs.Chat, Media: rs.ChatMedia,
		Cache: cache.NewInvalidator(mem, log), Blobs: mediaSvc,
	})
	set, err := prompts.Default()
	require.NoError(t, err)
	streams := stream.NewMemoryStore()
	metrics := observability.NewMetrics()
	sender := chat.NewSender(chat.SenderDeps{
		Store: store, Users: rs.User, Backend: generation.NewFake(reply),
		Prompts: set, Streams: streams, Log: log, Observer: metrics,
	})
	queue := tasks.NewLocalQueue(sender, 2, time.Minute, log)
	t.Cleanup(queue.Wait)
	tailer := stream.NewTailer(streams, tasks.Checker(queue), stream.TailerConfig{PollInterval: 5 * time.Millisecond, ReadTimeout: 5 * time.Second}, log)

	auth := services.NewAuthService(db, log, rs.User, rs.UserToken, services.AuthConfig{
		Secret: "router-secret", AccessTTL: time.Hour, RefreshTTL: 24 * time.Hour, DefaultMaxChatCost: 1000,
	})
	chats := services.NewChatService(services.ChatServiceDeps{
		Log: log, Users: rs.User, Store: store, Sender: sender, Queue: queue,
		Streams: streams, Tailer: tailer, Media: mediaSvc, Cache: mem, Budget: metrics,
	})

	return NewRouter(RouterConfig{
		Log:            log,
		ServiceName:    "cookgpt-test",
		AuthMiddleware: httpMW.NewAuthMiddleware(log, auth),
		Metrics:        metrics,
		AuthHandler:    httpH.NewAuthHandler(auth),
		UserHandler:    httpH.NewUserHandler(services.NewUserService(db, log, rs.User, rs.UserToken, store)),
		ChatHandler:    httpH.NewChatHandler(log, chats, httpH.DefaultMaxUploadBytes, metrics),
		ThreadHandler:  httpH.NewThreadHandler(services.NewThreadService(log, rs.User, store, mem, 0)),
		HealthHandler:  httpH.NewHealthHandler(nil),
	})
}

func do(t *testing.T, r *gin.Engine, method, path, token string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func doJSON(t *testing.T, r *gin.Engine, method, path, token string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}
	return do(t, r, method, path, token, body, "application/json")
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func signupAndLogin(t *testing.T, r *gin.Engine, username string) services.AuthInfo {
	t.Helper()
	w := doJSON(t, r, http.MethodPost, "/api/auth/signup", "", services.SignupInput{
		FirstName: "Ada", LastName: "Obi", Username: username,
		Email: username + "@example.com", Password: "correct-horse",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = doJSON(t, r, http.MethodPost, "/api/auth/login", "", map[string]string{"login": username, "password": "correct-horse"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return decode[struct {
		AuthInfo services.AuthInfo `json:"auth_info"`
	}](t, w).AuthInfo
}

func chatForm(t *testing.T, fields map[string]string) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestHealthAndMetricsArePublic(t *testing.T) {
	r := newTestRouter(t)

	w := do(t, r, http.MethodGet, "/healthz", "", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status"`)

	w = do(t, r, http.MethodGet, "/metrics", "", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "cookgpt_")
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	r := newTestRouter(t)
	for _, path := range []string{"/api/user", "/api/threads", "/api/chat/all"} {
		w := do(t, r, http.MethodGet, path, "", nil, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
}

func TestRefreshRouteRejectsAccessToken(t *testing.T) {
	r := newTestRouter(t)
	info := signupAndLogin(t, r, "refresher")

	w := do(t, r, http.MethodPost, "/api/auth/refresh", info.AToken, nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(t, r, http.MethodPost, "/api/auth/refresh", info.RToken, nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "Refreshed access token")
}

func TestChatRoundTrip(t *testing.T) {
	r := newTestRouter(t)
	token := signupAndLogin(t, r, "baker").AToken

	body, ct := chatForm(t, map[string]string{"query": "How long should bread dough rest?"})
	w := do(t, r, http.MethodPost, "/api/chat?stream=true", token, body, ct)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	posted := decode[services.PostChatResult](t, w)
	require.True(t, posted.Streaming)

	w = do(t, r, http.MethodGet, "/api/chat/stream/"+posted.Chat.ID.String(), token, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, reply, w.Body.String())
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/plain"))

	w = do(t, r, http.MethodGet, "/api/chat/all?thread_id="+posted.Chat.ThreadID.String(), token, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[struct {
		Chats []chat.ChatView `json:"chats"`
	}](t, w)
	require.Len(t, list.Chats, 2)
	assert.Equal(t, reply, list.Chats[1].Content)

	w = do(t, r, http.MethodGet, "/api/threads", token, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	threads := decode[struct {
		Threads []chat.ThreadView `json:"threads"`
	}](t, w)
	require.Len(t, threads.Threads, 1)
	assert.Equal(t, services.NewChatThreadTitle, threads.Threads[0].Title)
}

func TestOtherUsersCannotReadThread(t *testing.T) {
	r := newTestRouter(t)
	owner := signupAndLogin(t, r, "owner").AToken
	other := signupAndLogin(t, r, "other").AToken

	w := doJSON(t, r, http.MethodPost, "/api/thread", owner, map[string]string{"title": "Sourdough"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[struct {
		Thread chat.ThreadView `json:"thread"`
	}](t, w)

	w = do(t, r, http.MethodGet, "/api/thread/"+created.Thread.ID.String(), other, nil, "")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "thread_not_owned")

	w = do(t, r, http.MethodGet, "/api/thread/not-a-uuid", owner, nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
