package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/food-share/internal/api/handler"
	"github.com/d60-Lab/food-share/internal/api/middleware"
	"github.com/d60-Lab/food-share/internal/bootstrap"
	"github.com/d60-Lab/food-share/internal/fanout"
)

func init() { gin.SetMode(gin.TestMode) }

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	t      *testing.T
	router *gin.Engine
}

func newTestServer(t *testing.T, limiter *middleware.Limiter) *testServer {
	t.Helper()
	bus := fanout.NewLocalBus()
	t.Cleanup(func() { _ = bus.Close() })
	h := handler.New(bootstrap.NewServices(bootstrap.MemoryStores(), bus))
	return &testServer{t: t, router: NewRouter(h, Options{Swagger: true, ClaimLimiter: limiter})}
}

func (s *testServer) do(method, path, user, role string, body any) (int, envelope) {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set(middleware.HeaderUserID, user)
	}
	if role != "" {
		req.Header.Set(middleware.HeaderUserRole, role)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w.Code, env
}

func (s *testServer) post(donor string) string {
	s.t.Helper()
	code, env := s.do(http.MethodPost, "/api/v1/donations", donor, "donor", map[string]string{
		"name": "Fresh Vegetables", "description": "carrots", "quantity": "5 kg",
		"expiry": "2026-10-20", "location": "Main St", "donorName": "Green Grocers",
	})
	require.Equal(s.t, http.StatusCreated, code, env.Message)
	var d struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	require.NoError(s.t, json.Unmarshal(env.Data, &d))
	require.Equal(s.t, "available", d.Status)
	return d.ID
}

func TestRouter_ClaimLifecycle(t *testing.T) {
	s := newTestServer(t, nil)
	id := s.post("donor-1")

	code, _ := s.do(http.MethodPost, "/api/v1/donations/"+id+"/claim", "r1", "receiver", nil)
	assert.Equal(t, http.StatusOK, code)

	code, _ = s.do(http.MethodPost, "/api/v1/donations/"+id+"/claim", "r2", "receiver", nil)
	assert.Equal(t, http.StatusConflict, code)

	code, _ = s.do(http.MethodPost, "/api/v1/donations/"+id+"/cancel", "r2", "receiver", nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, env := s.do(http.MethodGet, "/api/v1/claimants/r1/donations", "", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), id)

	code, env = s.do(http.MethodGet, "/api/v1/donations?q=veg", "r3", "receiver", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.NotContains(t, string(env.Data), id)

	code, env = s.do(http.MethodGet, "/api/v1/donations?q=VEG", "a1", "admin", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), id)

	code, _ = s.do(http.MethodPost, "/api/v1/donations/"+id+"/cancel", "r1", "receiver", nil)
	assert.Equal(t, http.StatusOK, code)

	code, _ = s.do(http.MethodPost, "/api/v1/donations/missing/claim", "r1", "receiver", nil)
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = s.do(http.MethodGet, "/api/v1/donations/missing", "", "", nil)
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = s.do(http.MethodPost, "/api/v1/donations/"+id+"/claim", "", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestRouter_NotificationsAndStats(t *testing.T) {
	s := newTestServer(t, nil)
	id := s.post("donor-1")
	s.do(http.MethodPost, "/api/v1/donations/"+id+"/claim", "r1", "receiver", nil)
	s.do(http.MethodPost, "/api/v1/donations/"+id+"/cancel", "r1", "receiver", nil)

	code, env := s.do(http.MethodGet, "/api/v1/notifications", "donor-1", "donor", nil)
	require.Equal(t, http.StatusOK, code)
	var bell struct {
		List []struct {
			ID   string `json:"id"`
			Kind string `json:"kind"`
		} `json:"list"`
		Unread int `json:"unread"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &bell))
	require.Len(t, bell.List, 2)
	assert.Equal(t, 2, bell.Unread)

	nid := bell.List[0].ID
	// 非接收人不能标记
	code, _ = s.do(http.MethodPost, "/api/v1/notifications/"+nid+"/read", "r1", "receiver", nil)
	assert.Equal(t, http.StatusForbidden, code)
	code, env = s.do(http.MethodGet, "/api/v1/notifications", "donor-1", "donor", nil)
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.Data, &bell))
	assert.Equal(t, 2, bell.Unread)

	for i := 0; i < 2; i++ {
		code, _ = s.do(http.MethodPost, "/api/v1/notifications/"+nid+"/read", "donor-1", "donor", nil)
		assert.Equal(t, http.StatusOK, code)
	}
	code, _ = s.do(http.MethodPost, "/api/v1/notifications/nope/read", "donor-1", "donor", nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, env = s.do(http.MethodPost, "/api/v1/notifications/read-all", "donor-1", "donor", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"updated":1}`, string(env.Data))

	code, env = s.do(http.MethodGet, "/api/v1/donors/donor-1/stats", "", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"total":1,"available":1,"claimed":0,"completed":0,"badges":[]}`, string(env.Data))
}

func TestRouter_MessagesAndUsers(t *testing.T) {
	s := newTestServer(t, nil)

	code, env := s.do(http.MethodPost, "/api/v1/users", "", "", map[string]string{"name": "Alice", "email": "alice@example.org", "role": "receiver"})
	require.Equal(t, http.StatusCreated, code)
	var alice struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &alice))

	code, _ = s.do(http.MethodPost, "/api/v1/users", "", "", map[string]string{"name": "A2", "email": "alice@example.org", "role": "donor"})
	assert.Equal(t, http.StatusConflict, code)
	code, _ = s.do(http.MethodPost, "/api/v1/users", "", "", map[string]string{"name": "Bad", "email": "nope", "role": "donor"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(http.MethodPost, "/api/v1/messages", alice.ID, "receiver", map[string]string{"receiverId": "donor-1", "content": "hello"})
	assert.Equal(t, http.StatusCreated, code)
	code, _ = s.do(http.MethodPost, "/api/v1/messages", alice.ID, "receiver", map[string]string{"receiverId": "donor-1"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = s.do(http.MethodGet, "/api/v1/messages/"+alice.ID, "donor-1", "donor", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), "hello")

	code, env = s.do(http.MethodGet, "/api/v1/notifications", "donor-1", "donor", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), "Alice sent you a message")

	code, _ = s.do(http.MethodGet, "/api/v1/admin/users?q=alice", "u1", "donor", nil)
	assert.Equal(t, http.StatusForbidden, code)
	code, env = s.do(http.MethodGet, "/api/v1/admin/users?q=alice", "a1", "admin", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), "alice@example.org")
}

func TestRouter_ClaimRateLimited(t *testing.T) {
	s := newTestServer(t, middleware.NewLimiter(0.001, 2))
	id := s.post("donor-1")

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		code, _ := s.do(http.MethodPost, "/api/v1/donations/"+id+"/cancel", "r1", "receiver", nil)
		codes = append(codes, code)
	}
	assert.Equal(t, []int{http.StatusForbidden, http.StatusForbidden, http.StatusTooManyRequests}, codes)
}

func TestRouter_HealthAndSwagger(t *testing.T) {
	s := newTestServer(t, nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/api/v1/donations/{id}/claim")
}

func TestRouter_StreamDeliversClaim(t *testing.T) {
	s := newTestServer(t, nil)
	srv := httptest.NewServer(s.router)
	defer srv.Close()
	id := s.post("donor-1")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+StreamPath, nil)
	require.NoError(t, err)
	req.Header.Set(middleware.HeaderUserID, "donor-1")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// 订阅在响应头发出前完成
	code, _ := s.do(http.MethodPost, "/api/v1/donations/"+id+"/claim", "r1", "receiver", nil)
	require.Equal(t, http.StatusOK, code)

	sc := bufio.NewScanner(resp.Body)
	var lines []string
	for sc.Scan() {
		line := sc.Text()
		lines = append(lines, line)
		if strings.HasPrefix(line, "data:") {
			break
		}
	}
	require.GreaterOrEqual(t, len(lines), 2)
	assert.Equal(t, "event:claim", lines[len(lines)-2])
	assert.Contains(t, lines[len(lines)-1], id)
}
