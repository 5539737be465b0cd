package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/kart-io/confcenter/internal/confcenter/biz"
	"github.com/kart-io/confcenter/internal/confcenter/handler"
	"github.com/kart-io/confcenter/internal/confcenter/notifier"
	"github.com/kart-io/confcenter/internal/confcenter/router"
	"github.com/kart-io/confcenter/internal/confcenter/store"
	"github.com/kart-io/confcenter/internal/model"
	"github.com/kart-io/confcenter/pkg/errors"
	jwtopts "github.com/kart-io/confcenter/pkg/options/jwt"
	"github.com/kart-io/confcenter/pkg/security/jwt"
)

type apiEnvelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Details []string        `json:"details"`
}

type testServer struct {
	engine  *gin.Engine
	factory store.Factory
	jwt     *jwt.Manager
}

func setupServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	factory := store.NewFactory(db)
	require.NoError(t, factory.AutoMigrate())

	hub, err := notifier.NewHub(notifier.NewRegistry())
	require.NoError(t, err)

	appSvc := biz.NewAppService(factory, hub)
	publishSvc := biz.NewPublishService(factory, hub)
	itemSvc := biz.NewItemService(factory, publishSvc, hub)
	resolverSvc := biz.NewResolverService(factory)

	opts := jwtopts.NewOptions()
	opts.Key = "test-signing-key-of-sufficient-len"
	jwtMgr, err := jwt.New(opts)
	require.NoError(t, err)

	engine := gin.New()
	router.Register(engine, jwtMgr, router.Handlers{
		App:     handler.NewAppHandler(appSvc),
		Config:  handler.NewConfigHandler(resolverSvc),
		Item:    handler.NewItemHandler(itemSvc),
		Publish: handler.NewPublishHandler(publishSvc),
		WS:      handler.NewWSHandler(hub, appSvc),
	})

	return &testServer{engine: engine, factory: factory, jwt: jwtMgr}
}

func (s *testServer) token(t *testing.T, roles ...string) string {
	t.Helper()
	token, err := s.jwt.Sign("tester", roles)
	require.NoError(t, err)
	return token
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) (*httptest.ResponseRecorder, apiEnvelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var env apiEnvelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func TestPing(t *testing.T) {
	s := setupServer(t)

	w, env := s.do(t, http.MethodGet, "/config/ping", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, env.Code)
	assert.Contains(t, string(env.Data), "Connected")
}

func TestRegisterApp(t *testing.T) {
	s := setupServer(t)

	w, env := s.do(t, http.MethodPost, "/apps/register", "", gin.H{"id": "identity", "name": "Identity"})
	require.Equal(t, http.StatusOK, w.Code)

	var first struct {
		ID     string `json:"id"`
		Secret string `json:"secret"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &first))
	assert.Equal(t, "identity", first.ID)
	assert.NotEmpty(t, first.Secret)

	// Registering the same id again reports a 400 but carries the secret.
	w, env = s.do(t, http.MethodPost, "/apps/register", "", gin.H{"id": "identity"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, errors.ErrAppExists.Code, env.Code)

	var again struct {
		Secret string `json:"secret"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &again))
	assert.Equal(t, first.Secret, again.Secret)
}

func TestRegisterApp_MissingIDRejected(t *testing.T) {
	s := setupServer(t)

	w, env := s.do(t, http.MethodPost, "/apps/register", "", gin.H{"name": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, errors.ErrValidationFailed.Code, env.Code)
}

func TestAdmin_RequiresAuth(t *testing.T) {
	s := setupServer(t)

	w, env := s.do(t, http.MethodGet, "/admin/apps", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, errors.ErrUnauthorized.Code, env.Code)

	w, _ = s.do(t, http.MethodGet, "/admin/apps", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdmin_ViewerCannotWrite(t *testing.T) {
	s := setupServer(t)
	viewer := s.token(t, "viewer")

	w, _ := s.do(t, http.MethodGet, "/admin/apps", viewer, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, env := s.do(t, http.MethodPost, "/admin/apps", viewer, gin.H{"id": "a", "name": "A"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, errors.ErrPermissionDenied.Code, env.Code)
}

func TestItemLifecycleOverAPI(t *testing.T) {
	s := setupServer(t)
	admin := s.token(t, "admin")

	w, _ := s.do(t, http.MethodPost, "/admin/apps", admin,
		gin.H{"id": "app", "name": "App", "enabled": true})
	require.Equal(t, http.StatusOK, w.Code)

	w, env := s.do(t, http.MethodPost, "/admin/items", admin, gin.H{
		"app_id": "app", "environment": "Production",
		"key": "Logging.Level", "value": "Warning", "group": "logging",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var item model.ConfigItem
	require.NoError(t, json.Unmarshal(env.Data, &item))
	assert.Equal(t, model.StatusInit, item.Status)

	// A draft item is invisible to resolution.
	w, env = s.do(t, http.MethodGet, "/config/app/Production", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "{}", string(env.Data))

	// Publish it.
	w, _ = s.do(t, http.MethodPost, "/admin/publish", admin, gin.H{
		"app_id": "app", "environment": "Production", "description": "first",
		"items": []gin.H{{"item_id": item.ID, "new_value": "Warning", "expected_version": 0}},
	})
	require.Equal(t, http.StatusOK, w.Code)

	w, env = s.do(t, http.MethodGet, "/config/app/Production", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resolved map[string]biz.ResolvedValue
	require.NoError(t, json.Unmarshal(env.Data, &resolved))
	require.Contains(t, resolved, "Logging.Level")
	assert.Equal(t, "Warning", resolved["Logging.Level"].Value)

	// Edit then delete.
	w, env = s.do(t, http.MethodPut, "/admin/items/"+item.ID, admin, gin.H{"value": "Debug"})
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(env.Data, &item))
	assert.Equal(t, model.StatusEditing, item.Status)

	w, _ = s.do(t, http.MethodDelete, "/admin/items/"+item.ID, admin, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, env = s.do(t, http.MethodGet, "/admin/items/"+item.ID, admin, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, errors.ErrItemNotFound.Code, env.Code)
}

func TestPublishConflictOverAPI(t *testing.T) {
	s := setupServer(t)
	admin := s.token(t, "admin")

	s.do(t, http.MethodPost, "/admin/apps", admin, gin.H{"id": "app", "name": "App", "enabled": true})
	_, env := s.do(t, http.MethodPost, "/admin/items", admin, gin.H{
		"app_id": "app", "environment": "Production", "key": "k", "value": "v",
	})
	var item model.ConfigItem
	require.NoError(t, json.Unmarshal(env.Data, &item))

	w, env := s.do(t, http.MethodPost, "/admin/publish", admin, gin.H{
		"app_id": "app", "environment": "Production",
		"items": []gin.H{{"item_id": item.ID, "new_value": "v2", "expected_version": 7}},
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, errors.ErrVersionConflict.Code, env.Code)
	assert.Equal(t, []string{item.ID}, env.Details)
}

func TestRollbackOverAPI(t *testing.T) {
	s := setupServer(t)
	admin := s.token(t, "admin")

	s.do(t, http.MethodPost, "/admin/apps", admin, gin.H{"id": "app", "name": "App", "enabled": true})
	_, env := s.do(t, http.MethodPost, "/admin/items", admin, gin.H{
		"app_id": "app", "environment": "Production", "key": "k", "value": "v1",
	})
	var item model.ConfigItem
	require.NoError(t, json.Unmarshal(env.Data, &item))

	_, env = s.do(t, http.MethodPost, "/admin/publish", admin, gin.H{
		"app_id": "app", "environment": "Production",
		"items": []gin.H{{"item_id": item.ID, "new_value": "v1", "expected_version": 0}},
	})
	var snapshot model.ConfigPublishHistory
	require.NoError(t, json.Unmarshal(env.Data, &snapshot))

	s.do(t, http.MethodPost, "/admin/publish", admin, gin.H{
		"app_id": "app", "environment": "Production",
		"items": []gin.H{{"item_id": item.ID, "new_value": "v2", "expected_version": 1}},
	})

	w, env := s.do(t, http.MethodPost, "/admin/rollback", admin, gin.H{"history_id": snapshot.ID})
	require.Equal(t, http.StatusOK, w.Code)

	var rolled model.ConfigPublishHistory
	require.NoError(t, json.Unmarshal(env.Data, &rolled))
	assert.Equal(t, int64(3), rolled.Version)
	assert.Equal(t, "tester", rolled.CreatedBy)

	_, env = s.do(t, http.MethodGet, "/config/app/Production", "", nil)
	var resolved map[string]biz.ResolvedValue
	require.NoError(t, json.Unmarshal(env.Data, &resolved))
	assert.Equal(t, "v1", resolved["k"].Value)

	// The ledger is append-only and pageable.
	w, env = s.do(t, http.MethodGet, "/admin/apps/app/histories?environment=Production", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var list model.PublishHistoryList
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Equal(t, int64(3), list.TotalCount)
	assert.Equal(t, int64(3), list.Items[0].Version, "newest first")
}

func TestResolveInheritanceOverAPI(t *testing.T) {
	s := setupServer(t)
	admin := s.token(t, "admin")

	s.do(t, http.MethodPost, "/admin/apps", admin, gin.H{"id": "public", "name": "Public", "enabled": true})
	s.do(t, http.MethodPost, "/admin/apps", admin,
		gin.H{"id": "identity", "name": "Identity", "enabled": true, "inherited_app_id": "public"})

	publishItem := func(appID, key, value string) {
		t.Helper()
		_, env := s.do(t, http.MethodPost, "/admin/items", admin, gin.H{
			"app_id": appID, "environment": "Production", "key": key, "value": value,
		})
		var item model.ConfigItem
		require.NoError(t, json.Unmarshal(env.Data, &item))
		w, _ := s.do(t, http.MethodPost, "/admin/publish", admin, gin.H{
			"app_id": appID, "environment": "Production",
			"items": []gin.H{{"item_id": item.ID, "new_value": value, "expected_version": 0}},
		})
		require.Equal(t, http.StatusOK, w.Code)
	}

	publishItem("public", "Logging.Level", "Warning")
	publishItem("public", "Timezone", "UTC")
	publishItem("identity", "Logging.Level", "Debug")

	_, env := s.do(t, http.MethodGet, "/config/identity/Production", "", nil)
	var resolved map[string]biz.ResolvedValue
	require.NoError(t, json.Unmarshal(env.Data, &resolved))
	require.Len(t, resolved, 2)
	assert.Equal(t, "Debug", resolved["Logging.Level"].Value)
	assert.Equal(t, "identity", resolved["Logging.Level"].SourceAppID)
	assert.Equal(t, "UTC", resolved["Timezone"].Value)
	assert.Equal(t, "public", resolved["Timezone"].SourceAppID)
}

func TestResolve_BadEnvironment(t *testing.T) {
	s := setupServer(t)

	w, env := s.do(t, http.MethodGet, "/config/app/Chaos", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, errors.ErrValidationFailed.Code, env.Code)
}

func TestResolve_UnknownApp(t *testing.T) {
	s := setupServer(t)

	w, env := s.do(t, http.MethodGet, "/config/ghost/Production", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, errors.ErrAppNotFound.Code, env.Code)
}

func TestConnectionsEndpoint(t *testing.T) {
	s := setupServer(t)
	viewer := s.token(t, "viewer")

	w, _ := s.do(t, http.MethodGet, "/admin/connections", viewer, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
