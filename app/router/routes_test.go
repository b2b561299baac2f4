package router_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/amirphl/widget-sidebar/app/bootstrap"
	"github.com/amirphl/widget-sidebar/app/dto"
	"github.com/amirphl/widget-sidebar/app/middleware"
	"github.com/amirphl/widget-sidebar/app/router"
	"github.com/amirphl/widget-sidebar/app/services"
	"github.com/amirphl/widget-sidebar/config"
	"github.com/amirphl/widget-sidebar/logger"
	testingutil "github.com/amirphl/widget-sidebar/testing"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Code    string          `json:"code"`
		Details json.RawMessage `json:"details"`
	} `json:"error"`
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 5 * time.Second,
			IdleTimeout:  5 * time.Second,
			BodyLimit:    1024 * 1024,
			EnableDocs:   true,
		},
		Security: config.SecurityConfig{
			AllowedOrigins:  []string{"http://localhost:3000"},
			AllowedMethods:  []string{"GET", "POST", "PUT", "DELETE"},
			AllowedHeaders:  []string{"Content-Type", "Authorization"},
			GlobalRateLimit: 10000,
			RateLimitWindow: time.Minute,
		},
		Export: config.ExportConfig{DefaultFormat: "json"},
	}
}

type client struct {
	t     *testing.T
	app   *fiber.App
	token string
}

func (c client) raw(method, path string, body io.Reader, contentType string) *http.Response {
	c.t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set(fiber.HeaderContentType, contentType)
	}
	if c.token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+c.token)
	}
	resp, err := c.app.Test(req, fiber.TestConfig{Timeout: 10 * time.Second})
	require.NoError(c.t, err)
	return resp
}

func (c client) do(method, path string, body any) (int, envelope) {
	c.t.Helper()
	var reader io.Reader
	contentType := ""
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(c.t, err)
		reader = bytes.NewReader(raw)
		contentType = fiber.MIMEApplicationJSON
	}
	resp := c.raw(method, path, reader, contentType)
	defer resp.Body.Close()

	var env envelope
	require.NoError(c.t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

func newApp(t *testing.T, testDB *testingutil.TestDB, auth *middleware.AuthMiddleware) *fiber.App {
	flows := bootstrap.NewFlows(testDB.DB, nil, "", logger.NewNop())
	t.Cleanup(flows.Close)

	cfg := testConfig()
	r := router.NewFiberRouter(cfg, logger.NewNop(), flows.Handlers(cfg.Export.DefaultFormat), auth)
	r.SetupRoutes()
	return r.GetApp()
}

func kinds(entries []dto.ContentEntryResponse) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, fmt.Sprintf("%s:%d", e.Kind, e.ID))
	}
	return out
}

func TestContainerRoutes(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		c := client{t: t, app: newApp(t, testDB, nil)}

		status, env := c.do(http.MethodGet, "/api/v1/health", nil)
		require.Equal(t, http.StatusOK, status)
		assert.True(t, env.Success)

		status, env = c.do(http.MethodPost, "/api/v1/containers", dto.CreateContainerRequest{Kind: "area", Name: "Inbox", Color: "#3B82F6"})
		require.Equal(t, http.StatusCreated, status, env.Message)
		inbox := decode[dto.ContainerResponse](t, env)
		assert.Equal(t, "Inbox", inbox.Name)
		assert.Equal(t, "area", inbox.Kind)

		base := fmt.Sprintf("/api/v1/containers/%d", inbox.ID)

		t.Run("CreateValidation", func(t *testing.T) {
			status, env := c.do(http.MethodPost, "/api/v1/containers", dto.CreateContainerRequest{Kind: "shelf", Name: "Bad"})
			assert.Equal(t, http.StatusBadRequest, status)
			assert.False(t, env.Success)

			status, env = c.do(http.MethodPost, "/api/v1/containers", dto.CreateContainerRequest{Kind: "area", Name: "Inbox"})
			assert.Equal(t, http.StatusConflict, status)
			assert.False(t, env.Success)
		})

		t.Run("GetAndList", func(t *testing.T) {
			status, env := c.do(http.MethodGet, base, nil)
			require.Equal(t, http.StatusOK, status)
			assert.Equal(t, inbox.ID, decode[dto.ContainerResponse](t, env).ID)

			status, env = c.do(http.MethodGet, "/api/v1/containers?kind=area", nil)
			require.Equal(t, http.StatusOK, status)
			assert.Len(t, decode[[]dto.ContainerResponse](t, env), 1)

			status, _ = c.do(http.MethodGet, "/api/v1/containers/9999", nil)
			assert.Equal(t, http.StatusNotFound, status)

			status, env = c.do(http.MethodGet, "/api/v1/containers/abc", nil)
			assert.Equal(t, http.StatusBadRequest, status)
			assert.Equal(t, "INVALID_ID", env.Error.Code)
		})

		var first, second dto.RelationResponse
		var note dto.ComponentResponse

		t.Run("InsertBelowAndMove", func(t *testing.T) {
			status, env := c.do(http.MethodPost, base+"/relations", dto.AddRelationRequest{EntityType: "item", EntityID: 1})
			require.Equal(t, http.StatusCreated, status, env.Message)
			first = decode[dto.RelationResponse](t, env)

			status, env = c.do(http.MethodPost, base+"/components", dto.AddComponentRequest{ComponentType: "note", Content: "read later"})
			require.Equal(t, http.StatusCreated, status, env.Message)
			note = decode[dto.ComponentResponse](t, env)
			assert.NotEmpty(t, note.Icon)

			status, env = c.do(http.MethodPost, base+"/relations", dto.AddRelationRequest{
				EntityType:  "item",
				EntityID:    2,
				InsertBelow: &dto.EntryRefRequest{Kind: "relation", ID: first.ID},
			})
			require.Equal(t, http.StatusCreated, status, env.Message)
			second = decode[dto.RelationResponse](t, env)
			assert.Equal(t, first.OrderIndex+1, second.OrderIndex)

			status, env = c.do(http.MethodGet, base+"/content", nil)
			require.Equal(t, http.StatusOK, status)
			content := decode[dto.ContainerContentResponse](t, env)
			assert.Equal(t, []string{
				fmt.Sprintf("relation:%d", first.ID),
				fmt.Sprintf("relation:%d", second.ID),
				fmt.Sprintf("component:%d", note.ID),
			}, kinds(content.Entries))

			status, env = c.do(http.MethodPost, fmt.Sprintf("/api/v1/components/%d/move", note.ID), dto.MoveEntryRequest{Direction: "up"})
			require.Equal(t, http.StatusOK, status, env.Message)
			moved := decode[[]dto.ContentEntryResponse](t, env)
			assert.Equal(t, []string{
				fmt.Sprintf("relation:%d", first.ID),
				fmt.Sprintf("component:%d", note.ID),
				fmt.Sprintf("relation:%d", second.ID),
			}, kinds(moved))

			status, env = c.do(http.MethodPost, fmt.Sprintf("/api/v1/relations/%d/move", first.ID), dto.MoveEntryRequest{Direction: "sideways"})
			assert.Equal(t, http.StatusBadRequest, status)
			assert.False(t, env.Success)

			status, env = c.do(http.MethodGet, base+"/order-check", nil)
			require.Equal(t, http.StatusOK, status)
			assert.True(t, decode[dto.OrderCheckResponse](t, env).Consistent)
		})

		t.Run("TagsAndFilteredContent", func(t *testing.T) {
			status, env := c.do(http.MethodPost, "/api/v1/tags/area", dto.CreateTagRequest{Name: "urgent", Color: "#FF0000"})
			require.Equal(t, http.StatusCreated, status, env.Message)
			tag := decode[dto.TagResponse](t, env)

			status, env = c.do(http.MethodPut, fmt.Sprintf("/api/v1/relations/%d/tags", second.ID), dto.AssignTagsRequest{TagIDs: []uint{tag.ID}})
			require.Equal(t, http.StatusOK, status, env.Message)
			assert.Len(t, decode[[]dto.TagResponse](t, env), 1)

			status, env = c.do(http.MethodGet, fmt.Sprintf("%s/content?tag_ids=%d", base, tag.ID), nil)
			require.Equal(t, http.StatusOK, status)
			filtered := decode[dto.ContainerContentResponse](t, env)
			require.Len(t, filtered.Entries, 1)
			assert.Equal(t, second.ID, filtered.Entries[0].ID)
			assert.Equal(t, []uint{tag.ID}, filtered.Entries[0].TagIDs)

			status, env = c.do(http.MethodGet, base+"/content?tag_ids=x", nil)
			assert.Equal(t, http.StatusBadRequest, status)
			assert.Equal(t, "INVALID_TAG_IDS", env.Error.Code)

			status, _ = c.do(http.MethodGet, "/api/v1/tags/shelf", nil)
			assert.Equal(t, http.StatusBadRequest, status)

			status, env = c.do(http.MethodGet, fmt.Sprintf("/api/v1/tags/area/%d", tag.ID), nil)
			require.Equal(t, http.StatusOK, status)
			detail := decode[dto.TagDetailResponse](t, env)
			assert.EqualValues(t, 1, detail.UsageCount)
			assert.Equal(t, []uint{second.ID}, detail.RelationIDs)
		})

		t.Run("TagBatch", func(t *testing.T) {
			status, env := c.do(http.MethodPost, "/api/v1/tags/project/batch", dto.BatchCreateTagsRequest{Tags: []dto.BatchTagItem{
				{Name: "python", Color: "#3776AB", Description: "language"},
				{Name: "go"},
				{Name: "bad/name"},
			}})
			require.Equal(t, http.StatusCreated, status, env.Message)
			created := decode[[]dto.TagResponse](t, env)
			require.Len(t, created, 2)
			assert.Equal(t, "#3776AB", created[0].Color)
			assert.Equal(t, "language", created[0].Description)

			status, env = c.do(http.MethodPost, "/api/v1/tags/project/batch", dto.BatchCreateTagsRequest{Tags: []dto.BatchTagItem{{Name: "x", Color: "blue"}}})
			assert.Equal(t, http.StatusBadRequest, status)
			assert.False(t, env.Success)
		})

		t.Run("ActiveFilter", func(t *testing.T) {
			status, env := c.do(http.MethodGet, "/api/v1/filter/active", nil)
			require.Equal(t, http.StatusOK, status)
			assert.False(t, decode[dto.ActiveFilterResponse](t, env).Active)

			status, env = c.do(http.MethodPut, "/api/v1/filter/active", dto.SetActiveFilterRequest{ContainerID: inbox.ID})
			require.Equal(t, http.StatusOK, status, env.Message)

			status, env = c.do(http.MethodGet, "/api/v1/filter/active", nil)
			require.Equal(t, http.StatusOK, status)
			active := decode[dto.ActiveFilterResponse](t, env)
			assert.True(t, active.Active)
			require.NotNil(t, active.Container)
			assert.Equal(t, inbox.ID, active.Container.ID)

			status, _ = c.do(http.MethodDelete, "/api/v1/filter/active", nil)
			require.Equal(t, http.StatusOK, status)
		})

		t.Run("ExportAndImport", func(t *testing.T) {
			resp := c.raw(http.MethodGet, base+"/export?format=yaml", nil, "")
			defer resp.Body.Close()
			require.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Contains(t, resp.Header.Get(fiber.HeaderContentDisposition), "attachment;")
			doc, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			assert.Contains(t, string(doc), "name: Inbox")

			resp = c.raw(http.MethodPost, "/api/v1/containers/import?format=yaml", bytes.NewReader(doc), "application/x-yaml")
			defer resp.Body.Close()
			assert.Equal(t, http.StatusConflict, resp.StatusCode)

			resp = c.raw(http.MethodPost, "/api/v1/containers/import?format=yaml&mode=merge", bytes.NewReader(doc), "application/x-yaml")
			defer resp.Body.Close()
			require.Equal(t, http.StatusCreated, resp.StatusCode)
			var env envelope
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
			imported := decode[dto.ImportContainerResponse](t, env)
			assert.Equal(t, "merge", imported.Mode)
			assert.Equal(t, inbox.ID, imported.Container.ID)

			status, env := c.do(http.MethodGet, base+"/export?format=pdf", nil)
			assert.Equal(t, http.StatusBadRequest, status)
			assert.False(t, env.Success)
		})

		t.Run("InlineEdit", func(t *testing.T) {
			status, env := c.do(http.MethodPut, fmt.Sprintf("/api/v1/relations/%d", first.ID), dto.UpdateRelationRequest{Description: "first pick"})
			require.Equal(t, http.StatusOK, status, env.Message)
			assert.Equal(t, "first pick", decode[dto.RelationResponse](t, env).Description)

			status, env = c.do(http.MethodPut, fmt.Sprintf("/api/v1/components/%d", note.ID), dto.UpdateComponentRequest{Content: "read tonight"})
			require.Equal(t, http.StatusOK, status, env.Message)
			assert.Equal(t, "read tonight", decode[dto.ComponentResponse](t, env).Content)

			status, env = c.do(http.MethodPut, fmt.Sprintf("/api/v1/components/%d", note.ID), dto.UpdateComponentRequest{Content: " "})
			assert.Equal(t, http.StatusBadRequest, status)
			assert.False(t, env.Success)

			status, _ = c.do(http.MethodPut, "/api/v1/relations/9999", dto.UpdateRelationRequest{Description: "x"})
			assert.Equal(t, http.StatusNotFound, status)

			status, env = c.do(http.MethodGet, base+"/content", nil)
			require.Equal(t, http.StatusOK, status)
			for _, e := range decode[dto.ContainerContentResponse](t, env).Entries {
				switch {
				case e.Kind == "relation" && e.ID == first.ID:
					assert.Equal(t, "first pick", e.Description)
				case e.Kind == "component" && e.ID == note.ID:
					assert.Equal(t, "read tonight", e.Content)
				}
			}
		})

		t.Run("DeleteEntries", func(t *testing.T) {
			status, _ := c.do(http.MethodDelete, fmt.Sprintf("/api/v1/components/%d", note.ID), nil)
			require.Equal(t, http.StatusOK, status)

			status, _ = c.do(http.MethodDelete, fmt.Sprintf("/api/v1/components/%d", note.ID), nil)
			assert.Equal(t, http.StatusNotFound, status)
		})

		t.Run("UnknownRoute", func(t *testing.T) {
			status, env := c.do(http.MethodGet, "/api/v1/nowhere", nil)
			assert.Equal(t, http.StatusNotFound, status)
			assert.Equal(t, "NOT_FOUND", env.Error.Code)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestAuthenticatedRoutes(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		tokens, err := services.NewTokenService(time.Hour, "widget-sidebar", "widget-sidebar-api", "0123456789abcdef0123456789abcdef")
		require.NoError(t, err)
		app := newApp(t, testDB, middleware.NewAuthMiddleware(tokens))

		anonymous := client{t: t, app: app}
		status, _ := anonymous.do(http.MethodGet, "/api/v1/health", nil)
		assert.Equal(t, http.StatusOK, status)

		status, env := anonymous.do(http.MethodGet, "/api/v1/containers?kind=area", nil)
		assert.Equal(t, http.StatusUnauthorized, status)
		assert.False(t, env.Success)

		forged := client{t: t, app: app, token: "not-a-token"}
		status, _ = forged.do(http.MethodGet, "/api/v1/containers?kind=area", nil)
		assert.Equal(t, http.StatusUnauthorized, status)

		token, err := tokens.GenerateToken("ops")
		require.NoError(t, err)
		authed := client{t: t, app: app, token: token}
		status, env = authed.do(http.MethodGet, "/api/v1/containers?kind=area", nil)
		assert.Equal(t, http.StatusOK, status, env.Message)

		return nil
	})
	require.NoError(t, err)
}

func TestSwaggerDocumentCoversRoutes(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		app := newApp(t, testDB, nil)
		c := client{t: t, app: app}

		resp := c.raw(http.MethodGet, "/api/v1/swagger.json", nil, "")
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var doc struct {
			Paths       map[string]map[string]json.RawMessage `json:"paths"`
			Definitions map[string]json.RawMessage            `json:"definitions"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&doc))
		assert.Contains(t, doc.Definitions, "dto.APIResponse")
		assert.Contains(t, doc.Definitions, "dto.UpdateComponentRequest")

		param := regexp.MustCompile(`:(\w+)`)
		checked := 0
		for _, route := range app.GetRoutes(true) {
			if route.Method == fiber.MethodHead || !strings.HasPrefix(route.Path, "/api/v1/") || route.Path == "/api/v1/swagger.json" {
				continue
			}
			path := param.ReplaceAllString(strings.TrimSuffix(route.Path, "/"), "{$1}")
			ops, ok := doc.Paths[path]
			if assert.True(t, ok, "path %s is not documented", path) {
				assert.Contains(t, ops, strings.ToLower(route.Method), "%s %s is not documented", route.Method, path)
			}
			checked++
		}
		assert.Greater(t, checked, 40)

		return nil
	})
	require.NoError(t, err)
}
