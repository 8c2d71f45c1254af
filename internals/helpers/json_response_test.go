package helper

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPaginationFromOffset(t *testing.T) {
	p := BuildPaginationFromOffset(45, 20, 20)
	assert.Equal(t, 2, p.Page)
	assert.Equal(t, 3, p.TotalPages)
	assert.True(t, p.HasNext)
	assert.True(t, p.HasPrev)

	p = BuildPaginationFromOffset(0, 0, 0)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 20, p.PerPage)
	assert.Equal(t, 1, p.TotalPages)
	assert.False(t, p.HasNext)
}

func call(t *testing.T, app *fiber.App, path string) (int, ErrorResponse) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest("GET", path, nil), -1)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out ErrorResponse
	require.NoError(t, sonic.Unmarshal(raw, &out))
	return resp.StatusCode, out
}

func TestFiberErrorHandler(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: FiberErrorHandler, JSONEncoder: sonic.Marshal})
	app.Get("/bad", func(c *fiber.Ctx) error { return fiber.NewError(fiber.StatusBadRequest, "payment id tidak valid") })
	app.Get("/boom", func(c *fiber.Ctx) error { return errors.New("pq: secret detail") })

	code, body := call(t, app, "/bad")
	assert.Equal(t, fiber.StatusBadRequest, code)
	assert.Equal(t, "BAD_REQUEST", body.ErrorCode)
	assert.Equal(t, "payment id tidak valid", body.Message)

	code, body = call(t, app, "/boom")
	assert.Equal(t, fiber.StatusInternalServerError, code)
	assert.Equal(t, "INTERNAL_ERROR", body.ErrorCode)
	assert.NotContains(t, body.Message, "secret")

	code, body = call(t, app, "/nope")
	assert.Equal(t, fiber.StatusNotFound, code)
	assert.Equal(t, "NOT_FOUND", body.ErrorCode)
}

func TestResolvePaging(t *testing.T) {
	app := fiber.New()
	var got Paging
	app.Get("/", func(c *fiber.Ctx) error {
		got = ResolvePaging(c, 20, 50)
		return nil
	})
	_, err := app.Test(httptest.NewRequest("GET", "/?page=3&per_page=500", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, Paging{Page: 3, PerPage: 50, Offset: 100, Limit: 50}, got)
}
