package payments

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-pay/campus_pay/internal/httpx"
	"github.com/campus-pay/campus_pay/internal/ledger"
	"github.com/campus-pay/campus_pay/internal/logging"
)

func newTestApp(t *testing.T, svc *Service, userID string) *fiber.App {
	t.Helper()
	app := fiber.New(fiber.Config{ErrorHandler: httpx.ErrorHandler(logging.Discard())})
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user_id", userID)
		return c.Next()
	})
	h := NewHandler(svc)
	app.Post("/transactions/send", h.Send)
	app.Post("/transactions/request", h.Request)
	app.Get("/transactions/history", h.History)
	return app
}

func post(t *testing.T, app *fiber.App, path, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, path, strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err := app.Test(req)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestHandlerSendAndHistory(t *testing.T) {
	svc, _ := newTestService(t, nil, map[string]string{"alice": "100", "bob": "50"})
	app := newTestApp(t, svc, "alice")

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/transactions/history", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	status, body := post(t, app, "/transactions/send", `{"receiver_id":"bob","amount":"40","description":"lunch"}`)
	require.Equal(t, fiber.StatusCreated, status, body)
	txn := body["transaction"].(map[string]any)
	assert.Equal(t, "Completed", txn["status"])
	assert.Equal(t, "40", txn["amount"])

	resp, err = app.Test(httptest.NewRequest(fiber.MethodGet, "/transactions/history", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var history []ledger.Transaction
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&history))
	require.Len(t, history, 1)
	assert.Equal(t, "bob", history[0].ReceiverID)
}

func TestHandlerErrorMapping(t *testing.T) {
	svc, store := newTestService(t, nil, map[string]string{"alice": "10", "bob": "0"})
	app := newTestApp(t, svc, "alice")

	cases := []struct {
		body   string
		status int
	}{
		{`{"receiver_id":"bob","amount":"30"}`, fiber.StatusBadRequest},
		{`{"receiver_id":"alice","amount":"1"}`, fiber.StatusBadRequest},
		{`{"receiver_id":"ghost","amount":"1"}`, fiber.StatusNotFound},
		{`{"receiver_id":"bob","amount":"0"}`, fiber.StatusBadRequest},
		{`{"amount":"1"}`, fiber.StatusBadRequest},
		{`not json`, fiber.StatusBadRequest},
	}
	for _, tc := range cases {
		status, body := post(t, app, "/transactions/send", tc.body)
		assert.Equal(t, tc.status, status, "body %s -> %v", tc.body, body)
		assert.NotEmpty(t, body["error"])
	}

	acc, err := store.Account(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "10", acc.Balance.String())
}

func TestHandlerRequest(t *testing.T) {
	svc, _ := newTestService(t, nil, map[string]string{"alice": "10", "bob": "0"})
	app := newTestApp(t, svc, "bob")

	status, body := post(t, app, "/transactions/request", `{"receiver_id":"alice","amount":"5","description":"tickets"}`)
	require.Equal(t, fiber.StatusCreated, status, body)
	assert.Equal(t, "Pending", body["transaction"].(map[string]any)["status"])
}
