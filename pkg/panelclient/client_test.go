package panelclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xui-shop-bot/internal/config"
	apperrors "xui-shop-bot/internal/errors"
	"xui-shop-bot/internal/models"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// fakePanel is an httptest server speaking the panel's envelope protocol
type fakePanel struct {
	srv *httptest.Server

	logins   atomic.Int64
	requests atomic.Int64

	loginOK      bool
	rejectNext   atomic.Bool
	listResponse string
	lastBody     []byte
}

func newFakePanel(t *testing.T) *fakePanel {
	t.Helper()

	p := &fakePanel{loginOK: true, listResponse: `[]`}

	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		p.logins.Add(1)
		require.NoError(t, r.ParseForm())
		if !p.loginOK || r.PostFormValue("username") != "admin" || r.PostFormValue("password") != "secret" {
			json.NewEncoder(w).Encode(map[string]interface{}{"success": false, "msg": "bad credentials"})
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "3x-ui", Value: "session-token"})
		json.NewEncoder(w).Encode(map[string]interface{}{"success": true})
	})
	mux.HandleFunc("/panel/api/", func(w http.ResponseWriter, r *http.Request) {
		p.requests.Add(1)
		if p.rejectNext.Swap(false) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if cookie, err := r.Cookie("3x-ui"); err != nil || cookie.Value != "session-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		p.lastBody, _ = io.ReadAll(r.Body)
		if r.URL.Path == "/panel/api/inbounds/list" {
			w.Write([]byte(`{"success":true,"obj":` + p.listResponse + `}`))
			return
		}
		w.Write([]byte(`{"success":true,"obj":null}`))
	})

	p.srv = httptest.NewServer(mux)
	t.Cleanup(p.srv.Close)

	return p
}

func (p *fakePanel) client() *Client {
	return New(config.PanelConfig{
		User:     "admin",
		Password: "secret",
		APIURL:   p.srv.URL,
	}, testLogger())
}

func TestListInbounds(t *testing.T) {
	panel := newFakePanel(t)
	panel.listResponse = `[{"id":1,"remark":"main","enable":true,"settings":"{\"clients\":[]}","clientStats":[{"email":"a--1(((A)))","up":10,"down":20,"total":100}]}]`

	inbounds, err := panel.client().ListInbounds(context.Background())
	require.NoError(t, err)
	require.Len(t, inbounds, 1)
	assert.Equal(t, 1, inbounds[0].ID)
	assert.Equal(t, "main", inbounds[0].Remark)
	require.Len(t, inbounds[0].ClientStats, 1)
	assert.Equal(t, int64(20), inbounds[0].ClientStats[0].Down)

	// One login serves both the list call and any later call
	assert.Equal(t, int64(1), panel.logins.Load())

	_, err = panel.client().ListInbounds(context.Background())
	require.NoError(t, err)
}

func TestSessionIsReusedAcrossCalls(t *testing.T) {
	panel := newFakePanel(t)
	client := panel.client()

	for i := 0; i < 3; i++ {
		_, err := client.ListInbounds(context.Background())
		require.NoError(t, err)
	}

	assert.Equal(t, int64(1), panel.logins.Load())
	assert.Equal(t, int64(3), panel.requests.Load())
}

func TestExpiredSessionTriggersOneRelogin(t *testing.T) {
	panel := newFakePanel(t)
	client := panel.client()

	_, err := client.ListInbounds(context.Background())
	require.NoError(t, err)

	// The panel invalidates the session mid-flight
	panel.rejectNext.Store(true)
	_, err = client.ListInbounds(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(2), panel.logins.Load())
}

func TestLoginFailure(t *testing.T) {
	panel := newFakePanel(t)
	panel.loginOK = false

	_, err := panel.client().ListInbounds(context.Background())

	var reqErr *apperrors.PanelRequestFailedError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, "/login", reqErr.Endpoint)
}

func TestPanelErrorEnvelope(t *testing.T) {
	panel := newFakePanel(t)
	panel.listResponse = `[]`

	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "3x-ui", Value: "session-token"})
		json.NewEncoder(w).Encode(map[string]interface{}{"success": true})
	})
	mux.HandleFunc("/panel/api/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":false,"msg":"client already exists"}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client := New(config.PanelConfig{User: "admin", Password: "secret", APIURL: srv.URL}, testLogger())
	err := client.AddClient(context.Background(), 1, models.Client{Email: "x"})

	var reqErr *apperrors.PanelRequestFailedError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, "client already exists", reqErr.Body)
}

func TestUnreachablePanel(t *testing.T) {
	client := New(config.PanelConfig{User: "admin", Password: "secret", APIURL: "http://127.0.0.1:1"}, testLogger())
	client.httpClient.SetRetryCount(0)

	_, err := client.ListInbounds(context.Background())

	var unreachable *apperrors.PanelUnreachableError
	assert.ErrorAs(t, err, &unreachable)
}

func TestAddClientWrapsSettingsAsString(t *testing.T) {
	panel := newFakePanel(t)
	client := panel.client()

	err := client.AddClient(context.Background(), 3, models.Client{
		ID:    "uuid-1",
		Email: "abcde--3(((Alice)))",
		SubID: "sub-alice",
	})
	require.NoError(t, err)

	var payload struct {
		ID       int    `json:"id"`
		Settings string `json:"settings"`
	}
	require.NoError(t, json.Unmarshal(panel.lastBody, &payload))
	assert.Equal(t, 3, payload.ID)

	// The settings field is a JSON string, not a nested object
	var settings models.InboundSettings
	require.NoError(t, json.Unmarshal([]byte(payload.Settings), &settings))
	require.Len(t, settings.Clients, 1)
	assert.Equal(t, "sub-alice", settings.Clients[0].SubID)
}
