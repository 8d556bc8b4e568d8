package http

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/operant/internal/logging"
	"github.com/aretw0/operant/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var leftKey = domain.Region{
	Name:      "left_choice_key",
	Bounds:    domain.Rect{X1: 150, Y1: 250, X2: 250, Y2: 350},
	HitBounds: domain.Rect{X1: 125, Y1: 225, X2: 275, Y2: 375},
}

func TestGetHealth(t *testing.T) {
	handler := NewDisplay().Handler()

	req, _ := http.NewRequest("GET", "/health", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var resp map[string]string
	err := json.Unmarshal(rr.Body.Bytes(), &resp)
	assert.NoError(t, err)
	assert.Equal(t, "ok", resp["status"])
}

func TestGetInfo(t *testing.T) {
	handler := NewDisplay(WithVersion("1.2.3")).Handler()

	req, _ := http.NewRequest("GET", "/info", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var resp map[string]string
	err := json.Unmarshal(rr.Body.Bytes(), &resp)
	assert.NoError(t, err)
	assert.Equal(t, "operant-display", resp["app"])
	assert.Equal(t, "1.2.3", resp["version"])
	assert.Equal(t, APIVersion, resp["api_version"])
}

func TestDisplay_SceneAndTouch(t *testing.T) {
	d := NewDisplay()
	handler := d.Handler()

	var touches []domain.Touch
	var background []domain.Touch
	d.OnBackgroundTouch(func(t domain.Touch) { background = append(background, t) })

	require.NoError(t, d.DrawStimulus(leftKey, domain.ShapeCircle, "green"))
	require.NoError(t, d.RegisterHitRegion(leftKey, func(t domain.Touch) { touches = append(touches, t) }))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/display", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var scene Scene
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &scene))
	require.Len(t, scene.Stimuli, 1)
	assert.Equal(t, "#00ff00", scene.Stimuli[0].Hex)
	assert.Equal(t, "left_choice_key", scene.Stimuli[0].Region.Name)

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("POST", "/touch", strings.NewReader(`{"x":200,"y":300}`)))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"region":"left_choice_key"}`, rr.Body.String())
	require.Len(t, touches, 1)
	assert.Equal(t, "left_choice_key", touches[0].Region)
	assert.Equal(t, 200.0, touches[0].X)

	// Inside the hit margin but outside the drawn key.
	assert.Equal(t, "left_choice_key", d.Touch(200, 370))

	assert.Equal(t, "", d.Touch(600, 100))
	require.Len(t, background, 1)
	assert.Equal(t, 600.0, background[0].X)

	require.NoError(t, d.ClearDisplay())
	assert.Empty(t, d.Scene().Stimuli)
	assert.Equal(t, "", d.Touch(200, 300), "regions are dropped by ClearDisplay")
	assert.Len(t, touches, 2)
	assert.Len(t, background, 2)
}

func TestDisplay_BadTouch(t *testing.T) {
	rr := httptest.NewRecorder()
	NewDisplay().Handler().ServeHTTP(rr, httptest.NewRequest("POST", "/touch", strings.NewReader("nope")))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestDisplay_SceneVersion(t *testing.T) {
	d := NewDisplay()
	v0 := d.Scene().Version
	require.NoError(t, d.DrawStimulus(leftKey, domain.ShapeCross, "darkslategrey"))
	require.NoError(t, d.ClearDisplay())
	assert.Equal(t, v0+2, d.Scene().Version)
}

func TestDisplay_Metrics(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("operant_trials_total 3\n"))
	})
	rr := httptest.NewRecorder()
	NewDisplay(WithMetricsHandler(metrics)).Handler().ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "operant_trials_total")

	rr = httptest.NewRecorder()
	NewDisplay().Handler().ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestServe(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, ln, NewDisplay().Handler(), logging.NewNop()) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
