package routes_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-vigia/analytics"
	"go-vigia/db/memory"
	"go-vigia/handlers"
	"go-vigia/incidents"
	"go-vigia/proximity"
	"go-vigia/routes"
	"go-vigia/validation"
)

func newRouter(t *testing.T) (*gin.Engine, *memory.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.NewStore(zerolog.Nop())
	bogota := time.FixedZone("-05", -5*60*60)

	r := routes.SetupRouter(routes.Deps{
		Incidents:  incidents.NewService(store, nil, zerolog.Nop()),
		Engine:     validation.NewEngine(store, zerolog.Nop()),
		Proximity:  proximity.NewService(store, zerolog.Nop()),
		Aggregator: analytics.NewAggregator(store, bogota, zerolog.Nop()),
		Reports:    store,
	})
	return r, store
}

func do(t *testing.T, r *gin.Engine, method, path, uid string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if uid != "" {
		req.Header.Set(handlers.UIDHeader, uid)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func errorKind(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	body := decode(t, w)
	errObj, ok := body["error"].(map[string]any)
	require.True(t, ok, "response has no error object: %s", w.Body.String())
	kind, _ := errObj["kind"].(string)
	return kind
}

func reportBody(title string) map[string]any {
	return map[string]any{
		"categoryGroup": "seguridad",
		"type":          "robo",
		"title":         title,
		"locality":      "Suba",
		"location":      map[string]float64{"longitude": -74.1, "latitude": 4.65},
	}
}

func createIncident(t *testing.T, r *gin.Engine, uid, title string) string {
	t.Helper()
	w := do(t, r, http.MethodPost, "/api/vigia/incidents", uid, reportBody(title))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	inc := decode(t, w)["incident"].(map[string]any)
	id, _ := inc["id"].(string)
	require.NotEmpty(t, id)
	return id
}

func TestCreateRequiresIdentityHeader(t *testing.T) {
	r, _ := newRouter(t)

	w := do(t, r, http.MethodPost, "/api/vigia/incidents", "", reportBody("x"))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "unauthenticated", errorKind(t, w))
}

func TestCreateAndFetchIncident(t *testing.T) {
	r, _ := newRouter(t)
	id := createIncident(t, r, "u1", "Robo en el parque")

	w := do(t, r, http.MethodGet, "/api/vigia/incidents/"+id, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	inc := decode(t, w)["incident"].(map[string]any)
	assert.Equal(t, "Robo en el parque", inc["title"])
	assert.Equal(t, "pending", inc["status"])
}

func TestCreateRejectsMissingTitle(t *testing.T) {
	r, _ := newRouter(t)

	body := reportBody("x")
	body["title"] = ""
	w := do(t, r, http.MethodPost, "/api/vigia/incidents", "u1", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "validation", errorKind(t, w))
}

func TestVoteFlow(t *testing.T) {
	r, _ := newRouter(t)
	id := createIncident(t, r, "reporter", "Hueco gigante")

	w := do(t, r, http.MethodPost, "/api/vigia/incidents/"+id+"/votes", "voter1", map[string]any{"vote": true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	result := decode(t, w)
	assert.Equal(t, float64(1), result["validationScore"])
	assert.Equal(t, "pending", result["status"])

	// reporter cannot vote on their own incident
	w = do(t, r, http.MethodPost, "/api/vigia/incidents/"+id+"/votes", "reporter", map[string]any{"vote": true})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "self_vote", errorKind(t, w))

	// same voter again
	w = do(t, r, http.MethodPost, "/api/vigia/incidents/"+id+"/votes", "voter1", map[string]any{"vote": true})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "duplicate_vote", errorKind(t, w))

	// non-boolean vote
	w = do(t, r, http.MethodPost, "/api/vigia/incidents/"+id+"/votes", "voter2", map[string]any{"vote": "yes"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "validation", errorKind(t, w))

	w = do(t, r, http.MethodDelete, "/api/vigia/incidents/"+id+"/votes", "voter1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(0), decode(t, w)["validationScore"])

	w = do(t, r, http.MethodDelete, "/api/vigia/incidents/"+id+"/votes", "voter1", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "no_vote", errorKind(t, w))
}

func TestVoteOnUnknownIncident(t *testing.T) {
	r, _ := newRouter(t)

	w := do(t, r, http.MethodPost, "/api/vigia/incidents/nope/votes", "voter1", map[string]any{"vote": true})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", errorKind(t, w))
}

func TestDeleteOnlyByReporterOverHTTP(t *testing.T) {
	r, _ := newRouter(t)
	id := createIncident(t, r, "u1", "Basura acumulada")

	w := do(t, r, http.MethodDelete, "/api/vigia/incidents/"+id, "u2", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "forbidden", errorKind(t, w))

	w = do(t, r, http.MethodDelete, "/api/vigia/incidents/"+id, "u1", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, r, http.MethodGet, "/api/vigia/incidents/"+id, "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestNearbyEndpoint(t *testing.T) {
	r, _ := newRouter(t)
	createIncident(t, r, "u1", "Cerca")

	path := fmt.Sprintf("/api/vigia/incidents/near?lng=%f&lat=%f&radius=500", -74.1, 4.6502)
	w := do(t, r, http.MethodGet, path, "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, float64(1), body["count"])

	// missing coordinates
	w = do(t, r, http.MethodGet, "/api/vigia/incidents/near?radius=500", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "validation", errorKind(t, w))
}

func TestListEndpointFilters(t *testing.T) {
	r, _ := newRouter(t)
	createIncident(t, r, "u1", "Uno")
	createIncident(t, r, "u1", "Dos")

	w := do(t, r, http.MethodGet, "/api/vigia/incidents?locality=Suba", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(2), decode(t, w)["count"])

	w = do(t, r, http.MethodGet, "/api/vigia/incidents?limit=abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMonthlyReportEndpoints(t *testing.T) {
	r, _ := newRouter(t)
	createIncident(t, r, "u1", "Para el informe")

	month := time.Now().In(time.FixedZone("-05", -5*60*60)).Format("2006-01")

	w := do(t, r, http.MethodPost, "/api/vigia/reports/run?month="+month, "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	run := decode(t, w)
	assert.Equal(t, month, run["month"])

	w = do(t, r, http.MethodGet, "/api/vigia/reports/"+month, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	report := decode(t, w)["report"].(map[string]any)
	assert.Equal(t, month, report["month"])

	w = do(t, r, http.MethodGet, "/api/vigia/reports/1999-01", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
