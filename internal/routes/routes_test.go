package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"route_planner/internal/config"
	"route_planner/internal/controllers"
	"route_planner/internal/draft"
	"route_planner/internal/geocode"
	"route_planner/internal/repository"
	"route_planner/internal/stopflow"
	"route_planner/internal/storage"
	"route_planner/internal/testutil"
)

type server struct {
	r         *gin.Engine
	db        *gorm.DB
	repo      *repository.Repository
	uploadDir string
}

func newServer(t *testing.T) *server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.NewDB(t)
	config.DB = db

	drafts, err := draft.OpenInMemory(time.Hour)
	require.NoError(t, err)
	t.Cleanup(func() { _ = drafts.Close() })

	dir := t.TempDir()
	uploads, err := storage.NewDiskUploader(dir, "http://test/uploads")
	require.NoError(t, err)

	repo := repository.New(db)
	flow := stopflow.New(stopflow.Deps{
		Drafts:       drafts,
		Routes:       repo,
		Parties:      repo,
		Addresses:    geocode.Disabled{},
		Blobs:        uploads,
		Stops:        repo,
		Requirements: repo,
		Payments:     repo,
		Photos:       repo,
	})
	r := SetupRouter(Options{Stops: controllers.NewStopController(flow, repo), UploadDir: dir})
	return &server{r: r, db: db, repo: repo, uploadDir: dir}
}

func (s *server) send(t *testing.T, req *http.Request, token string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.r.ServeHTTP(w, req)
	var body map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	}
	return w, body
}

func (s *server) do(t *testing.T, method, path, token string, payload any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(payload))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return s.send(t, req, token)
}

func (s *server) upload(t *testing.T, path, token, source, filename string, data []byte) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("source", source))
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPut, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return s.send(t, req, token)
}

// signup registers a user and returns its token and business id.
func (s *server) signup(t *testing.T, payload map[string]any) (string, uint) {
	t.Helper()
	w, body := s.do(t, http.MethodPost, "/api/auth/signup", "", payload)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	user := body["user"].(map[string]any)
	return body["token"].(string), uint(user["business_id"].(float64))
}

func (s *server) owner(t *testing.T, email string) (string, uint) {
	return s.signup(t, map[string]any{
		"name":          "Olive Owner",
		"email":         email,
		"password":      "correct-horse",
		"role":          "owner",
		"business_name": "Acme Deliveries",
	})
}

func (s *server) createRoute(t *testing.T, token, name string) uint {
	t.Helper()
	w, body := s.do(t, http.MethodPost, "/api/routes", token, map[string]any{"name": name})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return uint(body["route"].(map[string]any)["ID"].(float64))
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 6))
	img.Set(1, 1, color.RGBA{G: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestHealthz(t *testing.T) {
	s := newServer(t)
	w, body := s.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", body["status"])
}

func TestSignupAndLogin(t *testing.T) {
	s := newServer(t)
	_, businessID := s.owner(t, "Olive@Acme.test")
	assert.NotZero(t, businessID)

	w, body := s.do(t, http.MethodPost, "/api/auth/login", "", map[string]any{
		"email": "olive@acme.test", "password": "correct-horse",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, body["token"])
	user := body["user"].(map[string]any)
	assert.Equal(t, "owner", user["role"])
	assert.Equal(t, "Acme Deliveries", user["business"].(map[string]any)["name"])

	w, _ = s.do(t, http.MethodPost, "/api/auth/login", "", map[string]any{
		"email": "olive@acme.test", "password": "wrong-horse",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	t.Run("dispatcher needs a business", func(t *testing.T) {
		w, _ := s.do(t, http.MethodPost, "/api/auth/signup", "", map[string]any{
			"name": "Dee", "email": "dee@acme.test", "password": "correct-horse", "role": "dispatcher",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)

		w, _ = s.do(t, http.MethodPost, "/api/auth/signup", "", map[string]any{
			"name": "Dee", "email": "dee@acme.test", "password": "correct-horse", "role": "dispatcher",
			"business_id": businessID + 100,
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)

		_, joined := s.signup(t, map[string]any{
			"name": "Dee", "email": "dee@acme.test", "password": "correct-horse", "role": "dispatcher",
			"business_id": businessID,
		})
		assert.Equal(t, businessID, joined)
	})

	t.Run("unknown role", func(t *testing.T) {
		w, _ := s.do(t, http.MethodPost, "/api/auth/signup", "", map[string]any{
			"name": "Ad", "email": "ad@acme.test", "password": "correct-horse", "role": "admin",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestRouteCRUD(t *testing.T) {
	s := newServer(t)
	token, _ := s.owner(t, "olive@acme.test")

	line := `{"type":"LineString","coordinates":[[-89.65,39.78],[-89.6,39.8]]}`
	w, body := s.do(t, http.MethodPost, "/api/routes", token, map[string]any{"name": "North loop", "geometry": line})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	route := body["route"].(map[string]any)
	assert.Contains(t, route["geometry"], "LineString")
	id := uint(route["ID"].(float64))

	w, _ = s.do(t, http.MethodPost, "/api/routes", token, map[string]any{"name": "Bad", "geometry": "{nope"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, body = s.do(t, http.MethodGet, "/api/routes", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["routes"], 1)

	w, body = s.do(t, http.MethodPut, fmt.Sprintf("/api/routes/%d", id), token, map[string]any{"name": "South loop"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "South loop", body["route"].(map[string]any)["name"])

	w, _ = s.do(t, http.MethodDelete, fmt.Sprintf("/api/routes/%d", id), token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w, _ = s.do(t, http.MethodGet, fmt.Sprintf("/api/routes/%d", id), token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = s.do(t, http.MethodGet, "/api/routes", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestStopDraftFlow(t *testing.T) {
	s := newServer(t)
	token, _ := s.owner(t, "olive@acme.test")
	routeID := s.createRoute(t, token, "Tuesday North")
	base := fmt.Sprintf("/api/routes/%d/draft", routeID)

	w, body := s.do(t, http.MethodPost, "/api/customers", token, map[string]any{
		"contact": map[string]any{"name": "Jane Doe", "phone": "555-0100"},
		"address": map[string]any{"address_line1": "12 Elm St", "city": "Springfield", "region": "IL"},
		"lat":     39.78,
		"lng":     -89.65,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	customerID := body["customer"].(map[string]any)["ID"].(float64)

	w, _ = s.do(t, http.MethodPut, base+"/schedule", token, map[string]any{})
	assert.Equal(t, http.StatusConflict, w.Code, "schedule before identity")

	w, _ = s.do(t, http.MethodPut, base+"/identity", token, map[string]any{
		"stop_type": "delivery", "party_mode": "customer", "party_id": customerID + 50,
	})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, body = s.do(t, http.MethodPut, base+"/identity", token, map[string]any{
		"stop_type": "delivery", "party_mode": "customer", "party_id": customerID,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	identity := body["identity"].(map[string]any)
	assert.Equal(t, customerID, identity["customer_id"])
	assert.Equal(t, "Springfield", identity["address"].(map[string]any)["city"])
	assert.NotNil(t, identity["coordinates"])

	w, _ = s.do(t, http.MethodPut, base+"/schedule", token, map[string]any{
		"window": map[string]any{"hard_window": true, "window_start": "09:00"},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	for _, amount := range []string{"NaN", "Inf", "-3"} {
		w, _ = s.do(t, http.MethodPut, base+"/schedule", token, map[string]any{
			"payment": map[string]any{"expected": true, "amount": amount},
		})
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code, "amount %s", amount)
	}

	w, body = s.do(t, http.MethodPut, base+"/schedule", token, map[string]any{
		"position":     map[string]any{"mode": "start"},
		"window":       map[string]any{"window_start": "09:00", "window_end": "11:30", "hard_window": true},
		"requirements": map[string]any{"checlist_required": true, "signature": true},
		"access":       map[string]any{"access_code": "4411", "notes": "Side door"},
		"payment":      map[string]any{"expected": true, "amount": "12.50", "method": "cash"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.EqualValues(t, 1, body["schedule"].(map[string]any)["sequence"])

	w, body = s.upload(t, base+"/photos/invoice/0", token, "camera", "invoice.png", pngBytes(t))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	invoice := body["photos"].(map[string]any)["invoice"].([]any)[0].(map[string]any)
	assert.True(t, strings.HasPrefix(invoice["url"].(string), "http://test/uploads/"))
	assert.Equal(t, "image/png", invoice["mime_type"])
	assert.EqualValues(t, 8, invoice["width"])

	w, _ = s.upload(t, base+"/photos/other/0", token, "gallery", "notes.txt", []byte("not a picture"))
	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
	w, _ = s.upload(t, base+"/photos/other/0", token, "scanner", "x.png", pngBytes(t))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w, _ = s.upload(t, base+"/photos/other/3", token, "camera", "x.png", pngBytes(t))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, body = s.do(t, http.MethodPost, base+"/photos/other", token, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Len(t, body["photos"].(map[string]any)["other"], 2)

	w, body = s.do(t, http.MethodPost, base+"/submit", token, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	result := body["result"].(map[string]any)
	assert.EqualValues(t, 1, result["sequence"])
	assert.EqualValues(t, 1, result["photos_created"])
	assert.Empty(t, result["photo_failures"])

	w, body = s.do(t, http.MethodGet, fmt.Sprintf("/api/routes/%d/stops", routeID), token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	stops := body["stops"].([]any)
	require.Len(t, stops, 1)
	stop := stops[0].(map[string]any)
	assert.Equal(t, "delivery", stop["stop_type"])
	assert.Equal(t, "Side door", stop["notes"])
	assert.Equal(t, 39.78, stop["lat"])
	req := stop["requirement"].(map[string]any)
	assert.Equal(t, true, req["checklist_required"])
	assert.Equal(t, true, req["signature_required"])
	assert.Equal(t, false, req["give_invoice"])
	assert.Equal(t, "4411", req["access_code"])
	pay := stop["payment"].(map[string]any)
	assert.Equal(t, 12.5, pay["amount"])
	assert.Equal(t, "USD", pay["currency"])
	assert.Equal(t, "pending", pay["status"])
	assert.Len(t, stop["photos"], 1)

	entries, err := os.ReadDir(s.uploadDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	w, _ = s.do(t, http.MethodGet, base+"/identity", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code, "draft is cleared after submit")
}

func TestOneTimeIdentityFromSuggestionText(t *testing.T) {
	s := newServer(t)
	token, _ := s.owner(t, "olive@acme.test")
	base := fmt.Sprintf("/api/routes/%d/draft", s.createRoute(t, token, "r"))

	w, _ := s.do(t, http.MethodPut, base+"/identity", token, map[string]any{
		"stop_type": "pickup", "party_mode": "one_time",
		"contact":    map[string]any{"name": "Walk-in"},
		"suggestion": map[string]any{"text": "Springfield"},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, body := s.do(t, http.MethodPut, base+"/identity", token, map[string]any{
		"stop_type": "pickup", "party_mode": "one_time",
		"contact":    map[string]any{"name": "Walk-in"},
		"suggestion": map[string]any{"text": "1 Main St, Springfield, IL, US"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	identity := body["identity"].(map[string]any)
	addr := identity["address"].(map[string]any)
	assert.Equal(t, "1 Main St", addr["line1"])
	assert.Equal(t, "US", addr["country_code"])
	assert.Nil(t, identity["coordinates"], "geocoding is disabled")
	assert.Equal(t, "Walk-in", identity["contact"].(map[string]any)["name"])

	w, _ = s.do(t, http.MethodDelete, base, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w, _ = s.do(t, http.MethodGet, base+"/identity", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDraftAccessControl(t *testing.T) {
	s := newServer(t)
	token, businessID := s.owner(t, "olive@acme.test")
	routeID := s.createRoute(t, token, "r")
	path := fmt.Sprintf("/api/routes/%d/draft/identity", routeID)

	driver, _ := s.signup(t, map[string]any{
		"name": "Dan", "email": "dan@acme.test", "password": "correct-horse", "role": "driver",
		"business_id": businessID,
	})
	w, _ := s.do(t, http.MethodGet, path, driver, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w, _ = s.do(t, http.MethodGet, fmt.Sprintf("/api/routes/%d/stops", routeID), driver, nil)
	assert.Equal(t, http.StatusOK, w.Code, "drivers can read stops")

	rival, _ := s.owner(t, "rival@other.test")
	w, _ = s.do(t, http.MethodGet, path, rival, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStopMaintenance(t *testing.T) {
	s := newServer(t)
	token, _ := s.owner(t, "olive@acme.test")
	routeID := s.createRoute(t, token, "r")

	ids := make([]uint, 0, 3)
	for _, name := range []string{"a", "b", "c"} {
		id, err := s.repo.CreateStop(context.Background(), stopflow.StopPayload{
			RouteID:  routeID,
			Sequence: len(ids) + 1,
			StopType: stopflow.StopService,
			Address:  stopflow.Address{Line1: "1 Main St", City: "Springfield", Region: "IL"},
			Notes:    name,
		})
		require.NoError(t, err)
		ids = append(ids, id)
	}

	order := func() []string {
		_, body := s.do(t, http.MethodGet, fmt.Sprintf("/api/routes/%d/stops", routeID), token, nil)
		var out []string
		for _, st := range body["stops"].([]any) {
			out = append(out, st.(map[string]any)["notes"].(string))
		}
		return out
	}

	w, body := s.do(t, http.MethodPatch, fmt.Sprintf("/api/stops/%d", ids[2]), token, map[string]any{"sequence": 1})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.EqualValues(t, 1, body["stop"].(map[string]any)["sequence"])
	assert.Equal(t, []string{"c", "a", "b"}, order())

	w, _ = s.do(t, http.MethodPatch, fmt.Sprintf("/api/stops/%d", ids[0]), token, map[string]any{"window_start": "9am"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = s.do(t, http.MethodDelete, fmt.Sprintf("/api/stops/%d", ids[2]), token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"a", "b"}, order())

	rival, _ := s.owner(t, "rival@other.test")
	w, _ = s.do(t, http.MethodDelete, fmt.Sprintf("/api/stops/%d", ids[0]), rival, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBusinessProfile(t *testing.T) {
	s := newServer(t)
	token, businessID := s.owner(t, "olive@acme.test")

	w, body := s.do(t, http.MethodGet, "/api/business", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Acme Deliveries", body["business"].(map[string]any)["name"])

	w, body = s.do(t, http.MethodPut, "/api/business", token, map[string]any{"phone": "555-0199"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "555-0199", body["business"].(map[string]any)["phone"])

	dispatcher, _ := s.signup(t, map[string]any{
		"name": "Dee", "email": "dee@acme.test", "password": "correct-horse", "role": "dispatcher",
		"business_id": businessID,
	})
	w, _ = s.do(t, http.MethodPut, "/api/business", dispatcher, map[string]any{"phone": "1"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAddressEndpointsWithoutGeocoder(t *testing.T) {
	s := newServer(t)
	token, _ := s.owner(t, "olive@acme.test")

	w, body := s.do(t, http.MethodGet, "/api/address/autocomplete?q=12+Elm", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, body["suggestions"])

	w, _ = s.do(t, http.MethodGet, "/api/address/geocode?q=12+Elm", token, nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	w, _ = s.do(t, http.MethodGet, "/api/address/geocode", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
