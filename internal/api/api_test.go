package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/izposoja/internal/db"
	"github.com/erazemk/izposoja/internal/inventory"
	"github.com/erazemk/izposoja/internal/model"
	"github.com/erazemk/izposoja/internal/store"
)

const testJWTSecret = "test-secret"

type testServer struct {
	t     *testing.T
	url   string
	db    *sql.DB
	token string
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()
	database := db.NewTestDB(t)
	router := NewRouter(database, testJWTSecret, inventory.NewManager(database))
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	s := &testServer{t: t, url: server.URL, db: database}
	s.createUser("admin", model.RoleAdmin)
	s.token = s.login("admin", "password")
	return s
}

func (s *testServer) createUser(username, role string) *model.User {
	s.t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.MinCost)
	require.NoError(s.t, err)
	user, err := store.CreateUser(context.Background(), s.db, username, string(hash), role)
	require.NoError(s.t, err)
	return user
}

func (s *testServer) login(username, password string) string {
	s.t.Helper()
	resp := s.do(http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": username,
		"password": password,
	})
	require.Equal(s.t, http.StatusOK, resp.StatusCode)

	var body loginResponse
	decode(s.t, resp, &body)
	require.NotEmpty(s.t, body.Token)
	return body.Token
}

// do sends a JSON request. An empty token sends no Authorization header.
func (s *testServer) do(method, path, token string, body any) *http.Response {
	s.t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, s.url+path, reader)
	require.NoError(s.t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(s.t, err)
	s.t.Cleanup(func() { resp.Body.Close() })
	return resp
}

// call sends an admin request, checks the status and decodes the response.
func (s *testServer) call(method, path string, body any, wantStatus int, out any) {
	s.t.Helper()
	resp := s.do(method, path, s.token, body)
	if resp.StatusCode != wantStatus {
		data, _ := io.ReadAll(resp.Body)
		s.t.Fatalf("%s %s: expected %d, got %d: %s", method, path, wantStatus, resp.StatusCode, data)
	}
	if out != nil {
		decode(s.t, resp, out)
	}
}

func decode(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

// stock creates a location and a product and takes in quantity labeled items.
func (s *testServer) stock(quantity int) (model.Location, model.Product, []model.Item) {
	s.t.Helper()
	var loc model.Location
	s.call(http.MethodPost, "/api/locations", map[string]string{"name": "Storage Room"}, http.StatusCreated, &loc)

	var product model.Product
	s.call(http.MethodPost, "/api/products", map[string]string{
		"name": "Arduino Uno",
		"upc":  "036000291452",
	}, http.StatusCreated, &product)

	var items []model.Item
	s.call(http.MethodPost, "/api/items", map[string]any{
		"product_id":  product.ID,
		"location_id": loc.ID,
		"quantity":    quantity,
	}, http.StatusCreated, &items)
	require.Len(s.t, items, quantity)
	return loc, product, items
}

func TestLoginEndpoint(t *testing.T) {
	s := setupTestServer(t)

	resp := s.do(http.MethodPost, "/api/auth/login", "", map[string]string{"username": "admin", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = s.do(http.MethodPost, "/api/auth/login", "", map[string]string{"username": "admin"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestLogoutRevokesToken(t *testing.T) {
	s := setupTestServer(t)

	resp := s.do(http.MethodGet, "/api/auth/me", s.token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = s.do(http.MethodPost, "/api/auth/logout", s.token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = s.do(http.MethodGet, "/api/auth/me", s.token, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRequiresAuthentication(t *testing.T) {
	s := setupTestServer(t)

	resp := s.do(http.MethodGet, "/api/items", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = s.do(http.MethodGet, "/api/items", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRoleChecks(t *testing.T) {
	s := setupTestServer(t)
	s.createUser("student", model.RoleUser)
	token := s.login("student", "password")

	resp := s.do(http.MethodGet, "/api/locations", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = s.do(http.MethodPost, "/api/locations", token, map[string]string{"name": "Lab"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = s.do(http.MethodPost, "/api/scan", token, map[string]string{"payload": "x", "action": "lookup"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = s.do(http.MethodGet, "/api/users", token, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestCheckoutFlow(t *testing.T) {
	s := setupTestServer(t)
	borrower := s.createUser("student", model.RoleUser)
	loc, _, items := s.stock(2)
	uuid := items[0].UUID
	require.NotEmpty(t, uuid)

	var scan inventory.ScanResult
	s.call(http.MethodPost, "/api/scan", map[string]any{
		"payload": uuid,
		"action":  "checkout",
		"user_id": borrower.ID,
	}, http.StatusOK, &scan)
	require.True(t, scan.Success, scan.Message)
	require.Equal(t, model.ItemStatusCheckedOut, scan.Item.Status)

	var details inventory.EquipmentDetails
	s.call(http.MethodGet, "/api/equipment/"+uuid, nil, http.StatusOK, &details)
	assert.Equal(t, model.ItemStatusCheckedOut, details.Item.Status)
	assert.Equal(t, borrower.ID, *details.Item.CurrentUserID)
	assert.Equal(t, 1, details.CheckoutCount)

	var res inventory.Result
	s.call(http.MethodPost, "/api/equipment/"+uuid+"/assign", map[string]any{}, http.StatusOK, &res)
	assert.Equal(t, model.ItemStatusInTransit, res.Item.Status)
	assert.Nil(t, res.Item.CurrentUserID)
	assert.Nil(t, res.Item.LocationID)

	s.call(http.MethodPost, "/api/equipment/"+uuid+"/assign", map[string]any{"location_id": loc.ID}, http.StatusOK, &res)
	assert.Equal(t, model.ItemStatusAvailable, res.Item.Status)
	assert.Equal(t, loc.ID, *res.Item.LocationID)

	var txs []model.Transaction
	s.call(http.MethodGet, fmt.Sprintf("/api/transactions?item_id=%d", res.Item.ID), nil, http.StatusOK, &txs)
	assert.Len(t, txs, 4)
	assert.Equal(t, model.TransactionCheckout, txs[2].Type)

	var list []model.Item
	s.call(http.MethodGet, "/api/items?status=available", nil, http.StatusOK, &list)
	assert.Len(t, list, 2)
}

func TestAssignRejectsUserAndLocation(t *testing.T) {
	s := setupTestServer(t)
	loc, _, items := s.stock(1)

	resp := s.do(http.MethodPost, "/api/equipment/"+items[0].UUID+"/assign", s.token, map[string]any{
		"user_id":     1,
		"location_id": loc.ID,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestInventoryErrorsMapToStatus(t *testing.T) {
	s := setupTestServer(t)
	_, _, items := s.stock(1)
	uuid := items[0].UUID

	var body map[string]string
	s.call(http.MethodGet, "/api/equipment/00000000-0000-4000-8000-000000000999", nil, http.StatusNotFound, &body)
	assert.Equal(t, inventory.CodeItemNotFound, body["code"])

	s.call(http.MethodGet, "/api/equipment/not-a-uuid", nil, http.StatusBadRequest, &body)
	assert.Equal(t, inventory.CodeInvalidInput, body["code"])

	s.call(http.MethodPost, "/api/equipment/"+uuid+"/remove", map[string]string{"notes": "broken"}, http.StatusOK, nil)
	s.call(http.MethodPost, "/api/equipment/"+uuid+"/remove", nil, http.StatusConflict, &body)
	assert.Equal(t, inventory.CodeAlreadyRemoved, body["code"])
}

func TestScanReportsErrorCode(t *testing.T) {
	s := setupTestServer(t)

	var scan inventory.ScanResult
	s.call(http.MethodPost, "/api/scan", map[string]string{
		"payload": "00000000-0000-4000-8000-000000000999",
		"action":  "lookup",
	}, http.StatusOK, &scan)
	assert.False(t, scan.Success)
	assert.Equal(t, inventory.CodeItemNotFound, scan.ErrorCode)

	s.call(http.MethodPost, "/api/scan", map[string]string{
		"payload": "12",
		"type":    "upc",
		"action":  "lookup",
	}, http.StatusOK, &scan)
	assert.Equal(t, inventory.CodeInvalidUPCFormat, scan.ErrorCode)

	s.call(http.MethodPost, "/api/scan", map[string]string{
		"payload": "036000291452",
		"type":    "code128",
		"action":  "lookup",
	}, http.StatusOK, &scan)
	assert.Equal(t, inventory.CodeInvalidBarcodeType, scan.ErrorCode)

	resp := s.do(http.MethodPost, "/api/scan", s.token, map[string]string{"payload": "x", "action": "steal"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestValidationErrorNamesFields(t *testing.T) {
	s := setupTestServer(t)

	var body struct {
		Fields map[string]string `json:"fields"`
	}
	s.call(http.MethodPost, "/api/items", map[string]any{"product_id": 1, "location_id": 1, "quantity": 0},
		http.StatusUnprocessableEntity, &body)
	assert.Equal(t, "required", body.Fields["quantity"])

	s.call(http.MethodPost, "/api/items/pregenerate", map[string]any{"count": 501},
		http.StatusUnprocessableEntity, &body)
	assert.Equal(t, "lte", body.Fields["count"])
}

func TestLabelQueueFlow(t *testing.T) {
	s := setupTestServer(t)
	_, _, items := s.stock(2)

	var count map[string]int
	s.call(http.MethodGet, "/api/labels/queue/count", nil, http.StatusOK, &count)
	assert.Equal(t, 2, count["count"])

	var entries []model.QueueEntry
	s.call(http.MethodGet, "/api/labels/queue", nil, http.StatusOK, &entries)
	require.Len(t, entries, 2)

	var body map[string]string
	s.call(http.MethodPost, "/api/labels/queue", map[string]any{"item_id": items[0].ID}, http.StatusConflict, &body)
	assert.Equal(t, inventory.CodeAlreadyQueued, body["code"])

	resp := s.do(http.MethodGet, "/api/labels/sheet.pdf", s.token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	pdf, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF")))

	s.call(http.MethodPost, "/api/labels/printed", map[string]any{"ids": []int64{entries[0].ID, entries[1].ID}}, http.StatusOK, nil)
	s.call(http.MethodGet, "/api/labels/queue/count", nil, http.StatusOK, &count)
	assert.Equal(t, 0, count["count"])

	resp = s.do(http.MethodGet, "/api/labels/sheet.pdf", s.token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	s.call(http.MethodPost, "/api/labels/printed", map[string]any{"ids": []int64{entries[0].ID}}, http.StatusNotFound, &body)
}

func TestPregenerateAndBind(t *testing.T) {
	s := setupTestServer(t)
	loc, product, _ := s.stock(1)

	var items []model.Item
	s.call(http.MethodPost, "/api/items/pregenerate", map[string]int{"count": 3}, http.StatusCreated, &items)
	require.Len(t, items, 3)
	assert.Nil(t, items[0].ProductID)

	var res inventory.Result
	s.call(http.MethodPost, "/api/items/"+items[0].UUID+"/bind", map[string]int64{
		"product_id":  product.ID,
		"location_id": loc.ID,
	}, http.StatusOK, &res)
	assert.Equal(t, product.ID, *res.Item.ProductID)
	assert.Equal(t, model.ItemStatusAvailable, res.Item.Status)
}

func TestReassignUUID(t *testing.T) {
	s := setupTestServer(t)
	_, _, items := s.stock(1)
	old := items[0].UUID

	var res inventory.Result
	s.call(http.MethodPost, "/api/equipment/"+old+"/reassign-uuid", map[string]string{"notes": "label torn"}, http.StatusOK, &res)
	assert.NotEqual(t, old, res.Item.UUID)

	var body map[string]string
	s.call(http.MethodGet, "/api/equipment/"+old, nil, http.StatusNotFound, &body)
	assert.Equal(t, inventory.CodeItemNotFound, body["code"])
}

func TestConditionAndNotes(t *testing.T) {
	s := setupTestServer(t)
	_, _, items := s.stock(1)
	uuid := items[0].UUID

	var res inventory.Result
	s.call(http.MethodPut, "/api/equipment/"+uuid+"/condition", map[string]string{
		"condition": "poor",
		"status":    "maintenance",
	}, http.StatusOK, &res)
	assert.Equal(t, model.ConditionPoor, res.Item.ConditionStatus)
	assert.Equal(t, model.ItemStatusMaintenance, res.Item.Status)

	resp := s.do(http.MethodPut, "/api/equipment/"+uuid+"/condition", s.token, map[string]string{"status": "removed"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	s.call(http.MethodPut, "/api/equipment/"+uuid+"/notes", map[string]string{"notes": "sticky button"}, http.StatusOK, &res)
	assert.Equal(t, "sticky button", res.Item.ConditionNotes)
}

func TestProductUPCAndDelete(t *testing.T) {
	s := setupTestServer(t)
	_, product, _ := s.stock(1)

	resp := s.do(http.MethodPost, "/api/products", s.token, map[string]string{"name": "Dup", "upc": "036000291452"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = s.do(http.MethodPost, "/api/products", s.token, map[string]string{"name": "Bad", "upc": "12"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = s.do(http.MethodDelete, fmt.Sprintf("/api/products/%d", product.ID), s.token, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	var updated model.Product
	s.call(http.MethodPut, fmt.Sprintf("/api/products/%d", product.ID), map[string]any{
		"name":   "Arduino Uno R3",
		"active": false,
	}, http.StatusOK, &updated)
	assert.Equal(t, "Arduino Uno R3", updated.Name)
	assert.False(t, updated.Active)
	assert.Equal(t, "036000291452", updated.UPC)
}

func TestProductPhoto(t *testing.T) {
	s := setupTestServer(t)
	_, product, _ := s.stock(1)

	img := image.NewRGBA(image.Rect(0, 0, 40, 20))
	for x := range 40 {
		for y := range 20 {
			img.Set(x, y, color.RGBA{0, 128, 255, 255})
		}
	}
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("image", "photo.png")
	require.NoError(t, err)
	require.NoError(t, png.Encode(fw, img))
	require.NoError(t, mw.Close())

	path := fmt.Sprintf("%s/api/products/%d/photo", s.url, product.ID)
	req, err := http.NewRequest(http.MethodPut, path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+s.token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = s.do(http.MethodGet, fmt.Sprintf("/api/products/%d/photo", product.ID), s.token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/jpeg", resp.Header.Get("Content-Type"))

	// Labels for this product now carry a thumbnail.
	resp = s.do(http.MethodGet, "/api/labels/sheet.pdf", s.token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestLocationDeleteGuard(t *testing.T) {
	s := setupTestServer(t)
	loc, _, _ := s.stock(1)

	resp := s.do(http.MethodDelete, fmt.Sprintf("/api/locations/%d", loc.ID), s.token, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	var empty model.Location
	s.call(http.MethodPost, "/api/locations", map[string]string{"name": "Empty"}, http.StatusCreated, &empty)
	s.call(http.MethodDelete, fmt.Sprintf("/api/locations/%d", empty.ID), nil, http.StatusOK, nil)
	s.call(http.MethodGet, fmt.Sprintf("/api/locations/%d", empty.ID), nil, http.StatusNotFound, nil)
}

func TestUsersEmail(t *testing.T) {
	s := setupTestServer(t)

	var user model.User
	s.call(http.MethodPost, "/api/users", map[string]string{
		"username": "student",
		"password": "longenough",
		"role":     model.RoleUser,
		"email":    "student@example.com",
	}, http.StatusCreated, &user)
	assert.Equal(t, "student@example.com", user.Email)

	s.call(http.MethodPut, fmt.Sprintf("/api/users/%d", user.ID), map[string]string{"email": "new@example.com"}, http.StatusOK, &user)
	assert.Equal(t, "new@example.com", user.Email)
	assert.Equal(t, model.RoleUser, user.Role)

	resp := s.do(http.MethodPut, fmt.Sprintf("/api/users/%d", user.ID), s.token, map[string]string{"email": "nope"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = s.do(http.MethodPost, "/api/users", s.token, map[string]string{
		"username": "x", "password": "longenough", "role": "superuser",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}
