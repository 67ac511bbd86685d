package api

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/arzenal/internal/apperr"
	"github.com/erazemk/arzenal/internal/auth"
	"github.com/erazemk/arzenal/internal/db"
	"github.com/erazemk/arzenal/internal/model"
	"github.com/erazemk/arzenal/internal/store"
)

const (
	testJWTSecret = "test-secret"
	testPassword  = "password123"
)

type testEnv struct {
	t      *testing.T
	server *httptest.Server
	db     *sql.DB
	ftl    *model.Base
	ftb    *model.Base
	rifle  *model.EquipmentType
	ammo   *model.EquipmentType
	admin  string
}

func setupTestServer(t *testing.T) *testEnv {
	t.Helper()
	database := db.NewTestDB(t)
	server := httptest.NewServer(NewRouter(database, testJWTSecret, Options{TokenTTL: time.Hour}))
	t.Cleanup(server.Close)

	ctx := context.Background()
	now := time.Now().UTC()
	ftl, err := store.CreateBase(ctx, database, "Fort Liberty", "FTL", "NC", now)
	require.NoError(t, err)
	ftb, err := store.CreateBase(ctx, database, "Fort Bragg", "FTB", "NC", now)
	require.NoError(t, err)
	rifle, err := store.CreateEquipmentType(ctx, database, "M4 Carbine", "M4", model.CategoryWeapon, "", now)
	require.NoError(t, err)
	ammo, err := store.CreateEquipmentType(ctx, database, "5.56mm", "556", model.CategoryAmmunition, "", now)
	require.NoError(t, err)

	env := &testEnv{t: t, server: server, db: database, ftl: ftl, ftb: ftb, rifle: rifle, ammo: ammo}
	env.createUser("admin", model.RoleAdmin, nil)
	env.admin = env.login("admin")
	return env
}

func (e *testEnv) createUser(username, role string, baseID *int64) *model.User {
	e.t.Helper()
	hash, err := auth.HashPassword(testPassword)
	require.NoError(e.t, err)
	u, err := store.CreateUser(context.Background(), e.db, username, hash, "", role, baseID, time.Now().UTC())
	require.NoError(e.t, err)
	return u
}

func (e *testEnv) login(username string) string {
	e.t.Helper()
	resp := e.do(http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": username,
		"password": testPassword,
	})
	require.Equal(e.t, http.StatusOK, resp.StatusCode)

	var body loginResponse
	decodeBody(e.t, resp, &body)
	require.NotEmpty(e.t, body.Token)
	return body.Token
}

func (e *testEnv) do(method, path, token string, body any) *http.Response {
	e.t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(e.t, err)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, e.server.URL+path, reader)
	require.NoError(e.t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(e.t, err)
	e.t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, target any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(target))
}

func (e *testEnv) createAsset(token string, baseID, typeID int64, qty int) *model.Asset {
	e.t.Helper()
	resp := e.do(http.MethodPost, "/api/assets", token, map[string]any{
		"base_id":           baseID,
		"equipment_type_id": typeID,
		"quantity":          qty,
	})
	require.Equal(e.t, http.StatusCreated, resp.StatusCode)
	var a model.Asset
	decodeBody(e.t, resp, &a)
	return &a
}

func TestLoginEndpoint(t *testing.T) {
	env := setupTestServer(t)

	resp := env.do(http.MethodPost, "/api/auth/login", "", map[string]string{"username": "admin", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = env.do(http.MethodPost, "/api/auth/login", "", map[string]string{"username": "nobody", "password": testPassword})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = env.do(http.MethodPost, "/api/auth/login", "", map[string]string{"username": "admin"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(http.MethodGet, "/api/auth/me", env.admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var me model.User
	decodeBody(t, resp, &me)
	assert.Equal(t, "admin", me.Username)
	assert.Equal(t, model.RoleAdmin, me.Role)
}

func TestUnauthenticatedAccess(t *testing.T) {
	env := setupTestServer(t)

	for _, path := range []string{"/api/assets", "/api/transfers", "/api/dashboard/metrics", "/api/bases"} {
		resp := env.do(http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, path)
	}

	resp := env.do(http.MethodGet, "/api/assets", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLogoutRevokesToken(t *testing.T) {
	env := setupTestServer(t)

	resp := env.do(http.MethodPost, "/api/auth/logout", env.admin, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = env.do(http.MethodGet, "/api/auth/me", env.admin, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// A fresh login still works.
	token := env.login("admin")
	resp = env.do(http.MethodGet, "/api/auth/me", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestDeletedUserTokenRejected(t *testing.T) {
	env := setupTestServer(t)
	u := env.createUser("logi", model.RoleLogisticsOfficer, nil)
	token := env.login("logi")

	resp := env.do(http.MethodDelete, fmt.Sprintf("/api/users/%d", u.ID), env.admin, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = env.do(http.MethodGet, "/api/assets", token, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestChangePassword(t *testing.T) {
	env := setupTestServer(t)

	resp := env.do(http.MethodPut, "/api/auth/password", env.admin, map[string]string{
		"current_password": "wrong-one",
		"new_password":     "another-secret",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = env.do(http.MethodPut, "/api/auth/password", env.admin, map[string]string{
		"current_password": testPassword,
		"new_password":     "short",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(http.MethodPut, "/api/auth/password", env.admin, map[string]string{
		"current_password": testPassword,
		"new_password":     "another-secret",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(http.MethodPost, "/api/auth/login", "", map[string]string{"username": "admin", "password": "another-secret"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestUsersAPI(t *testing.T) {
	env := setupTestServer(t)

	// Commanders need a home base.
	resp := env.do(http.MethodPost, "/api/users", env.admin, map[string]any{
		"username": "cmdr", "password": testPassword, "role": model.RoleBaseCommander,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(http.MethodPost, "/api/users", env.admin, map[string]any{
		"username": "cmdr", "password": testPassword, "role": model.RoleBaseCommander, "base_id": env.ftl.ID,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = env.do(http.MethodPost, "/api/users", env.admin, map[string]any{
		"username": "cmdr", "password": testPassword, "role": model.RoleUser, "base_id": env.ftl.ID,
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	env.createUser("other", model.RoleUser, &env.ftb.ID)

	// The commander only sees users of their own base.
	cmdr := env.login("cmdr")
	resp = env.do(http.MethodGet, "/api/users", cmdr, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var users []model.User
	decodeBody(t, resp, &users)
	require.Len(t, users, 1)
	assert.Equal(t, "cmdr", users[0].Username)

	resp = env.do(http.MethodPost, "/api/users", cmdr, map[string]any{
		"username": "x", "password": testPassword, "role": model.RoleUser, "base_id": env.ftl.ID,
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestBasesAPI(t *testing.T) {
	env := setupTestServer(t)
	soldier := env.createUser("soldier", model.RoleUser, &env.ftl.ID)
	token := env.login(soldier.Username)

	resp := env.do(http.MethodGet, "/api/bases", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var bases []model.Base
	decodeBody(t, resp, &bases)
	assert.Len(t, bases, 2)

	resp = env.do(http.MethodPost, "/api/bases", token, map[string]string{"name": "Camp X", "code": "CX"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = env.do(http.MethodPost, "/api/bases", env.admin, map[string]string{"name": "Camp X", "code": "ftl"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode, "codes are normalized to upper case")

	// FTL is the soldier's home base.
	resp = env.do(http.MethodDelete, fmt.Sprintf("/api/bases/%d", env.ftl.ID), env.admin, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = env.do(http.MethodGet, "/api/bases/999", env.admin, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestTransferFlowOverHTTP(t *testing.T) {
	env := setupTestServer(t)
	env.createUser("cmdr-ftb", model.RoleBaseCommander, &env.ftb.ID)
	cmdr := env.login("cmdr-ftb")

	rifle := env.createAsset(env.admin, env.ftl.ID, env.rifle.ID, 1)
	assert.Equal(t, "A001", rifle.SerialNumber)

	resp := env.do(http.MethodPost, "/api/transfers", env.admin, map[string]any{
		"from_base_id":      env.ftl.ID,
		"to_base_id":        env.ftb.ID,
		"equipment_type_id": env.rifle.ID,
		"quantity":          1,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var tr model.Transfer
	decodeBody(t, resp, &tr)
	assert.Equal(t, model.TransferInitiated, tr.Status)
	assert.NotEmpty(t, tr.Ref)
	path := fmt.Sprintf("/api/transfers/%d", tr.ID)

	// The destination commander cannot approve.
	resp = env.do(http.MethodPost, path+"/approve", cmdr, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = env.do(http.MethodPost, path+"/approve", env.admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &tr)
	assert.Equal(t, model.TransferInTransit, tr.Status)

	resp = env.do(http.MethodPost, path+"/approve", env.admin, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = env.do(http.MethodPost, path+"/complete", cmdr, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &tr)
	assert.Equal(t, model.TransferCompleted, tr.Status)

	resp = env.do(http.MethodGet, fmt.Sprintf("/api/assets/%d", rifle.ID), cmdr, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var moved model.Asset
	decodeBody(t, resp, &moved)
	assert.Equal(t, env.ftb.ID, moved.BaseID)
	assert.Equal(t, model.AssetAvailable, moved.Status)

	resp = env.do(http.MethodDelete, path, env.admin, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode, "completed transfers are retained")
}

func TestInsufficientSupplyResponse(t *testing.T) {
	env := setupTestServer(t)
	env.createAsset(env.admin, env.ftl.ID, env.ammo.ID, 40)

	resp := env.do(http.MethodPost, "/api/transfers", env.admin, map[string]any{
		"from_base_id":      env.ftl.ID,
		"to_base_id":        env.ftb.ID,
		"equipment_type_id": env.ammo.ID,
		"quantity":          50,
	})
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	var body errorResponse
	decodeBody(t, resp, &body)
	assert.Equal(t, apperr.KindInsufficientSupply, body.Kind)
	require.NotNil(t, body.Requested)
	require.NotNil(t, body.Available)
	assert.Equal(t, 50, *body.Requested)
	assert.Equal(t, 40, *body.Available)
}

func TestErrorKindsOverHTTP(t *testing.T) {
	env := setupTestServer(t)
	soldier := env.createUser("soldier", model.RoleUser, &env.ftl.ID)
	userToken := env.login(soldier.Username)
	asset := env.createAsset(env.admin, env.ftl.ID, env.rifle.ID, 1)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		body   any
		status int
		kind   apperr.Kind
	}{
		{"same base", http.MethodPost, "/api/transfers", env.admin, map[string]any{
			"from_base_id": env.ftl.ID, "to_base_id": env.ftl.ID, "equipment_type_id": env.rifle.ID, "quantity": 1,
		}, http.StatusBadRequest, apperr.KindValidation},
		{"unknown field", http.MethodPost, "/api/transfers", env.admin, map[string]any{
			"from": 1,
		}, http.StatusBadRequest, apperr.KindValidation},
		{"read-only role", http.MethodPost, "/api/assets", userToken, map[string]any{
			"base_id": env.ftl.ID, "equipment_type_id": env.rifle.ID,
		}, http.StatusForbidden, apperr.KindAccessDenied},
		{"missing transfer", http.MethodGet, "/api/transfers/424242", env.admin, nil, http.StatusNotFound, apperr.KindNotFound},
		{"explicit id of another type", http.MethodPost, "/api/expenditures", env.admin, map[string]any{
			"base_id": env.ftl.ID, "equipment_type_id": env.ammo.ID, "reason": model.ReasonTraining,
			"asset_ids": []int64{asset.ID},
		}, http.StatusUnprocessableEntity, apperr.KindAllocation},
		{"bad id", http.MethodGet, "/api/assets/abc", env.admin, nil, http.StatusBadRequest, apperr.KindValidation},
		{"bad status filter", http.MethodGet, "/api/assets?status=LOST", env.admin, nil, http.StatusBadRequest, apperr.KindValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.do(tt.method, tt.path, tt.token, tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
			var body errorResponse
			decodeBody(t, resp, &body)
			assert.Equal(t, tt.kind, body.Kind)
			assert.NotEmpty(t, body.Error)
		})
	}
}

func TestAssignmentAndExpenditureOverHTTP(t *testing.T) {
	env := setupTestServer(t)
	soldier := env.createUser("soldier", model.RoleUser, &env.ftl.ID)
	rifle := env.createAsset(env.admin, env.ftl.ID, env.rifle.ID, 1)

	resp := env.do(http.MethodPost, "/api/assignments", env.admin, map[string]any{
		"asset_id":    rifle.ID,
		"assignee_id": soldier.ID,
		"purpose":     "range week",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var as model.Assignment
	decodeBody(t, resp, &as)
	assert.Equal(t, model.AssignmentActive, as.Status)

	resp = env.do(http.MethodPost, "/api/assignments", env.admin, map[string]any{
		"asset_id":    rifle.ID,
		"assignee_id": soldier.ID,
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = env.do(http.MethodPost, fmt.Sprintf("/api/assignments/%d/return", as.ID), env.admin,
		map[string]string{"condition": model.ConditionGood})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &as)
	assert.Equal(t, model.AssignmentReturned, as.Status)

	ammo := env.createAsset(env.admin, env.ftl.ID, env.ammo.ID, 100)
	resp = env.do(http.MethodPost, "/api/expenditures", env.admin, map[string]any{
		"base_id":           env.ftl.ID,
		"equipment_type_id": env.ammo.ID,
		"quantity":          30,
		"reason":            model.ReasonTraining,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var ex model.Expenditure
	decodeBody(t, resp, &ex)
	assert.Equal(t, model.ExpenditurePending, ex.Status)
	path := fmt.Sprintf("/api/expenditures/%d", ex.ID)

	resp = env.do(http.MethodPost, path+"/complete", env.admin, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode, "must be approved first")

	resp = env.do(http.MethodPost, path+"/approve", env.admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = env.do(http.MethodPost, path+"/complete", env.admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &ex)
	assert.Equal(t, model.ExpenditureCompleted, ex.Status)

	resp = env.do(http.MethodGet, fmt.Sprintf("/api/assets/%d", ammo.ID), env.admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var rest model.Asset
	decodeBody(t, resp, &rest)
	assert.Equal(t, 70, rest.Quantity)
	assert.Equal(t, model.AssetAvailable, rest.Status)
}

func TestPurchaseOverHTTP(t *testing.T) {
	env := setupTestServer(t)

	resp := env.do(http.MethodPost, "/api/purchases", env.admin, map[string]any{
		"base_id":           env.ftl.ID,
		"equipment_type_id": env.rifle.ID,
		"quantity":          2,
		"unit_price":        "1250.50",
		"supplier_name":     "Colt",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var p model.Purchase
	decodeBody(t, resp, &p)
	assert.Equal(t, "2501", p.TotalAmount.String())

	resp = env.do(http.MethodPost, fmt.Sprintf("/api/purchases/%d/deliver", p.ID), env.admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &p)
	assert.Equal(t, model.PurchaseDelivered, p.Status)

	resp = env.do(http.MethodGet, fmt.Sprintf("/api/assets?purchase_id=%d", p.ID), env.admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var assets []model.Asset
	decodeBody(t, resp, &assets)
	assert.Len(t, assets, 2)
}

func TestDashboardEndpoints(t *testing.T) {
	env := setupTestServer(t)
	env.createAsset(env.admin, env.ftl.ID, env.ammo.ID, 500)
	env.createAsset(env.admin, env.ftb.ID, env.ammo.ID, 200)

	resp := env.do(http.MethodGet, fmt.Sprintf("/api/dashboard/metrics?base_id=%d", env.ftl.ID), env.admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var m map[string]any
	decodeBody(t, resp, &m)
	assert.EqualValues(t, 0, m["opening_balance"])
	assert.EqualValues(t, 500, m["closing_balance"])

	resp = env.do(http.MethodGet, "/api/dashboard/metrics?statuses=AVAILABLE,MAINTENANCE", env.admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &m)
	assert.EqualValues(t, 700, m["closing_balance"])

	resp = env.do(http.MethodGet, "/api/dashboard/metrics?start_date=2024-02-01&end_date=2024-01-01", env.admin, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(http.MethodGet, "/api/dashboard/metrics?start_date=yesterday&end_date=2024-01-01", env.admin, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(http.MethodGet, "/api/dashboard/transfers-in-detail?page=1&limit=5", env.admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var page struct {
		Data       []model.Transfer `json:"data"`
		Pagination struct {
			CurrentPage  int `json:"current_page"`
			TotalRecords int `json:"total_records"`
		} `json:"pagination"`
	}
	decodeBody(t, resp, &page)
	assert.NotNil(t, page.Data)
	assert.Empty(t, page.Data)
	assert.Equal(t, 1, page.Pagination.CurrentPage)

	resp = env.do(http.MethodGet, "/api/dashboard/net-movement", env.admin, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestEquipmentImageUpload(t *testing.T) {
	env := setupTestServer(t)

	img := image.NewRGBA(image.Rect(0, 0, 40, 20))
	img.Set(1, 1, color.RGBA{R: 200, A: 255})
	var pngData bytes.Buffer
	require.NoError(t, png.Encode(&pngData, img))

	var form bytes.Buffer
	mw := multipart.NewWriter(&form)
	part, err := mw.CreateFormFile("image", "m4.png")
	require.NoError(t, err)
	_, err = part.Write(pngData.Bytes())
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	path := fmt.Sprintf("%s/api/equipment-types/%d/image", env.server.URL, env.rifle.ID)
	req, err := http.NewRequest(http.MethodPut, path, &form)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+env.admin)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(http.MethodGet, fmt.Sprintf("/api/equipment-types/%d/image", env.rifle.ID), env.admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/jpeg", resp.Header.Get("Content-Type"))

	resp = env.do(http.MethodGet, fmt.Sprintf("/api/equipment-types/%d/image", env.ammo.ID), env.admin, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRequestIDHeader(t *testing.T) {
	env := setupTestServer(t)
	resp := env.do(http.MethodGet, "/api/bases", env.admin, nil)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestWriteErrorStatuses(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{apperr.Validation("bad"), http.StatusBadRequest},
		{apperr.AccessDenied("no"), http.StatusForbidden},
		{apperr.NotFound("asset", 1), http.StatusNotFound},
		{apperr.InvalidState("done"), http.StatusConflict},
		{apperr.Conflict("dup"), http.StatusConflict},
		{apperr.InsufficientSupply(3, 1), http.StatusConflict},
		{apperr.Allocation("wrong asset"), http.StatusUnprocessableEntity},
		{fmt.Errorf("wrapped: %w", apperr.NotFound("base", 2)), http.StatusNotFound},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		writeError(rec, req, tt.err)
		assert.Equal(t, tt.status, rec.Code, tt.err.Error())

		var body errorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		if tt.status == http.StatusInternalServerError {
			assert.Equal(t, "internal error", body.Error)
			assert.Empty(t, body.Kind)
		} else {
			e, _ := apperr.As(tt.err)
			assert.Equal(t, e.Message, body.Error)
			assert.Equal(t, e.Kind, body.Kind)
		}
	}
}
