package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	archivedomain "github.com/syaokifaradisa9/e-office-app-sub001/internal/archive/domain"
	archiverepo "github.com/syaokifaradisa9/e-office-app-sub001/internal/archive/repository"
	archiveservice "github.com/syaokifaradisa9/e-office-app-sub001/internal/archive/service"
	"github.com/syaokifaradisa9/e-office-app-sub001/internal/authorization"
	"github.com/syaokifaradisa9/e-office-app-sub001/internal/blob"
	"github.com/syaokifaradisa9/e-office-app-sub001/internal/clock"
	"github.com/syaokifaradisa9/e-office-app-sub001/internal/config"
	"github.com/syaokifaradisa9/e-office-app-sub001/internal/dbtest"
	divisiondomain "github.com/syaokifaradisa9/e-office-app-sub001/internal/division/domain"
	divisionrepo "github.com/syaokifaradisa9/e-office-app-sub001/internal/division/repository"
	divisionservice "github.com/syaokifaradisa9/e-office-app-sub001/internal/division/service"
	documentdomain "github.com/syaokifaradisa9/e-office-app-sub001/internal/document/domain"
	documentrepo "github.com/syaokifaradisa9/e-office-app-sub001/internal/document/repository"
	documentservice "github.com/syaokifaradisa9/e-office-app-sub001/internal/document/service"
	inventorydomain "github.com/syaokifaradisa9/e-office-app-sub001/internal/inventory/domain"
	inventoryrepo "github.com/syaokifaradisa9/e-office-app-sub001/internal/inventory/repository"
	inventoryservice "github.com/syaokifaradisa9/e-office-app-sub001/internal/inventory/service"
	"github.com/syaokifaradisa9/e-office-app-sub001/internal/observability"
	quotadomain "github.com/syaokifaradisa9/e-office-app-sub001/internal/quota/domain"
	quotarepo "github.com/syaokifaradisa9/e-office-app-sub001/internal/quota/repository"
	quotaservice "github.com/syaokifaradisa9/e-office-app-sub001/internal/quota/service"
	"github.com/syaokifaradisa9/e-office-app-sub001/internal/ratelimit"
	stockopnamedomain "github.com/syaokifaradisa9/e-office-app-sub001/internal/stockopname/domain"
	stockopnamerepo "github.com/syaokifaradisa9/e-office-app-sub001/internal/stockopname/repository"
	stockopnameservice "github.com/syaokifaradisa9/e-office-app-sub001/internal/stockopname/service"
	"go.uber.org/zap"
)

type testServer struct {
	engine    *gin.Engine
	quota     quotadomain.Service
	divisions divisiondomain.Service
	inventory inventorydomain.Service
}

type actorHeaders struct {
	userID     int64
	role       string
	divisionID int64
}

var (
	superadmin = actorHeaders{userID: 1, role: authorization.RoleSuperadmin}
	warehouse  = actorHeaders{userID: 2, role: authorization.RoleWarehouseAdmin}
)

func newTestServer(t *testing.T, limiter ...ratelimit.Limiter) testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	models := append(documentdomain.Models(),
		&divisiondomain.Division{},
		&archivedomain.CategoryContext{},
		&archivedomain.Category{},
		&archivedomain.Classification{},
		&quotadomain.StorageQuota{},
		&inventorydomain.Item{},
		&inventorydomain.ItemTransaction{},
		&stockopnamedomain.StockOpname{},
		&stockopnamedomain.StockOpnameItem{},
	)
	db := dbtest.Open(t, models...)
	node := dbtest.Node(t)
	log := zap.NewNop()
	policy := config.NewStaticPolicyHolder(config.DefaultPolicy())
	// 2026-10-17 10:00 in Jakarta.
	fake := clock.NewFakeClock(time.Date(2026, 10, 17, 3, 0, 0, 0, time.UTC))

	quota := quotaservice.New(quotaservice.Params{DB: db, Log: log, Repo: quotarepo.Provide()})
	divisions := divisionservice.New(divisionservice.Params{Log: log, GenID: node, Repo: divisionrepo.Provide(db), Quota: quota, Policy: policy})
	archive := archiveservice.New(archiveservice.Params{Log: log, GenID: node, Repo: archiverepo.Provide(db)})
	inventory := inventoryservice.New(inventoryservice.Params{DB: db, Log: log, GenID: node, Repo: inventoryrepo.Provide()})
	blobs := blob.NewMemoryStore()
	documents := documentservice.New(documentservice.Params{
		DB: db, Log: log, GenID: node, Repo: documentrepo.Provide(),
		Quota: quota, Blob: blobs, Divisions: divisions, Archive: archive, Clock: fake,
	})
	opnames := stockopnameservice.New(stockopnameservice.Params{
		DB: db, Log: log, GenID: node, Repo: stockopnamerepo.Provide(),
		Inventory: inventory, Clock: fake, Policy: policy,
	})
	enforcer, err := authorization.NewEnforcer(db)
	require.NoError(t, err)

	engine := NewEngine(observability.Config{Environment: "test"}, nil)
	NewServer(Params{
		Engine:       engine,
		Log:          log,
		Authz:        authorization.New(authorization.Params{Log: log, Enforcer: enforcer}),
		Documents:    documents,
		Quota:        quota,
		Blob:         blobs,
		StockOpnames: opnames,
		Inventory:    inventory,
		Divisions:    divisions,
		Archive:      archive,
		Limiter:      firstLimiter(limiter),
	})
	return testServer{engine: engine, quota: quota, divisions: divisions, inventory: inventory}
}

func firstLimiter(limiters []ratelimit.Limiter) ratelimit.Limiter {
	if len(limiters) == 0 {
		return nil
	}
	return limiters[0]
}

type exhaustedLimiter struct{}

func (exhaustedLimiter) AllowUpload(context.Context, int64) (*ratelimit.Result, error) {
	return &ratelimit.Result{Allowed: false, RetryAfter: 1500 * time.Millisecond}, nil
}

type brokenLimiter struct{}

func (brokenLimiter) AllowUpload(context.Context, int64) (*ratelimit.Result, error) {
	return nil, errors.New("redis down")
}

func (ts testServer) do(t *testing.T, actor *actorHeaders, method, path string, body any) *httptest.ResponseRecorder {
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
	setActor(req, actor)

	rec := httptest.NewRecorder()
	ts.engine.ServeHTTP(rec, req)
	return rec
}

func (ts testServer) upload(t *testing.T, actor *actorHeaders, title string, divisionIDs []int64, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("title", title))
	for _, id := range divisionIDs {
		require.NoError(t, w.WriteField("division_ids", strconv.FormatInt(id, 10)))
	}
	part, err := w.CreateFormFile("file", "memo.pdf")
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/documents", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	setActor(req, actor)

	rec := httptest.NewRecorder()
	ts.engine.ServeHTTP(rec, req)
	return rec
}

func setActor(req *http.Request, actor *actorHeaders) {
	if actor == nil {
		return
	}
	req.Header.Set(HeaderUserID, strconv.FormatInt(actor.userID, 10))
	req.Header.Set(HeaderUserRole, actor.role)
	if actor.divisionID > 0 {
		req.Header.Set(HeaderDivisionID, strconv.FormatInt(actor.divisionID, 10))
	}
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorPayload {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp.Error
}

func (ts testServer) createDivision(t *testing.T, code string) int64 {
	t.Helper()
	rec := ts.do(t, &superadmin, http.MethodPost, "/api/divisions", map[string]string{"name": code + " division", "code": code})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	id, err := strconv.ParseInt(resp.Data.ID, 10, 64)
	require.NoError(t, err)
	return id
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, nil, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestActorHeadersRequired(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, nil, http.MethodGet, "/api/documents", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Division-scoped roles must carry their division.
	rec = ts.do(t, &actorHeaders{userID: 5, role: authorization.RoleStaff}, http.MethodGet, "/api/documents", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCapabilityIsEnforced(t *testing.T) {
	ts := newTestServer(t)
	division := ts.createDivision(t, "FIN")
	staff := actorHeaders{userID: 5, role: authorization.RoleStaff, divisionID: division}

	rec := ts.do(t, &staff, http.MethodDelete, "/api/documents/123", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(t, &staff, http.MethodPut, fmt.Sprintf("/api/storage-quotas/%d", division), map[string]int64{"max_size": 10})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestUploadOverQuotaIsValidationError(t *testing.T) {
	ts := newTestServer(t)
	division := ts.createDivision(t, "LEGAL")

	rec := ts.do(t, &superadmin, http.MethodPut, fmt.Sprintf("/api/storage-quotas/%d", division), map[string]int64{"max_size": 2000})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	staff := actorHeaders{userID: 5, role: authorization.RoleStaff, divisionID: division}
	rec = ts.upload(t, &staff, "Contract", nil, make([]byte, 1500))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = ts.upload(t, &staff, "Annex", nil, make([]byte, 600))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
	payload := decodeError(t, rec)
	assert.Equal(t, "validation_error", payload.Type)
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "file", payload.Errors[0].Field)
	assert.Equal(t, "quota_exceeded", payload.Errors[0].Code)

	usage, err := ts.quota.Usage(t.Context(), division)
	require.NoError(t, err)
	assert.Equal(t, int64(1500), usage.UsedSize)

	// Staff cannot charge another division.
	other := ts.createDivision(t, "OPS")
	rec = ts.upload(t, &staff, "Elsewhere", []int64{other}, make([]byte, 10))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestUploadRateLimit(t *testing.T) {
	t.Run("exhausted", func(t *testing.T) {
		ts := newTestServer(t, exhaustedLimiter{})
		division := ts.createDivision(t, "GA")
		staff := actorHeaders{userID: 5, role: authorization.RoleStaff, divisionID: division}

		rec := ts.upload(t, &staff, "Memo", nil, []byte("hello"))
		require.Equal(t, http.StatusTooManyRequests, rec.Code, rec.Body.String())
		assert.Equal(t, "2", rec.Header().Get("Retry-After"))
		assert.Equal(t, "rate_limited", decodeError(t, rec).Type)
	})

	t.Run("limiter outage fails open", func(t *testing.T) {
		ts := newTestServer(t, brokenLimiter{})
		division := ts.createDivision(t, "GA")
		staff := actorHeaders{userID: 5, role: authorization.RoleStaff, divisionID: division}

		rec := ts.upload(t, &staff, "Memo", nil, []byte("hello"))
		assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	})
}

func TestStockOpnameLifecycleOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	item, err := ts.inventory.CreateItem(t.Context(), inventorydomain.CreateItemRequest{Code: "PAP", Name: "Paper", Unit: "ream", OpeningStock: 100})
	require.NoError(t, err)

	rec := ts.do(t, &warehouse, http.MethodPost, "/api/stock-opnames", map[string]string{"opname_date": "2026-10-17"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		Data struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "pending", created.Data.Status)

	rec = ts.do(t, &warehouse, http.MethodPost, "/api/stock-opnames", map[string]string{"opname_date": "2026-10-17"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	base := "/api/stock-opnames/" + created.Data.ID
	rec = ts.do(t, &warehouse, http.MethodPost, base+"/finalize", nil)
	assert.Equal(t, http.StatusConflict, rec.Code, "finalize before confirm")

	body := fmt.Sprintf(`{"confirm":true,"lines":[{"item_id":"%d","physical_stock":80}]}`, item.ID)
	req := httptest.NewRequest(http.MethodPost, base+"/process", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	setActor(req, &warehouse)
	processed := httptest.NewRecorder()
	ts.engine.ServeHTTP(processed, req)
	require.Equal(t, http.StatusOK, processed.Code, processed.Body.String())

	got, err := ts.inventory.Get(t.Context(), item.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(80), got.Stock)

	rec = ts.do(t, &warehouse, http.MethodPost, base+"/finalize", nil)
	require.Equal(t, http.StatusTooEarly, rec.Code, rec.Body.String())
	assert.Equal(t, "too_early", decodeError(t, rec).Type)

	rec = ts.do(t, &warehouse, http.MethodGet, "/api/stock-opnames/999", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDivisionScopedActorIsPinned(t *testing.T) {
	ts := newTestServer(t)
	own := ts.createDivision(t, "HR")
	other := ts.createDivision(t, "IT")
	admin := actorHeaders{userID: 9, role: authorization.RoleDivisionAdmin, divisionID: own}

	rec := ts.do(t, &admin, http.MethodGet, fmt.Sprintf("/api/storage-quotas/%d", other), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(t, &admin, http.MethodGet, fmt.Sprintf("/api/storage-quotas/%d", own), nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, &admin, http.MethodPost, "/api/stock-opnames", map[string]string{"opname_date": "2026-10-17", "division_id": strconv.FormatInt(other, 10)})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(t, &admin, http.MethodPost, "/api/stock-opnames", map[string]string{"opname_date": "2026-10-17"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), strconv.FormatInt(own, 10))

	rec = ts.do(t, &admin, http.MethodGet, "/api/stock-opnames?main_warehouse=true", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestMapError(t *testing.T) {
	cases := []struct {
		err    error
		status int
		kind   string
	}{
		{&quotadomain.ExceededError{DivisionID: 1, Requested: 600, Remaining: 500}, http.StatusUnprocessableEntity, "validation_error"},
		{stockopnamedomain.ErrConflict, http.StatusConflict, "conflict"},
		{stockopnamedomain.ErrInvalidState, http.StatusConflict, "conflict"},
		{stockopnamedomain.ErrTooEarly, http.StatusTooEarly, "too_early"},
		{fmt.Errorf("lookup: %w", documentdomain.ErrNotFound), http.StatusNotFound, "not_found"},
		{stockopnamedomain.ErrMissingCount, http.StatusBadRequest, "validation_error"},
		{documentdomain.ErrInvalidReference, http.StatusBadRequest, "validation_error"},
		{authorization.ErrForbidden, http.StatusForbidden, "forbidden"},
		{ErrRateLimited, http.StatusTooManyRequests, "rate_limited"},
		{errors.New("db down"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range cases {
		status, payload := mapError(tc.err)
		assert.Equal(t, tc.status, status, tc.err.Error())
		assert.Equal(t, tc.kind, payload.Type, tc.err.Error())
	}

	_, payload := mapError(&quotadomain.ExceededError{DivisionID: 1, Requested: 600, Remaining: 500})
	assert.Equal(t, "storage quota exceeded, remaining 500 B", payload.Errors[0].Message)
}
