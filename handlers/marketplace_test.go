package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kyanzach/HGF-Connect-V2-sub001/auth"
	"github.com/kyanzach/HGF-Connect-V2-sub001/background"
	"github.com/kyanzach/HGF-Connect-V2-sub001/config"
	"github.com/kyanzach/HGF-Connect-V2-sub001/marketplace"
	"github.com/kyanzach/HGF-Connect-V2-sub001/middleware"
	"github.com/kyanzach/HGF-Connect-V2-sub001/models"
	"github.com/kyanzach/HGF-Connect-V2-sub001/notify"
	"github.com/kyanzach/HGF-Connect-V2-sub001/storage/memory"
	"github.com/kyanzach/HGF-Connect-V2-sub001/storage/postgres"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	t      *testing.T
	cfg    *config.Config
	router *gin.Engine
	runner *background.Runner

	alice, ben models.Member
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	cfg := &config.Config{
		JWTSecret:       "handler-secret",
		JWTAccessExpiry: time.Hour,
		PublicBaseURL:   "https://hgf.example",
		FingerprintSalt: "salt",
	}
	store := memory.New()
	runner := background.NewRunner(zap.NewNop(), time.Second)
	svc := marketplace.NewService(store, runner, notify.Nop{}, zap.NewNop(), marketplace.Options{
		PublicBaseURL:   cfg.PublicBaseURL,
		FingerprintSalt: cfg.FingerprintSalt,
	})

	r := gin.New()
	r.GET("/api/health", HealthHandler(store))
	NewMarketplaceAPI(svc, zap.NewNop()).Register(r.Group("/api/marketplace"), cfg, middleware.NewRateLimiter(100, 100, nil))

	return &testServer{
		t:      t,
		cfg:    cfg,
		router: r,
		runner: runner,
		alice:  store.AddMember(models.Member{Name: "Alice"}),
		ben:    store.AddMember(models.Member{Name: "Ben"}),
	}
}

func (s *testServer) do(method, path, memberID string, body any) (int, map[string]any) {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if memberID != "" {
		token, err := auth.GenerateAccessToken(s.cfg, memberID, "", "", "member")
		require.NoError(s.t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	out := map[string]any{}
	if w.Header().Get("Content-Type") != "image/png" && w.Body.Len() > 0 {
		require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	}
	return w.Code, out
}

func (s *testServer) createListing() string {
	s.t.Helper()
	code, body := s.do(http.MethodPost, "/api/marketplace/listings", s.alice.ID, map[string]any{
		"title":           "Bike",
		"originalPrice":   1000,
		"discountedPrice": 700,
		"loveGiftAmount":  100,
	})
	require.Equal(s.t, http.StatusCreated, code, body)
	return body["listing"].(map[string]any)["id"].(string)
}

func TestHealthHandler(t *testing.T) {
	s := newTestServer(t)
	code, body := s.do(http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
}

type downDB struct{}

func (downDB) Ping(context.Context) error { return errors.New("connection refused") }

func TestHealthHandler_DatabaseDown(t *testing.T) {
	r := gin.New()
	r.GET("/health", HealthHandler(downDB{}))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestMarketplaceFlow(t *testing.T) {
	s := newTestServer(t)
	listingID := s.createListing()
	base := "/api/marketplace/listings/" + listingID

	code, body := s.do(http.MethodPost, base+"/share", s.ben.ID, nil)
	require.Equal(t, http.StatusOK, code, body)
	share := body["share"].(map[string]any)
	shareCode := share["shareCode"].(string)
	assert.Len(t, shareCode, 12)
	assert.Contains(t, share["link"], "ref="+shareCode)

	// Anonymous visitors never see the discounted price on the listing itself.
	code, body = s.do(http.MethodGet, base+"?ref="+shareCode, "", nil)
	require.Equal(t, http.StatusOK, code)
	listing := body["listing"].(map[string]any)
	assert.NotContains(t, listing, "discountedPrice")
	assert.Equal(t, true, listing["hasDiscount"])
	assert.Equal(t, shareCode, body["ref"])

	code, body = s.do(http.MethodPost, base+"/prospects", "", map[string]any{
		"action":      "reveal",
		"shareCode":   shareCode,
		"visitorName": "Dan",
		"phone":       "0917",
	})
	require.Equal(t, http.StatusCreated, code, body)
	assert.Equal(t, true, body["success"])
	assert.EqualValues(t, 700, body["discountedPrice"])
	assert.Equal(t, "Alice", body["sellerName"])
	prospectID := body["prospectId"].(string)

	code, body = s.do(http.MethodGet, base+"/prospects", s.alice.ID, nil)
	require.Equal(t, http.StatusOK, code)
	prospects := body["prospects"].([]any)
	require.Len(t, prospects, 1)
	assert.Equal(t, "Ben", prospects[0].(map[string]any)["referrerName"])

	code, body = s.do(http.MethodPost, base+"/prospects/"+prospectID+"/confirm", s.alice.ID, nil)
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, true, body["credited"])
	assert.EqualValues(t, 100, body["amount"])

	code, body = s.do(http.MethodPost, base+"/prospects/"+prospectID+"/confirm", s.alice.ID, nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, false, body["success"])

	code, body = s.do(http.MethodGet, "/api/marketplace/shares", s.ben.ID, nil)
	require.Equal(t, http.StatusOK, code)
	totals := body["totals"].(map[string]any)
	assert.EqualValues(t, 1, totals["credited"])
	assert.EqualValues(t, 100, totals["totalEarned"])

	require.NoError(t, s.runner.Wait(context.Background()))
}

func TestMarketplaceErrors(t *testing.T) {
	s := newTestServer(t)
	listingID := s.createListing()
	base := "/api/marketplace/listings/" + listingID

	cases := []struct {
		name   string
		method string
		path   string
		member string
		body   any
		status int
	}{
		{"share requires auth", http.MethodPost, base + "/share", "", nil, http.StatusUnauthorized},
		{"owner cannot share", http.MethodPost, base + "/share", s.alice.ID, nil, http.StatusForbidden},
		{"unknown listing", http.MethodGet, "/api/marketplace/listings/nope", "", nil, http.StatusNotFound},
		{"missing visitor name", http.MethodPost, base + "/prospects", "", map[string]any{"action": "reveal"}, http.StatusBadRequest},
		{"bad action", http.MethodPost, base + "/prospects", "", map[string]any{"action": "buy", "visitorName": "Dan"}, http.StatusBadRequest},
		{"prospects are owner only", http.MethodGet, base + "/prospects", s.ben.ID, nil, http.StatusNotFound},
		{"confirm unknown prospect", http.MethodPost, base + "/prospects/none/confirm", s.alice.ID, nil, http.StatusNotFound},
		{"listing needs title", http.MethodPost, "/api/marketplace/listings", s.alice.ID, map[string]any{"originalPrice": 5}, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, body := s.do(tc.method, tc.path, tc.member, tc.body)
			assert.Equal(t, tc.status, code, body)
		})
	}
}

func TestGetShare_NoneYet(t *testing.T) {
	s := newTestServer(t)
	listingID := s.createListing()
	code, body := s.do(http.MethodGet, "/api/marketplace/listings/"+listingID+"/share", s.ben.ID, nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "share")
	assert.Nil(t, body["share"])
}

func TestImpressionsAlwaysAccepted(t *testing.T) {
	s := newTestServer(t)
	code, _ := s.do(http.MethodPost, "/api/marketplace/listings/unknown/impressions", "", map[string]any{"kind": "bogus"})
	assert.Equal(t, http.StatusAccepted, code)
}

func TestShareQR(t *testing.T) {
	s := newTestServer(t)
	listingID := s.createListing()
	path := "/api/marketplace/listings/" + listingID + "/share/qr"

	code, _ := s.do(http.MethodGet, path, s.ben.ID, nil)
	assert.Equal(t, http.StatusNotFound, code, "no share minted yet")

	code, _ = s.do(http.MethodPost, "/api/marketplace/listings/"+listingID+"/share", s.ben.ID, nil)
	require.Equal(t, http.StatusOK, code)

	req := httptest.NewRequest(http.MethodGet, path, nil)
	token, err := auth.GenerateAccessToken(s.cfg, s.ben.ID, "", "", "member")
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("\x89PNG")))
}

func TestSubmitProspect_OverlongShareCode(t *testing.T) {
	s := newTestServer(t)
	listingID := s.createListing()
	base := "/api/marketplace/listings/" + listingID

	code, body := s.do(http.MethodPost, base+"/prospects", "", map[string]any{
		"action":      "reveal",
		"shareCode":   strings.Repeat("z", 65),
		"visitorName": "Maria",
	})
	require.Equal(t, http.StatusCreated, code, body)
	assert.Nil(t, body["couponCode"])
	assert.EqualValues(t, 700, body["discountedPrice"])

	code, body = s.do(http.MethodGet, base+"/prospects", s.alice.ID, nil)
	require.Equal(t, http.StatusOK, code)
	prospects := body["prospects"].([]any)
	require.Len(t, prospects, 1)
	assert.Nil(t, prospects[0].(map[string]any)["referrerId"])
}

func TestMalformedIDsAreNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := &config.Config{JWTSecret: "handler-secret", JWTAccessExpiry: time.Hour}
	svc := marketplace.NewService(postgres.New(db), background.NewRunner(zap.NewNop(), time.Second),
		notify.Nop{}, zap.NewNop(), marketplace.Options{})
	r := gin.New()
	NewMarketplaceAPI(svc, zap.NewNop()).Register(r.Group("/api/marketplace"), cfg, middleware.NewRateLimiter(100, 100, nil))

	badUUID := &pgconn.PgError{Code: "22P02", Message: `invalid input syntax for type uuid: "42"`}
	mock.ExpectQuery(`SELECT .* FROM listings WHERE id = \$1$`).WithArgs("42").WillReturnError(badUUID)
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .* FROM listings WHERE id = \$1 FOR UPDATE`).WithArgs("42").WillReturnError(badUUID)
	mock.ExpectRollback()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/marketplace/listings/42", nil))
	assert.Equal(t, http.StatusNotFound, w.Code, w.Body.String())

	token, err := auth.GenerateAccessToken(cfg, "owner", "", "", "member")
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/marketplace/listings/42/prospects/7/confirm", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code, w.Body.String())

	assert.NoError(t, mock.ExpectationsWereMet())
}
