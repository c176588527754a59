package http

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Uchennem/sleepoutsideServer/internal/auth"
	"github.com/Uchennem/sleepoutsideServer/internal/domain"
	"github.com/Uchennem/sleepoutsideServer/internal/event"
	"github.com/Uchennem/sleepoutsideServer/internal/repository/memory"
	"github.com/Uchennem/sleepoutsideServer/internal/service"
	"github.com/Uchennem/sleepoutsideServer/pkg/filter"
	"github.com/Uchennem/sleepoutsideServer/pkg/health"
	"github.com/Uchennem/sleepoutsideServer/pkg/httputil"
	"github.com/Uchennem/sleepoutsideServer/pkg/logger"
	"github.com/Uchennem/sleepoutsideServer/pkg/middleware"
)

// ============================================================================
// Test Helpers
// ============================================================================

type testServer struct {
	handler http.Handler
	users   *memory.UserRepository
	tokens  *auth.JWTManager
}

func testProduct(id, name, category string) domain.Product {
	return domain.Product{
		ID:                    id,
		Category:              category,
		Name:                  name,
		NameWithoutBrand:      name,
		DescriptionHtmlSimple: "<p>" + name + "</p>",
		FinalPrice:            199.99,
		Reviews:               domain.Reviews{ReviewsURL: domain.ReviewsPath(id)},
	}
}

func newTestServer(t *testing.T, secret string) testServer {
	t.Helper()
	log := logger.Discard()

	products := memory.NewProductRepository()
	_, err := products.InsertMany(context.Background(), []domain.Product{
		testProduct("880RR", "Marmot Ajax Tent - 3-Person, 3-Season", "tents"),
		testProduct("985RF", "The North Face Talus Tent - 4-Person", "tents"),
		testProduct("989CG", "Cedar Ridge Rimrock Tent - 2-Person", "tents"),
		testProduct("21KNT", "Sleeping Bag - 20 Degree", "sleeping-bags"),
	})
	require.NoError(t, err)

	users := memory.NewUserRepository()
	tokens := auth.NewJWTManager(secret, time.Hour)

	hc := health.NewHandler()
	hc.RegisterCritical("store", func(context.Context) error { return nil })

	h := NewRouter(RouterConfig{
		Catalog: service.NewCatalogService(products, filter.PolicyAnd, log),
		Users: service.NewUserService(users, auth.NewPasswordHasher(bcrypt.MinCost), tokens,
			event.NewProducer(nil, log), log),
		TokenValidator: tokens.TokenValidator(),
		Health:         hc,
		CORS:           middleware.DefaultCORSConfig(),
		Logger:         log,
		RequestTimeout: 5 * time.Second,
	})
	return testServer{handler: h, users: users, tokens: tokens}
}

func (s testServer) do(t *testing.T, method, target, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type envelope struct {
	Count    int               `json:"count"`
	Previous *string           `json:"previous"`
	Next     *string           `json:"next"`
	Results  []domain.Document `json:"results"`
}

// ============================================================================
// Home / health
// ============================================================================

func TestHome(t *testing.T) {
	s := newTestServer(t, "secret")

	rec := s.do(t, http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"title":"Home Page"}`, rec.Body.String())
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t, "secret")

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/health/live", "", nil).Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/health/ready", "", nil).Code)

	rec := s.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
}

// ============================================================================
// Products
// ============================================================================

func TestListProducts_SearchByName(t *testing.T) {
	s := newTestServer(t, "secret")

	rec := s.do(t, http.MethodGet, "/api/v1/products?q=ajax", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	env := decode[envelope](t, rec)
	assert.Equal(t, 1, env.Count)
	require.Len(t, env.Results, 1)
	assert.Equal(t, "880RR", env.Results[0].ID())
	assert.Nil(t, env.Previous)
	assert.Nil(t, env.Next)
}

func TestListProducts_NoMatchIsNotFound(t *testing.T) {
	s := newTestServer(t, "secret")

	rec := s.do(t, http.MethodGet, "/api/v1/products?category=backpacks", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	body := decode[httputil.ErrorBody](t, rec)
	require.NotNil(t, body.Error)
	assert.Equal(t, "NOT_FOUND", body.Error.Code)
}

func TestListProducts_PaginationLinks(t *testing.T) {
	s := newTestServer(t, "secret")

	rec := s.do(t, http.MethodGet, "/api/v1/products?category=tents&limit=2", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	env := decode[envelope](t, rec)
	assert.Equal(t, 3, env.Count)
	assert.Len(t, env.Results, 2)
	assert.Nil(t, env.Previous)
	require.NotNil(t, env.Next)
	assert.Equal(t, "/api/v1/products?category=tents&limit=2&offset=2", *env.Next)

	rec = s.do(t, http.MethodGet, *env.Next, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	env = decode[envelope](t, rec)
	assert.Len(t, env.Results, 1)
	assert.NotNil(t, env.Previous)
	assert.Nil(t, env.Next)
}

func TestListProducts_Projection(t *testing.T) {
	s := newTestServer(t, "secret")

	rec := s.do(t, http.MethodGet, "/api/v1/products?q=ajax&fields=name,finalPrice", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	env := decode[envelope](t, rec)
	require.Len(t, env.Results, 1)
	assert.Equal(t, domain.Document{
		"id":         "880RR",
		"name":       "Marmot Ajax Tent - 3-Person, 3-Season",
		"finalPrice": 199.99,
	}, env.Results[0])
}

func TestSearchProducts(t *testing.T) {
	s := newTestServer(t, "secret")

	rec := s.do(t, http.MethodGet, "/api/v1/products/search?query=sleeping-bags", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	env := decode[envelope](t, rec)
	require.Len(t, env.Results, 1)
	assert.Equal(t, "21KNT", env.Results[0].ID())
}

func TestGetProduct(t *testing.T) {
	s := newTestServer(t, "secret")

	rec := s.do(t, http.MethodGet, "/api/v1/products/880RR", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	doc := decode[domain.Document](t, rec)
	assert.Equal(t, "tents", doc["category"])

	rec = s.do(t, http.MethodGet, "/api/v1/products/NOPE", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// ============================================================================
// Users
// ============================================================================

const registerBody = `{"name":"New User","email":"newuser@test.com","password":"123456"}`

func TestRegister(t *testing.T) {
	s := newTestServer(t, "secret")

	rec := s.do(t, http.MethodPost, "/api/v1/users", registerBody, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	resp := decode[struct {
		Message string         `json:"message"`
		User    map[string]any `json:"user"`
	}](t, rec)
	assert.Equal(t, "User created successfully.", resp.Message)
	assert.Equal(t, "newuser@test.com", resp.User["email"])
	assert.NotEmpty(t, resp.User["id"])
	assert.NotContains(t, resp.User, "_id")
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestRegister_DuplicateEmail(t *testing.T) {
	s := newTestServer(t, "secret")

	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/api/v1/users", registerBody, nil).Code)

	rec := s.do(t, http.MethodPost, "/api/v1/users", registerBody, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	body := decode[httputil.ErrorBody](t, rec)
	assert.Equal(t, "ALREADY_EXISTS", body.Error.Code)
}

func TestRegister_BadInput(t *testing.T) {
	s := newTestServer(t, "secret")

	tests := []struct {
		name string
		body string
		code string
	}{
		{"malformed json", `{"name":`, "INVALID_INPUT"},
		{"missing fields", `{"email":"x@test.com"}`, "VALIDATION_ERROR"},
		{"invalid email", `{"name":"a","email":"nope","password":"123456"}`, "VALIDATION_ERROR"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/api/v1/users", tc.body, nil)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			body := decode[httputil.ErrorBody](t, rec)
			assert.Equal(t, tc.code, body.Error.Code)
		})
	}
}

func TestRegister_RejectsNonJSONContentType(t *testing.T) {
	s := newTestServer(t, "secret")

	rec := s.do(t, http.MethodPost, "/api/v1/users", "", map[string]string{"Content-Type": "text/plain"})
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestLoginAndProtected(t *testing.T) {
	s := newTestServer(t, "secret")
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/api/v1/users", registerBody, nil).Code)

	rec := s.do(t, http.MethodPost, "/api/v1/users/login", `{"email":"newuser@test.com","password":"123456"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	login := decode[struct {
		Token string         `json:"token"`
		User  map[string]any `json:"user"`
	}](t, rec)
	require.NotEmpty(t, login.Token)
	assert.Equal(t, "newuser@test.com", login.User["email"])

	rec = s.do(t, http.MethodGet, "/api/v1/users/protected", "", map[string]string{
		"Authorization": "Bearer " + login.Token,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	msg := decode[MessageResponse](t, rec)
	assert.Contains(t, msg.Message, "newuser@test.com")
}

func TestLogin_Errors(t *testing.T) {
	s := newTestServer(t, "secret")
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/api/v1/users", registerBody, nil).Code)

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"missing password", `{"email":"newuser@test.com"}`, http.StatusBadRequest},
		{"wrong password", `{"email":"newuser@test.com","password":"nope123"}`, http.StatusUnauthorized},
		{"unknown user", `{"email":"ghost@test.com","password":"123456"}`, http.StatusUnauthorized},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/api/v1/users/login", tc.body, nil)
			assert.Equal(t, tc.status, rec.Code)
		})
	}
}

func TestLogin_MissingSecret(t *testing.T) {
	s := newTestServer(t, "")
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/api/v1/users", registerBody, nil).Code)

	rec := s.do(t, http.MethodPost, "/api/v1/users/login", `{"email":"newuser@test.com","password":"123456"}`, nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decode[httputil.ErrorBody](t, rec)
	assert.Equal(t, "CONFIGURATION_ERROR", body.Error.Code)
}

func TestProtected_RequiresToken(t *testing.T) {
	s := newTestServer(t, "secret")

	tests := []struct {
		name   string
		header string
	}{
		{"no header", ""},
		{"wrong scheme", "Basic abc"},
		{"garbage token", "Bearer not-a-jwt"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			headers := map[string]string{}
			if tc.header != "" {
				headers["Authorization"] = tc.header
			}
			rec := s.do(t, http.MethodGet, "/api/v1/users/protected", "", headers)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestProtected_TokenFromOtherSecret(t *testing.T) {
	s := newTestServer(t, "secret")
	token, err := auth.NewJWTManager("other", time.Hour).Sign("u-1", "a@test.com", domain.RoleCustomer)
	require.NoError(t, err)

	rec := s.do(t, http.MethodGet, "/api/v1/users/protected", "", map[string]string{"Authorization": "Bearer " + token})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestReadiness_CriticalFailure(t *testing.T) {
	hc := health.NewHandler()
	hc.RegisterCritical("postgres", func(context.Context) error { return errors.New("down") })

	h := NewRouter(RouterConfig{
		Catalog: service.NewCatalogService(memory.NewProductRepository(), filter.PolicyAnd, logger.Discard()),
		Health:  hc,
		Logger:  logger.Discard(),
	})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
