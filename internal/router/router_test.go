package router_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jwalitptl/clinic-api/internal/handler/auth"
	"github.com/jwalitptl/clinic-api/internal/handler/health"
	holidayHandler "github.com/jwalitptl/clinic-api/internal/handler/holiday"
	promHandler "github.com/jwalitptl/clinic-api/internal/handler/prometheus"
	scheduleHandler "github.com/jwalitptl/clinic-api/internal/handler/schedule"
	"github.com/jwalitptl/clinic-api/internal/handler/visit"
	"github.com/jwalitptl/clinic-api/internal/middleware"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository/memory"
	"github.com/jwalitptl/clinic-api/internal/router"
	authService "github.com/jwalitptl/clinic-api/internal/service/auth"
	"github.com/jwalitptl/clinic-api/internal/service/booking"
	holidayService "github.com/jwalitptl/clinic-api/internal/service/holiday"
	rbacService "github.com/jwalitptl/clinic-api/internal/service/rbac"
	"github.com/jwalitptl/clinic-api/internal/service/schedule"
	jwtauth "github.com/jwalitptl/clinic-api/pkg/auth"
	"github.com/jwalitptl/clinic-api/pkg/httputil"
	"github.com/jwalitptl/clinic-api/pkg/logger"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
	"github.com/jwalitptl/clinic-api/pkg/security"
	"github.com/jwalitptl/clinic-api/pkg/validator"
)

const password = "correct-horse"

var registerOnce sync.Once

type testAPI struct {
	engine   *gin.Engine
	store    *memory.Store
	doctorID uuid.UUID
}

type envelope struct {
	httputil.Response
	Data json.RawMessage `json:"data"`
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)
	registerOnce.Do(func() { require.NoError(t, validator.RegisterWithGin()) })

	store := memory.NewStore()
	hasher := security.NewBcryptHasher(bcrypt.MinCost)
	hash, err := hasher.Hash(password)
	require.NoError(t, err)

	admin := &model.User{Base: model.Base{ID: uuid.New()}, Email: "admin@clinic.test", PasswordHash: hash,
		LastName: "Petrov", FirstName: "Ivan", Status: model.UserStatusActive}
	store.AddUser(admin, model.AllPermissions...)
	reader := &model.User{Base: model.Base{ID: uuid.New()}, Email: "reader@clinic.test", PasswordHash: hash, Status: model.UserStatusActive}
	store.AddUser(reader, model.PermissionScheduleRead)

	doctor := &model.Doctor{ID: uuid.New(), UserID: admin.ID, Color: "#3366ff"}
	store.AddDoctor(doctor, nil)

	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics(reg, "test", "")
	log := logger.Nop()

	holidays := holidayService.NewService(store.Holidays(), time.UTC, time.Minute, m, log)
	schedules := schedule.NewService(store.Slots(), store.Doctors(), holidays, time.UTC, m, log)
	bookings := booking.NewService(store.Visits(), time.UTC, m, log)
	rbac := rbacService.NewService(store.RBAC(), time.Minute, m)
	authSvc := authService.NewService(store.Users(), jwtauth.NewJWTService("secret", "clinic-api", time.Hour), hasher, log)
	guard := middleware.NewAuthMiddleware(rbac, authSvc)

	r := router.NewRouter(guard, middleware.NewHTTPMetrics(reg, "test_http"),
		router.RouterConfig{RequestTimeout: 5 * time.Second, CORSConfig: middleware.DefaultCORSConfig()},
		[]router.Handler{auth.NewHandler(authSvc)},
		[]router.Handler{
			scheduleHandler.NewHandler(schedules, guard),
			visit.NewHandler(bookings, guard),
			holidayHandler.NewHandler(holidays, guard),
		},
		[]router.Handler{health.NewHandler(map[string]health.Pinger{}), promHandler.New(reg)},
	)
	return &testAPI{engine: r.Engine(), store: store, doctorID: doctor.ID}
}

func (a *testAPI) do(t *testing.T, method, path string, body interface{}, token string) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 && w.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w.Code, env
}

func (a *testAPI) login(t *testing.T, email string) string {
	t.Helper()
	code, env := a.do(t, http.MethodPost, "/api/v1/auth/login", map[string]string{"email": email, "password": password}, "")
	require.Equal(t, http.StatusOK, code, env.Message)
	var tokens model.TokenResponse
	require.NoError(t, json.Unmarshal(env.Data, &tokens))
	return tokens.AccessToken
}

func (a *testAPI) scheduleBody(date string) map[string]interface{} {
	return map[string]interface{}{
		"date_mode":        "single",
		"date":             date,
		"doctor_id":        a.doctorID,
		"start_time":       "09:00",
		"end_time":         "11:00",
		"interval_minutes": 30,
	}
}

func TestScheduleAndBookingFlow(t *testing.T) {
	api := newTestAPI(t)
	token := api.login(t, "admin@clinic.test")

	code, env := api.do(t, http.MethodPost, "/api/v1/schedules", api.scheduleBody("01.05.2024"), token)
	require.Equal(t, http.StatusCreated, code, env.Message)
	assert.JSONEq(t, `{"created":4}`, string(env.Data))

	code, env = api.do(t, http.MethodPost, "/api/v1/schedules", api.scheduleBody("01.05.2024"), token)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "SLOT_CONFLICT", string(env.Code))
	assert.False(t, env.Retryable)

	code, env = api.do(t, http.MethodGet, fmt.Sprintf("/api/v1/schedules/available?doctor_id=%s&date=01.05.2024", api.doctorID), nil, token)
	require.Equal(t, http.StatusOK, code)
	var free []model.AvailableSlot
	require.NoError(t, json.Unmarshal(env.Data, &free))
	require.Len(t, free, 4)
	assert.Equal(t, time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC).UnixMilli(), free[0].StartEpochMillis)

	visitBody := map[string]interface{}{
		"slot_id":          free[0].SlotID,
		"doctor_id":        api.doctorID,
		"last_name":        "Sidorova",
		"first_name":       "Maria",
		"mobile":           "+79001234567",
		"financing_source": "insurance",
	}
	code, env = api.do(t, http.MethodPost, "/api/v1/visits", visitBody, token)
	require.Equal(t, http.StatusCreated, code, env.Message)
	var created model.CreateVisitResponse
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.NotEqual(t, uuid.Nil, created.VisitID)

	code, env = api.do(t, http.MethodPost, "/api/v1/visits", visitBody, token)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "SLOT_ALREADY_BOOKED", string(env.Code))

	code, env = api.do(t, http.MethodGet, fmt.Sprintf("/api/v1/schedules/available?doctor_id=%s&date=01.05.2024", api.doctorID), nil, token)
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.Data, &free))
	assert.Len(t, free, 3)

	from := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC).UnixMilli()
	to := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC).UnixMilli()
	code, env = api.do(t, http.MethodGet, fmt.Sprintf("/api/v1/visits?date_start=%d&date_end=%d", from, to), nil, token)
	require.Equal(t, http.StatusOK, code)
	var events []model.CalendarEvent
	require.NoError(t, json.Unmarshal(env.Data, &events))
	require.Len(t, events, 1)
	assert.Equal(t, "Patient: Sidorova Maria  Doctor: Petrov I.", events[0].Title)
	assert.Equal(t, "#3366ff", events[0].BackgroundColor)

	code, _ = api.do(t, http.MethodGet, "/api/v1/visits/"+created.VisitID.String(), nil, token)
	assert.Equal(t, http.StatusOK, code)

	code, env = api.do(t, http.MethodGet, "/api/v1/schedules/summary/"+api.doctorID.String(), nil, token)
	require.Equal(t, http.StatusOK, code)
	var span model.ScheduleSpan
	require.NoError(t, json.Unmarshal(env.Data, &span))
	assert.Equal(t, 4, span.Total)
	assert.Equal(t, 1, span.Busy)

	assert.Len(t, api.store.Events(), 1)
}

func TestConcurrentBookingOverHTTP(t *testing.T) {
	api := newTestAPI(t)
	token := api.login(t, "admin@clinic.test")

	code, _ := api.do(t, http.MethodPost, "/api/v1/schedules", api.scheduleBody("02.05.2024"), token)
	require.Equal(t, http.StatusCreated, code)
	_, env := api.do(t, http.MethodGet, fmt.Sprintf("/api/v1/schedules/available?doctor_id=%s&date=02.05.2024", api.doctorID), nil, token)
	var free []model.AvailableSlot
	require.NoError(t, json.Unmarshal(env.Data, &free))
	require.NotEmpty(t, free)

	body, err := json.Marshal(map[string]interface{}{
		"slot_id":          free[0].SlotID,
		"doctor_id":        api.doctorID,
		"last_name":        "Sidorova",
		"first_name":       "Maria",
		"mobile":           "+79001234567",
		"financing_source": "paid",
	})
	require.NoError(t, err)

	const clients = 20
	codes := make(chan int, clients)
	var wg sync.WaitGroup
	for i := 0; i < clients; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodPost, "/api/v1/visits", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Authorization", "Bearer "+token)
			w := httptest.NewRecorder()
			api.engine.ServeHTTP(w, req)
			codes <- w.Code
		}()
	}
	wg.Wait()
	close(codes)

	byCode := map[int]int{}
	for c := range codes {
		byCode[c]++
	}
	assert.Equal(t, 1, byCode[http.StatusCreated])
	assert.Equal(t, clients-1, byCode[http.StatusConflict])
	assert.Equal(t, 1, api.store.VisitCount(free[0].SlotID))
}

func TestHolidayBlocksGeneration(t *testing.T) {
	api := newTestAPI(t)
	token := api.login(t, "admin@clinic.test")

	code, env := api.do(t, http.MethodPost, "/api/v1/holidays", map[string]string{"date": "09.05.2024", "name": "Victory Day"}, token)
	require.Equal(t, http.StatusCreated, code, env.Message)
	assert.Contains(t, string(env.Data), `"date":"09.05.2024"`)

	code, env = api.do(t, http.MethodPost, "/api/v1/schedules", api.scheduleBody("09.05.2024"), token)
	require.Equal(t, http.StatusCreated, code)
	assert.JSONEq(t, `{"created":0}`, string(env.Data))

	code, env = api.do(t, http.MethodGet, "/api/v1/holidays?year=2024", nil, token)
	require.Equal(t, http.StatusOK, code)
	var list []map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list, 1)

	code, _ = api.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/holidays/%s", list[0]["id"]), nil, token)
	assert.Equal(t, http.StatusOK, code)

	code, env = api.do(t, http.MethodPost, "/api/v1/schedules", api.scheduleBody("09.05.2024"), token)
	require.Equal(t, http.StatusCreated, code)
	assert.JSONEq(t, `{"created":4}`, string(env.Data))
}

func TestAuthAndPermissions(t *testing.T) {
	api := newTestAPI(t)

	code, env := api.do(t, http.MethodGet, "/api/v1/schedules/summary", nil, "")
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "UNAUTHORIZED", string(env.Code))

	code, _ = api.do(t, http.MethodGet, "/api/v1/schedules/summary", nil, "not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, code)

	code, env = api.do(t, http.MethodPost, "/api/v1/auth/login", map[string]string{"email": "admin@clinic.test", "password": "wrong-password"}, "")
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "invalid credentials", env.Message)

	reader := api.login(t, "reader@clinic.test")
	code, _ = api.do(t, http.MethodGet, "/api/v1/schedules/summary", nil, reader)
	assert.Equal(t, http.StatusOK, code)

	code, env = api.do(t, http.MethodPost, "/api/v1/schedules", api.scheduleBody("01.05.2024"), reader)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "FORBIDDEN", string(env.Code))
}

func TestRequestValidation(t *testing.T) {
	api := newTestAPI(t)
	token := api.login(t, "admin@clinic.test")

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		code   string
	}{
		{"bad date format", http.MethodPost, "/api/v1/schedules", map[string]interface{}{
			"date_mode": "single", "date": "2024-05-01", "doctor_id": api.doctorID,
			"start_time": "09:00", "end_time": "11:00", "interval_minutes": 30,
		}, "INVALID_RANGE"},
		{"impossible calendar date", http.MethodPost, "/api/v1/schedules", map[string]interface{}{
			"date_mode": "single", "date": "31.02.2024", "doctor_id": api.doctorID,
			"start_time": "09:00", "end_time": "11:00", "interval_minutes": 30,
		}, "INVALID_RANGE"},
		{"unparseable range end", http.MethodPost, "/api/v1/schedules", map[string]interface{}{
			"date_mode": "range", "dates": []string{"01.05.2024", "bogus"}, "doctor_id": api.doctorID,
			"start_time": "09:00", "end_time": "11:00", "interval_minutes": 30,
		}, "INVALID_RANGE"},
		{"range with one date", http.MethodPost, "/api/v1/schedules", map[string]interface{}{
			"date_mode": "range", "dates": []string{"01.05.2024"}, "doctor_id": api.doctorID,
			"start_time": "09:00", "end_time": "11:00", "interval_minutes": 30,
		}, "INVALID_RANGE"},
		{"bad holiday date", http.MethodPost, "/api/v1/holidays", map[string]string{"date": "2024-05-09", "name": "Victory Day"}, "INVALID_RANGE"},
		{"end before start", http.MethodPost, "/api/v1/schedules", map[string]interface{}{
			"date_mode": "single", "date": "01.05.2024", "doctor_id": api.doctorID,
			"start_time": "11:00", "end_time": "09:00", "interval_minutes": 30,
		}, "INVALID_RANGE"},
		{"negative interval", http.MethodPost, "/api/v1/schedules", map[string]interface{}{
			"date_mode": "single", "date": "01.05.2024", "doctor_id": api.doctorID,
			"start_time": "09:00", "end_time": "11:00", "interval_minutes": -10,
		}, "INVALID_PARAMETER"},
		{"malformed json", http.MethodPost, "/api/v1/schedules", "{", "INVALID_PARAMETER"},
		{"missing doctor", http.MethodGet, "/api/v1/schedules/available?date=01.05.2024", nil, "INVALID_PARAMETER"},
		{"bad availability date", http.MethodGet, fmt.Sprintf("/api/v1/schedules/available?doctor_id=%s&date=May", api.doctorID), nil, "INVALID_RANGE"},
		{"missing calendar bounds", http.MethodGet, "/api/v1/visits", nil, "INVALID_RANGE"},
		{"inverted calendar bounds", http.MethodGet, "/api/v1/visits?date_start=2000&date_end=1000", nil, "INVALID_RANGE"},
		{"visit without patient", http.MethodPost, "/api/v1/visits", map[string]interface{}{
			"slot_id": uuid.New(), "doctor_id": api.doctorID, "financing_source": "paid",
		}, "INVALID_PARAMETER"},
		{"unknown financing", http.MethodPost, "/api/v1/visits", map[string]interface{}{
			"slot_id": uuid.New(), "doctor_id": api.doctorID, "financing_source": "barter",
			"last_name": "A", "first_name": "B", "mobile": "+79001234567",
		}, "INVALID_PARAMETER"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, env := api.do(t, tt.method, tt.path, tt.body, token)
			assert.Equal(t, http.StatusBadRequest, code)
			assert.Equal(t, tt.code, string(env.Code), env.Message)
			assert.NotEmpty(t, env.RequestID)
		})
	}
}

func TestOpsEndpoints(t *testing.T) {
	api := newTestAPI(t)

	w := httptest.NewRecorder()
	api.engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(middleware.HeaderXRequestID))

	w = httptest.NewRecorder()
	api.engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	api.engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "test_http")
}
