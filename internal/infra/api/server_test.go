//go:build !integration

package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contract-plan-manager/internal/domain"
	"contract-plan-manager/internal/infra/metrics"
	red "contract-plan-manager/internal/infra/redis"
	"contract-plan-manager/internal/usecase"
)

func TestMain(m *testing.M) {
	decimal.MarshalJSONWithoutQuotes = true
	os.Exit(m.Run())
}

type deps struct {
	plans     *stubPlans
	contracts *stubContracts
	requests  *stubRequests
}

func newDeps() *deps {
	return &deps{plans: &stubPlans{}, contracts: &stubContracts{}, requests: &stubRequests{}}
}

func (d *deps) handler(opts Options) http.Handler {
	return NewServer(d.plans, d.contracts, d.requests, opts, testLogger()).Router()
}

func do(t *testing.T, h http.Handler, method, path, body string, mods ...func(*http.Request)) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for _, m := range mods {
		m(req)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var resp Response
	if rec.Body.Len() > 0 && strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	}
	return rec, resp
}

func TestHealthAndRequestID(t *testing.T) {
	h := newDeps().handler(Options{})

	rec, resp := do(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec, _ = do(t, h, http.MethodGet, "/health", "", func(r *http.Request) { r.Header.Set("X-Request-ID", "abc") })
	assert.Equal(t, "abc", rec.Header().Get("X-Request-ID"))

	rec, resp = do(t, h, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, resp.Success)
}

func TestReady(t *testing.T) {
	d := newDeps()
	up := ReadinessCheck{Name: "postgres", Ping: func(context.Context) error { return nil }}
	down := ReadinessCheck{Name: "redis", Ping: func(context.Context) error { return errors.New("dial tcp: refused") }}

	rec, resp := do(t, d.handler(Options{Checks: []ReadinessCheck{up}}), http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)

	rec, resp = do(t, d.handler(Options{Checks: []ReadinessCheck{up, down}}), http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, []string{"redis unavailable"}, resp.Errors)
}

func TestPlans(t *testing.T) {
	d := newDeps()
	id := uuid.NewString()
	d.plans.list = func(context.Context) ([]usecase.PaymentPlanDTO, error) {
		return []usecase.PaymentPlanDTO{{ID: id, Name: "Basic", MonthlyPrice: decimal.RequireFromString("29.99")}}, nil
	}
	d.plans.get = func(_ context.Context, got string) (*usecase.PaymentPlanDTO, error) {
		return nil, fmt.Errorf("%w: payment plan %s", domain.ErrNotFound, got)
	}
	var created usecase.CreatePaymentPlanInput
	d.plans.create = func(_ context.Context, in usecase.CreatePaymentPlanInput) (*usecase.PaymentPlanDTO, error) {
		created = in
		return &usecase.PaymentPlanDTO{ID: id, Name: in.Name, MonthlyPrice: in.MonthlyPrice}, nil
	}
	d.plans.deactivate = func(context.Context, string) error { return errors.New("connection reset") }
	h := d.handler(Options{})

	t.Run("list serializes prices as numbers", func(t *testing.T) {
		rec, _ := do(t, h, http.MethodGet, "/api/paymentplans", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"monthlyPrice":29.99`)
	})

	t.Run("invalid id", func(t *testing.T) {
		rec, resp := do(t, h, http.MethodGet, "/api/paymentplans/not-a-uuid", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.False(t, resp.Success)
	})

	t.Run("not found", func(t *testing.T) {
		rec, resp := do(t, h, http.MethodGet, "/api/paymentplans/"+id, "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "Payment plan not found", resp.Message)
	})

	t.Run("create", func(t *testing.T) {
		body := `{"name":"Pro","description":"d","monthlyPrice":79.99,"billingCycle":"Monthly","tier":"Premium"}`
		rec, resp := do(t, h, http.MethodPost, "/api/paymentplans", body)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		assert.Equal(t, "Payment plan created successfully", resp.Message)
		assert.Equal(t, "/api/paymentplans/"+id, rec.Header().Get("Location"))
		assert.True(t, created.MonthlyPrice.Equal(decimal.RequireFromString("79.99")))
		assert.Equal(t, "Premium", created.Tier.String())
	})

	t.Run("create validation", func(t *testing.T) {
		body := `{"name":"","monthlyPrice":0,"billingCycle":"Weekly","tier":"Gold"}`
		rec, resp := do(t, h, http.MethodPost, "/api/paymentplans", body)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Validation failed", resp.Message)
		assert.Contains(t, resp.Errors, "Plan name is required")
		assert.Contains(t, resp.Errors, "Monthly price must be greater than zero")
		assert.Contains(t, resp.Errors, "Invalid billing cycle. Valid values: Monthly, Quarterly, Annually")
		assert.Contains(t, resp.Errors, "Invalid plan tier. Valid values: Basic, Standard, Premium, Enterprise")
	})

	t.Run("price ceiling", func(t *testing.T) {
		body := `{"name":"X","monthlyPrice":100000.01,"billingCycle":"Monthly","tier":"Basic"}`
		rec, resp := do(t, h, http.MethodPost, "/api/paymentplans", body)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, resp.Errors, "Monthly price seems unreasonably high")
	})

	t.Run("malformed body", func(t *testing.T) {
		rec, _ := do(t, h, http.MethodPost, "/api/paymentplans", `{"name":`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("infrastructure failure is hidden", func(t *testing.T) {
		rec, resp := do(t, h, http.MethodPost, "/api/paymentplans/"+id+"/deactivate", "")
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "Internal server error", resp.Message)
		assert.NotContains(t, rec.Body.String(), "connection reset")
	})
}

func TestContracts(t *testing.T) {
	fixed := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	prevToday := today
	today = func() time.Time { return fixed }
	t.Cleanup(func() { today = prevToday })

	d := newDeps()
	planID := uuid.NewString()
	d.contracts.create = func(_ context.Context, in usecase.CreateContractInput) (*usecase.ContractDTO, error) {
		if in.ContractNumber == "CNT-DUP" {
			return nil, fmt.Errorf("%w: contract number CNT-DUP", domain.ErrAlreadyExists)
		}
		return &usecase.ContractDTO{ID: uuid.NewString(), ContractNumber: in.ContractNumber, StartDate: in.StartDate}, nil
	}
	var gotEnd time.Time
	d.contracts.terminate = func(_ context.Context, _ string, end time.Time) error {
		gotEnd = end
		if end.Year() < 2025 {
			return fmt.Errorf("%w: end date cannot be before start date", domain.ErrValidation)
		}
		return fmt.Errorf("%w: contract is already terminated", domain.ErrInvalidState)
	}
	d.contracts.byNumber = func(_ context.Context, number string) (*usecase.ContractDTO, error) {
		return &usecase.ContractDTO{ContractNumber: number}, nil
	}
	h := d.handler(Options{})

	body := func(number, start string) string {
		return fmt.Sprintf(`{"contractNumber":%q,"customerName":"Acme","customerEmail":"a@acme.example","startDate":%q,"initialPaymentPlanId":%q}`,
			number, start, planID)
	}

	t.Run("create with date-only start", func(t *testing.T) {
		rec, resp := do(t, h, http.MethodPost, "/api/contracts", body("CNT-2025-001", "2025-03-10"))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		assert.Equal(t, "Contract created successfully", resp.Message)
	})

	t.Run("duplicate number is a conflict", func(t *testing.T) {
		rec, resp := do(t, h, http.MethodPost, "/api/contracts", body("CNT-DUP", "2025-03-11T00:00:00Z"))
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Contains(t, resp.Message, "already exists")
	})

	t.Run("rules", func(t *testing.T) {
		rec, resp := do(t, h, http.MethodPost, "/api/contracts", body("cnt-1", "2025-03-09"))
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, resp.Errors, "Contract number must contain only uppercase letters, numbers, and hyphens")
		assert.Contains(t, resp.Errors, "Start date cannot be in the past")
	})

	t.Run("by number", func(t *testing.T) {
		rec, _ := do(t, h, http.MethodGet, "/api/contracts/by-number/CNT-7", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"contractNumber":"CNT-7"`)
	})

	t.Run("terminate", func(t *testing.T) {
		path := "/api/contracts/" + uuid.NewString() + "/terminate"

		rec, _ := do(t, h, http.MethodPost, path, `"2025-12-31"`)
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.True(t, gotEnd.Equal(time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)))

		rec, _ = do(t, h, http.MethodPost, path, `"2024-01-01T00:00:00"`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec, _ = do(t, h, http.MethodPost, path, ``)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestChangeRequests(t *testing.T) {
	d := newDeps()
	var got usecase.ProcessPlanChangeRequestInput
	d.requests.process = func(_ context.Context, id string, in usecase.ProcessPlanChangeRequestInput) (*usecase.PlanChangeRequestDTO, error) {
		got = in
		status := "Rejected"
		if in.Approved {
			status = "Approved"
		}
		return &usecase.PlanChangeRequestDTO{ID: id, Status: status}, nil
	}
	d.requests.pending = func(context.Context) ([]usecase.PlanChangeRequestDTO, error) {
		return []usecase.PlanChangeRequestDTO{}, nil
	}
	h := d.handler(Options{})
	path := "/api/planchangerequests/" + uuid.NewString() + "/process"

	rec, resp := do(t, h, http.MethodPost, path, `{"approved":false,"processedBy":"admin"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, resp.Errors, "Rejection reason is required when rejecting a request")

	rec, resp = do(t, h, http.MethodPost, path, `{"approved":true,"processedBy":"admin"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Plan change request approved", resp.Message)
	assert.True(t, got.Approved)

	rec, resp = do(t, h, http.MethodPost, path, `{"approved":false,"processedBy":"admin","rejectionReason":"budget"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Plan change request rejected", resp.Message)
	assert.Equal(t, "budget", got.RejectionReason)

	rec, resp = do(t, h, http.MethodGet, "/api/planchangerequests/pending", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []interface{}{}, resp.Data)
}

func TestAuth(t *testing.T) {
	d := newDeps()
	d.requests.pending = func(context.Context) ([]usecase.PlanChangeRequestDTO, error) { return nil, nil }
	auth := NewAuthManager("test-admin-jwt-secret-please-change", "s3cret", false, time.Minute)
	h := d.handler(Options{Auth: auth})

	rec, _ := do(t, h, http.MethodGet, "/api/planchangerequests/pending", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = do(t, h, http.MethodGet, "/api/planchangerequests/pending", "", func(r *http.Request) {
		r.Header.Set("Authorization", "Basic abc")
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = do(t, h, http.MethodPost, "/api/auth/login", `{"password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, resp := do(t, h, http.MethodPost, "/api/auth/login", `{"password":"s3cret"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	data, _ := resp.Data.(map[string]interface{})
	token, _ := data["token"].(string)
	require.NotEmpty(t, token)
	require.NotEmpty(t, rec.Result().Cookies())

	rec, _ = do(t, h, http.MethodGet, "/api/planchangerequests/pending", "", func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = do(t, h, http.MethodGet, "/api/planchangerequests/pending", "", func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: "admin_session", Value: token})
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	other := NewAuthManager("another-secret", "x", false, time.Minute)
	forged, err := other.Mint(httptest.NewRecorder(), "admin")
	require.NoError(t, err)
	rec, _ = do(t, h, http.MethodGet, "/api/planchangerequests/pending", "", func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+forged)
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRateLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	client := red.Wrap(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = client.Close() })

	d := newDeps()
	d.requests.pending = func(context.Context) ([]usecase.PlanChangeRequestDTO, error) { return nil, nil }
	h := d.handler(Options{Limiter: red.NewRateLimiter(client), RateLimit: 2, RateWindow: time.Minute})

	for i := 0; i < 2; i++ {
		rec, _ := do(t, h, http.MethodGet, "/api/planchangerequests/pending", "")
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec, resp := do(t, h, http.MethodGet, "/api/planchangerequests/pending", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "Too many requests", resp.Message)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))

	// health is outside the limited group
	rec, _ = do(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimit_ForwardedFor(t *testing.T) {
	mr := miniredis.RunT(t)
	client := red.Wrap(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = client.Close() })

	newHandler := func(trustProxy bool) http.Handler {
		mr.FlushAll()
		d := newDeps()
		d.requests.pending = func(context.Context) ([]usecase.PlanChangeRequestDTO, error) { return nil, nil }
		return d.handler(Options{Limiter: red.NewRateLimiter(client), RateLimit: 2, RateWindow: time.Minute, TrustProxy: trustProxy})
	}
	from := func(hop int) func(*http.Request) {
		return func(r *http.Request) {
			r.RemoteAddr = "203.0.113.7:40000"
			r.Header.Set("X-Forwarded-For", fmt.Sprintf("10.0.0.%d", hop))
		}
	}

	t.Run("rotating the header does not reset the client's window", func(t *testing.T) {
		h := newHandler(false)
		codes := make([]int, 0, 5)
		for i := 0; i < 5; i++ {
			rec, _ := do(t, h, http.MethodGet, "/api/planchangerequests/pending", "", from(i))
			codes = append(codes, rec.Code)
		}
		assert.Equal(t, []int{200, 200, 429, 429, 429}, codes)
		assert.True(t, mr.Exists(red.ClientKey("203.0.113.7")))
	})

	t.Run("behind a trusted proxy each forwarded client has its own window", func(t *testing.T) {
		h := newHandler(true)
		for i := 0; i < 5; i++ {
			rec, _ := do(t, h, http.MethodGet, "/api/planchangerequests/pending", "", from(i))
			assert.Equal(t, http.StatusOK, rec.Code)
		}
		assert.False(t, mr.Exists(red.ClientKey("203.0.113.7")))
		assert.True(t, mr.Exists(red.ClientKey("10.0.0.4")))
	})
}

func TestRecoverer(t *testing.T) {
	d := newDeps()
	d.plans.list = func(context.Context) ([]usecase.PaymentPlanDTO, error) { panic("boom") }
	h := d.handler(Options{})

	rec, _ := do(t, h, http.MethodGet, "/api/paymentplans", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec, _ = do(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCORS(t *testing.T) {
	preflight := func(origin string) func(*http.Request) {
		return func(r *http.Request) {
			r.Header.Set("Origin", origin)
			r.Header.Set("Access-Control-Request-Method", http.MethodPost)
		}
	}

	t.Run("listed origin with credentials", func(t *testing.T) {
		h := newDeps().handler(Options{AllowedOrigins: []string{"http://localhost:4200"}})
		rec, _ := do(t, h, http.MethodOptions, "/api/contracts", "", preflight("http://localhost:4200"))
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "http://localhost:4200", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

		rec, _ = do(t, h, http.MethodGet, "/health", "", func(r *http.Request) {
			r.Header.Set("Origin", "http://evil.example")
		})
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("no origins configured disables cross-origin access", func(t *testing.T) {
		h := newDeps().handler(Options{})
		rec, _ := do(t, h, http.MethodGet, "/health", "", func(r *http.Request) {
			r.Header.Set("Origin", "http://evil.example")
		})
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Credentials"))
	})

	t.Run("wildcard never sends credentials", func(t *testing.T) {
		h := newDeps().handler(Options{AllowedOrigins: []string{"*"}})
		rec, _ := do(t, h, http.MethodOptions, "/api/contracts", "", preflight("http://any.example"))
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Credentials"))
	})
}

func TestMetricsEndpoint(t *testing.T) {
	metrics.MustRegister()
	h := newDeps().handler(Options{MetricsPath: "/metrics"})

	do(t, h, http.MethodGet, "/health", "")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `http_requests_total{method="GET",route="/health",status="200"}`)
}

func TestDateUnmarshal(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
		err  bool
	}{
		{`"2025-01-02"`, time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC), false},
		{`"2025-01-02T10:30:00"`, time.Date(2025, 1, 2, 10, 30, 0, 0, time.UTC), false},
		{`"2025-01-02T10:30:00+02:00"`, time.Date(2025, 1, 2, 8, 30, 0, 0, time.UTC), false},
		{`null`, time.Time{}, false},
		{`"02/01/2025"`, time.Time{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var d Date
			err := d.UnmarshalJSON([]byte(tt.in))
			if tt.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, d.Equal(tt.want), d.Time)
		})
	}
}
