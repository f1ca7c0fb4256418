package budget

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/fkhayef/finance/pkg/middleware"
)

func serve(f *fixture, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req = req.WithContext(middleware.WithUserID(req.Context(), f.user))
	rec := httptest.NewRecorder()
	NewHandler(f.svc).Routes().ServeHTTP(rec, req)
	return rec
}

func TestHandlerCreateAndPerformance(t *testing.T) {
	f := newFixture()

	rec := serve(f, http.MethodPost, "/", `{"name":"Food","amount":"500","currency":"EUR","period_type":"monthly","start_date":"2024-03-01","alert_threshold":80}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body)
	}

	var created struct {
		Data BudgetResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatal(err)
	}
	if created.Data.EndDate == nil || *created.Data.EndDate != "2024-03-31" {
		t.Errorf("end_date = %v, want 2024-03-31", created.Data.EndDate)
	}

	base := d("410")
	f.store.expenses = []Expense{{ID: uuid.New(), Amount: base, Currency: "EUR", AmountInBaseCurrency: &base, Date: day("2024-03-12")}}

	rec = serve(f, http.MethodGet, "/"+created.Data.ID.String()+"/performance", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("performance status = %d, body %s", rec.Code, rec.Body)
	}
	var perf struct {
		Data PerformanceResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &perf); err != nil {
		t.Fatal(err)
	}
	if perf.Data.Status != StatusWarning || !perf.Data.Remaining.Equal(d("90")) || !perf.Data.ShouldAlert {
		t.Errorf("performance = %+v", perf.Data)
	}
}

func TestHandlerErrors(t *testing.T) {
	f := newFixture()
	unknown := uuid.New()

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"malformed body", http.MethodPost, "/", `{`, http.StatusBadRequest},
		{"validation", http.MethodPost, "/", `{"name":"","amount":"1","currency":"EUR","period_type":"monthly","start_date":"2024-03-01"}`, http.StatusBadRequest},
		{"configuration", http.MethodPost, "/", `{"name":"x","amount":"1","currency":"EUR","period_type":"monthly","start_date":"2024-03-01","category_id":"` + unknown.String() + `"}`, http.StatusUnprocessableEntity},
		{"bad id", http.MethodGet, "/not-a-uuid", "", http.StatusBadRequest},
		{"not found", http.MethodGet, "/" + unknown.String(), "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := serve(f, tt.method, tt.path, tt.body); rec.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.want, rec.Body)
			}
		})
	}
}
