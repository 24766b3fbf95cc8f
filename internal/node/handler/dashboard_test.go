package handler_test

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmerrifield20/hotelledger/internal/ledger"
	"github.com/jmerrifield20/hotelledger/internal/node/handler"
	"go.uber.org/zap"
)

func setupDashboard(t *testing.T) (*gin.Engine, *ledger.Ledger) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tmpl, err := handler.ParseTemplates()
	if err != nil {
		t.Fatal(err)
	}
	l := ledger.New()
	r := gin.New()
	handler.NewDashboardHandler(l, tmpl, time.UTC, zap.NewNop()).Register(r)
	return r, l
}

func postForm(router *gin.Engine, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func bookingForm() url.Values {
	return url.Values{
		"customer_name": {"Kabir Shah"},
		"room_number":   {"12A"},
		"check_in":      {"2024-08-01"},
		"check_out":     {"2024-08-02"},
		"amount":        {"1800"},
	}
}

func TestDashboardIndex_rendersGenesis(t *testing.T) {
	router, _ := setupDashboard(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{"Hotel Booking Ledger", "Genesis Block", "Valid", "Total Confirmed Bookings"} {
		if !strings.Contains(body, want) {
			t.Errorf("dashboard missing %q", want)
		}
	}
}

func TestDashboardAddAndMine(t *testing.T) {
	router, l := setupDashboard(t)

	w := postForm(router, "/add_transaction", bookingForm())
	if w.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d: %s", w.Code, w.Body.String())
	}
	if loc := w.Header().Get("Location"); loc != "/" {
		t.Errorf("expected redirect to /, got %q", loc)
	}
	if len(l.Pending()) != 1 {
		t.Fatalf("expected 1 pending booking, got %d", len(l.Pending()))
	}

	w = postForm(router, "/mine_block", nil)
	if w.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", w.Code)
	}
	if l.Len() != 2 {
		t.Fatalf("expected 2 blocks, got %d", l.Len())
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	body := rec.Body.String()
	if !strings.Contains(body, "Kabir Shah | Room 12A") {
		t.Errorf("mined booking not rendered:\n%s", body)
	}
	if !strings.Contains(body, "1800.00") {
		t.Error("amount should be rendered with two decimals")
	}
}

func TestDashboardMine_emptyQueueRedirects(t *testing.T) {
	router, l := setupDashboard(t)

	w := postForm(router, "/mine_block", nil)
	if w.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", w.Code)
	}
	if l.Len() != 1 {
		t.Errorf("expected chain length 1, got %d", l.Len())
	}
}

func TestDashboardAdd_invalidRerendersWithErrors(t *testing.T) {
	router, l := setupDashboard(t)

	form := bookingForm()
	form.Set("amount", "-5")
	w := postForm(router, "/add_transaction", form)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "must not be negative") {
		t.Error("expected amount error in page")
	}
	if !strings.Contains(w.Body.String(), `value="Kabir Shah"`) {
		t.Error("form values should be preserved on error")
	}
	if len(l.Pending()) != 0 {
		t.Error("rejected booking must not be queued")
	}

	form.Del("room_number")
	w = postForm(router, "/add_transaction", form)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestDashboard_showsCompromisedLedger(t *testing.T) {
	router, l := setupDashboard(t)
	postForm(router, "/add_transaction", bookingForm())
	postForm(router, "/mine_block", nil)

	if err := l.Tamper(1, func(b *ledger.Block) { b.Data.Transactions[0].Amount = "1" }); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if !strings.Contains(w.Body.String(), "Compromised (block 1") {
		t.Errorf("expected compromised banner, got:\n%s", w.Body.String())
	}
}

func TestFormatTimestamp(t *testing.T) {
	ts := ledger.Timestamp(time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC))
	if got := handler.FormatTimestamp(ts, time.UTC); got != "2024-03-09 14:05:07" {
		t.Errorf("FormatTimestamp UTC: got %q", got)
	}

	ist := time.FixedZone("IST", 5*3600+1800)
	if got := handler.FormatTimestamp(ts, ist); got != "2024-03-09 19:35:07" {
		t.Errorf("FormatTimestamp IST: got %q", got)
	}
}
