package gateway

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"ussd-gateway/internal/ussd"
)

type stubEngine struct {
	gotReq ussd.Request
	reply  ussd.Reply
	err    error
}

func (s *stubEngine) Handle(ctx context.Context, req ussd.Request) (ussd.Reply, error) {
	s.gotReq = req
	return s.reply, s.err
}

func postForm(t *testing.T, h *Handler, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/ussd", h.Inbound)

	req := httptest.NewRequest(http.MethodPost, "/ussd", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestInbound_FramesContinue(t *testing.T) {
	eng := &stubEngine{reply: ussd.Reply{Text: "1. Book Ride\n2. Check Balance\n3. Ride Status"}}
	w := postForm(t, NewHandler(eng), url.Values{
		"sessionId":   {"at-1"},
		"phoneNumber": {"+254700000001"},
		"serviceCode": {"*384#"},
		"text":        {""},
	})

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if got := w.Body.String(); got != "CON 1. Book Ride\n2. Check Balance\n3. Ride Status" {
		t.Fatalf("unexpected body: %q", got)
	}
	if !strings.HasPrefix(w.Header().Get("Content-Type"), "text/plain") {
		t.Fatalf("unexpected content type: %q", w.Header().Get("Content-Type"))
	}
}

func TestInbound_FramesRelease(t *testing.T) {
	eng := &stubEngine{reply: ussd.Reply{Text: "Booking cancelled.", End: true}}
	w := postForm(t, NewHandler(eng), url.Values{
		"sessionId":   {"at-1"},
		"phoneNumber": {"+254700000001"},
		"text":        {"1*2"},
	})
	if got := w.Body.String(); got != "END Booking cancelled." {
		t.Fatalf("unexpected body: %q", got)
	}
}

func TestInbound_NormalizesPhone(t *testing.T) {
	eng := &stubEngine{reply: ussd.Reply{Text: "ok"}}
	postForm(t, NewHandler(eng), url.Values{
		"sessionId":   {"at-1"},
		"phoneNumber": {"254 700-000 001"},
		"text":        {""},
	})
	if eng.gotReq.PhoneNumber != "+254700000001" {
		t.Fatalf("unexpected phone: %q", eng.gotReq.PhoneNumber)
	}
}

func TestInbound_MissingFieldsFailClosed(t *testing.T) {
	eng := &stubEngine{reply: ussd.Reply{Text: "ok"}}
	w := postForm(t, NewHandler(eng), url.Values{"text": {"1"}})

	if w.Code != http.StatusOK {
		t.Fatalf("aggregator callbacks must always get 200, got %d", w.Code)
	}
	if !strings.HasPrefix(w.Body.String(), "END ") {
		t.Fatalf("expected END frame, got %q", w.Body.String())
	}
}

func TestInbound_EngineErrorFailsClosed(t *testing.T) {
	eng := &stubEngine{err: errors.New("redis down")}
	w := postForm(t, NewHandler(eng), url.Values{
		"sessionId":   {"at-1"},
		"phoneNumber": {"+254700000001"},
		"text":        {"1"},
	})
	if w.Code != http.StatusOK || !strings.HasPrefix(w.Body.String(), "END ") {
		t.Fatalf("expected 200 END on engine failure, got %d %q", w.Code, w.Body.String())
	}
}

func TestNormalizePhone(t *testing.T) {
	cases := map[string]string{
		"+254700000001":    "+254700000001",
		"254700000001":     "+254700000001",
		" +254 700 000001": "+254700000001",
		"(254) 700-000001": "+254700000001",
		"":                 "",
		"+":                "",
	}
	for in, want := range cases {
		if got := normalizePhone(in); got != want {
			t.Fatalf("normalizePhone(%q) = %q, want %q", in, got, want)
		}
	}
}
