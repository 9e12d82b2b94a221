package fakechat

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestServer(opts ...Option) *httptest.Server {
	return httptest.NewServer(NewServer(slog.New(slog.NewTextHandler(io.Discard, nil)), opts...))
}

func get(t *testing.T, url string) string {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET %s: status %d", url, resp.StatusCode)
	}
	return string(body)
}

func TestSendPage_EmbedsEscapedMessage(t *testing.T) {
	ts := newTestServer()
	defer ts.Close()

	body := get(t, ts.URL+"/send?phone=5511&text=Hola%20%3Cb%3EAna%3C%2Fb%3E")

	if !strings.Contains(body, `aria-label", "Enviar"`) {
		t.Error("chat page should build the send button")
	}
	if strings.Contains(body, "<b>Ana</b>") {
		t.Error("message must be escaped inside the script")
	}
}

func TestSendPage_InvalidPhoneShowsPopup(t *testing.T) {
	ts := newTestServer(WithInvalidPhones("0000"))
	defer ts.Close()

	body := get(t, ts.URL+"/send?phone=0000&text=hola")
	if !strings.Contains(body, `data-testid="popup-controls-ok"`) {
		t.Errorf("expected popup page, got %s", body)
	}
}

func TestMessages_RecordsDeliveries(t *testing.T) {
	srv := NewServer(slog.New(slog.NewTextHandler(io.Discard, nil)))
	ts := httptest.NewServer(srv)
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/messages", "application/json", strings.NewReader(`{"phone":"5511","text":"Hola"}`))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}

	var listed []Delivery
	if err := json.Unmarshal([]byte(get(t, ts.URL+"/messages")), &listed); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(listed) != 1 || listed[0].Phone != "5511" || listed[0].Text != "Hola" {
		t.Fatalf("deliveries = %+v", listed)
	}
	if !strings.HasPrefix(listed[0].ID, "wamid.mock-") {
		t.Errorf("ID = %s", listed[0].ID)
	}
	if got := srv.Deliveries(); len(got) != 1 {
		t.Errorf("Deliveries() = %v", got)
	}
}

func TestHealthAndNotFound(t *testing.T) {
	ts := newTestServer()
	defer ts.Close()

	if body := get(t, ts.URL+"/health"); !strings.Contains(body, "healthy") {
		t.Errorf("health body = %s", body)
	}

	resp, err := http.Get(ts.URL + "/nada")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}
