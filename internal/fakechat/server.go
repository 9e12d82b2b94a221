// Package fakechat is a local stand-in for the chat web client. It serves a
// landing page, a per-recipient chat page at /send and records every message
// whose send button is clicked.
package fakechat

import (
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Delivery is one message submitted through the chat page.
type Delivery struct {
	ID    string    `json:"id"`
	Phone string    `json:"phone"`
	Text  string    `json:"text"`
	At    time.Time `json:"at"`
}

type Server struct {
	logger    *slog.Logger
	chatDelay time.Duration
	invalid   map[string]bool

	mu         sync.Mutex
	deliveries []Delivery
}

// Option configures a Server.
type Option func(*Server)

// WithChatDelay delays the appearance of the chat input.
func WithChatDelay(d time.Duration) Option {
	return func(s *Server) { s.chatDelay = d }
}

// WithInvalidPhones makes /send show the invalid number popup for phones.
func WithInvalidPhones(phones ...string) Option {
	return func(s *Server) {
		for _, p := range phones {
			s.invalid[p] = true
		}
	}
}

func NewServer(logger *slog.Logger, opts ...Option) *Server {
	s := &Server{
		logger:  logger,
		invalid: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Deliveries returns a copy of the recorded messages.
func (s *Server) Deliveries() []Delivery {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Delivery(nil), s.deliveries...)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	s.logger.Debug("incoming request",
		"method", r.Method,
		"path", r.URL.Path,
	)

	switch r.URL.Path {
	case "/health":
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"healthy"}`))
	case "/":
		s.render(w, landingPage, nil)
	case "/send":
		s.handleSend(w, r)
	case "/messages":
		s.handleMessages(w, r)
	default:
		http.NotFound(w, r)
		return
	}

	s.logger.Debug("request served", "path", r.URL.Path, "duration", time.Since(start))
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	phone := r.URL.Query().Get("phone")
	text := r.URL.Query().Get("text")

	if s.invalid[phone] {
		s.logger.Info("invalid phone requested", "phone", phone)
		s.render(w, popupPage, nil)
		return
	}

	s.render(w, chatPage, map[string]any{
		"Phone":   phone,
		"Text":    text,
		"DelayMS": s.chatDelay.Milliseconds(),
	})
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(s.Deliveries())
	case http.MethodPost:
		body, err := io.ReadAll(r.Body)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			s.logger.Error("failed to read request body", "error", err)
			return
		}
		defer r.Body.Close()

		var d Delivery
		if err := json.Unmarshal(body, &d); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			s.logger.Error("failed to parse request JSON", "error", err)
			return
		}
		d.ID = fmt.Sprintf("wamid.mock-%s", uuid.New().String())
		d.At = time.Now()

		s.mu.Lock()
		s.deliveries = append(s.deliveries, d)
		s.mu.Unlock()

		s.logger.Info("message delivered", "message_id", d.ID, "phone", d.Phone)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(d)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) render(w http.ResponseWriter, t *template.Template, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := t.Execute(w, data); err != nil {
		s.logger.Error("render page", "error", err)
	}
}

var landingPage = template.Must(template.New("landing").Parse(`<!doctype html>
<html><head><meta charset="utf-8"><title>Chat</title></head>
<body><div id="qr">Escanea el código QR</div></body></html>`))

var popupPage = template.Must(template.New("popup").Parse(`<!doctype html>
<html><head><meta charset="utf-8"><title>Chat</title></head>
<body>
<div id="popup">El número de teléfono compartido a través de la dirección URL no es válido.
<div role="button" data-testid="popup-controls-ok" onclick="document.getElementById('popup').remove()">OK</div>
</div>
</body></html>`))

var chatPage = template.Must(template.New("chat").Parse(`<!doctype html>
<html><head><meta charset="utf-8"><title>Chat</title></head>
<body>
<div id="chat"></div>
<script>
const phone = {{.Phone}};
const text = {{.Text}};
setTimeout(() => {
  const input = document.createElement("div");
  input.setAttribute("contenteditable", "true");
  input.setAttribute("data-tab", "10");
  input.textContent = text;
  const send = document.createElement("button");
  send.setAttribute("aria-label", "Enviar");
  send.textContent = "Enviar";
  send.onclick = () => {
    fetch("/messages", {method: "POST", body: JSON.stringify({phone: phone, text: input.textContent})});
    input.textContent = "";
  };
  const chat = document.getElementById("chat");
  chat.appendChild(input);
  chat.appendChild(send);
}, {{.DelayMS}});
</script>
</body></html>`))
