package api

import (
	"context"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"marketplace-billing/internal/usecase"
)

// Server wires the payment callback route to PaymentUseCase.
type Server struct {
	payUC     usecase.PaymentUseCase
	cbPath    string
	returnURL string
}

// NewServer constructs the HTTP server layer for gateway callbacks.
// callbackPath must match the path portion of gateway.callback_url in config
// (e.g. /api/v1/payment/callback).
func NewServer(payUC usecase.PaymentUseCase, callbackPath string, returnURL string) *Server {
	if callbackPath == "" {
		callbackPath = "/api/payment/callback"
	}
	return &Server{payUC: payUC, cbPath: callbackPath, returnURL: returnURL}
}

// Register attaches handlers to the provided mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc(s.cbPath, s.handleCallback)
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	mux.Handle("/metrics", promhttp.Handler())
}

func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	q := r.URL.Query()
	authority := q.Get("Authority")
	status := q.Get("Status")

	if authority == "" {
		s.renderHTML(w, http.StatusBadRequest, false, "missing Authority")
		return
	}

	// If the gateway did not return OK, record the failure via ConfirmAuto
	if status != "OK" {
		if _, err := s.payUC.ConfirmAuto(ctx, authority); err != nil {
			s.renderHTML(w, http.StatusBadRequest, false, fmt.Sprintf("payment not approved (Status=%s)", status))
			return
		}
		s.renderHTML(w, http.StatusOK, false, fmt.Sprintf("payment not approved (Status=%s)", status))
		return
	}

	// Gateway says OK -> verify & finalize (idempotent inside UC)
	if _, err := s.payUC.ConfirmAuto(ctx, authority); err != nil {
		s.renderHTML(w, http.StatusBadRequest, false, fmt.Sprintf("verification failed: %v", err))
		return
	}
	s.renderHTML(w, http.StatusOK, true, "payment verified. credits have been added to your balance.")
}

var page = template.Must(template.New("cb").Parse(`<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8" />
<meta name="viewport" content="width=device-width,initial-scale=1" />
<title>Payment {{if .OK}}Success{{else}}Result{{end}}</title>
<style>
body{font-family:system-ui,Arial,sans-serif;margin:2rem;}
.card{max-width:560px;border:1px solid #ddd;border-radius:12px;padding:24px;}
.ok{color:#057a55} .fail{color:#b00020}
.btn{display:inline-block;margin-top:16px;padding:10px 16px;border-radius:8px;border:1px solid #888;text-decoration:none}
.small{font-size:12px;color:#666}
</style>
</head>
<body>
<div class="card">
  <h2 class="{{if .OK}}ok{{else}}fail{{end}}">{{if .OK}}✅ Payment Successful{{else}}⚠️ Payment Processed{{end}}</h2>
  <p>{{.Msg}}</p>
  {{if .ReturnURL}}
    <a class="btn" href="{{.ReturnURL}}">Back to the marketplace</a>
  {{end}}
</div>
</body>
</html>`))

func (s *Server) renderHTML(w http.ResponseWriter, code int, ok bool, msg string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	_ = page.Execute(w, struct {
		OK        bool
		Msg       string
		ReturnURL string
	}{
		OK:        ok,
		Msg:       msg,
		ReturnURL: s.returnURL,
	})
}
