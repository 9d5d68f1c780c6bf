package webhook

import (
	"context"
	"encoding/xml"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sqlagent/sqlagent/internal/observability"
)

const (
	// FailureReply is sent when the runtime could not produce a reply.
	FailureReply = "Sorry, something went wrong. Please try again."
	maxFormBytes = 64 << 10
)

type Replier interface {
	Reply(ctx context.Context, sessionID, text string) (string, error)
}

type Config struct {
	AuthToken string
	// PublicURL is the externally visible base URL used when validating
	// signatures behind a proxy, for example https://bot.example.com.
	PublicURL string
	// SkipSignature disables signature validation for local development.
	SkipSignature bool
}

// Handler is the messaging webhook: it validates the request signature,
// passes the message body to the runtime and answers with TwiML.
type Handler struct {
	cfg     Config
	replier Replier
	logger  *slog.Logger
}

func NewHandler(cfg Config, replier Replier, logger *slog.Logger) (*Handler, error) {
	if replier == nil {
		return nil, fmt.Errorf("replier is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	cfg.PublicURL = strings.TrimRight(strings.TrimSpace(cfg.PublicURL), "/")
	return &Handler{cfg: cfg, replier: replier, logger: logger}, nil
}

type twimlResponse struct {
	XMLName xml.Name `xml:"Response"`
	Message string   `xml:"Message"`
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		observability.IncrementWebhookMessage("bad_request")
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	if !h.cfg.SkipSignature {
		signature := r.Header.Get("X-Twilio-Signature")
		if !validSignature(h.cfg.AuthToken, h.requestURL(r), r.PostForm, signature) {
			h.logger.Warn("rejected webhook with invalid signature", slog.String("trace_id", observability.TraceIDFromContext(r.Context())))
			observability.IncrementWebhookMessage("forbidden")
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
	}

	body := strings.TrimSpace(r.FormValue("Body"))
	sessionID := strings.ReplaceAll(r.FormValue("From"), "whatsapp:", "")

	reply, err := h.replier.Reply(r.Context(), sessionID, body)
	outcome := "ok"
	if err != nil {
		h.logger.Error("webhook reply failed",
			slog.Any("error", err),
			slog.String("session_id", sessionID),
			slog.String("trace_id", observability.TraceIDFromContext(r.Context())),
		)
		reply = FailureReply
		outcome = "error"
	}
	observability.IncrementWebhookMessage(outcome)
	writeTwiML(w, reply)
}

// requestURL reconstructs the URL the sender signed.
func (h *Handler) requestURL(r *http.Request) string {
	if h.cfg.PublicURL != "" {
		return h.cfg.PublicURL + r.URL.RequestURI()
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if forwarded := r.Header.Get("X-Forwarded-Proto"); forwarded != "" {
		scheme = strings.ToLower(strings.TrimSpace(strings.Split(forwarded, ",")[0]))
	}
	return scheme + "://" + r.Host + r.URL.RequestURI()
}

func writeTwiML(w http.ResponseWriter, message string) {
	payload, err := xml.Marshal(twimlResponse{Message: message})
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(xml.Header))
	_, _ = w.Write(payload)
}
