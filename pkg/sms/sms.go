// Package sms sends order notifications via the ClickSend gateway. Dispatch
// is best-effort: a single outbound call with no retry and no cache, and a
// disabled service reports a status instead of failing.
package sms

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultGatewayURL is the ClickSend SMS send endpoint.
const DefaultGatewayURL = "https://rest.clicksend.com/v3/sms/send"

// Status classifies the outcome of a send attempt.
type Status string

const (
	StatusSuccess  Status = "success"
	StatusError    Status = "error"
	StatusDisabled Status = "disabled"
)

// Result reports the outcome of a send. Failures are carried in the
// result, not as errors; SMS is a fire-and-forget side channel.
type Result struct {
	Status    Status `json:"status"`
	Message   string `json:"message"`
	MessageID string `json:"message_id,omitempty"`
	ErrorCode string `json:"error_code,omitempty"`
}

// Service sends SMS through ClickSend.
type Service struct {
	enabled    bool
	gatewayURL string
	authHeader string
	sender     string
	httpClient *http.Client
	logger     zerolog.Logger
}

// Config holds the SMS service configuration.
type Config struct {
	// Enabled gates all dispatch; when false every send reports
	// StatusDisabled.
	Enabled bool

	// Username and APIKey are the ClickSend basic-auth credentials.
	Username string
	APIKey   string

	// Sender is the optional from-number or alphanumeric sender id.
	Sender string

	// GatewayURL overrides the ClickSend endpoint (tests).
	GatewayURL string

	// Timeout bounds the single outbound call.
	Timeout time.Duration
}

// New creates an SMS service. Missing credentials silently disable it.
func New(cfg Config) *Service {
	logger := log.With().Str("component", "sms-service").Logger()

	enabled := cfg.Enabled && cfg.Username != "" && cfg.APIKey != ""
	if !enabled {
		logger.Info().Msg("SMS service disabled or missing ClickSend credentials")
	}

	gatewayURL := cfg.GatewayURL
	if gatewayURL == "" {
		gatewayURL = DefaultGatewayURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	var authHeader string
	if enabled {
		token := cfg.Username + ":" + cfg.APIKey
		authHeader = "Basic " + base64.StdEncoding.EncodeToString([]byte(token))
	}

	return &Service{
		enabled:    enabled,
		gatewayURL: gatewayURL,
		authHeader: authHeader,
		sender:     cfg.Sender,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Enabled reports whether the service will actually dispatch messages.
func (s *Service) Enabled() bool {
	return s.enabled
}

// SendOrderNotification sends the standard new-order message to the
// restaurant's phone.
func (s *Service) SendOrderNotification(ctx context.Context, restaurantName, customerName, phone, orderAmount, orderRef string) Result {
	if !s.enabled {
		return Result{Status: StatusDisabled, Message: "SMS service is disabled"}
	}

	msg := fmt.Sprintf("You have an order for %s by %s for %s", restaurantName, customerName, orderAmount)
	if orderRef != "" {
		msg += fmt.Sprintf(" (Order #%s)", orderRef)
	}
	msg += ". Thank you for your order!"

	return s.send(ctx, phone, msg)
}

// SendCustom sends an arbitrary message to a phone number.
func (s *Service) SendCustom(ctx context.Context, phone, message string) Result {
	if !s.enabled {
		return Result{Status: StatusDisabled, Message: "SMS service is disabled"}
	}
	return s.send(ctx, phone, message)
}

type clicksendMessage struct {
	Source string `json:"source"`
	To     string `json:"to"`
	Body   string `json:"body"`
	From   string `json:"from,omitempty"`
}

type clicksendRequest struct {
	ShortenURLs bool               `json:"shorten_urls"`
	Messages    []clicksendMessage `json:"messages"`
}

type clicksendResponse struct {
	ResponseCode string `json:"response_code"`
	ResponseMsg  string `json:"response_msg"`
	Data         struct {
		Messages []struct {
			MessageID string `json:"message_id"`
		} `json:"messages"`
	} `json:"data"`
}

// send performs the single best-effort gateway call.
func (s *Service) send(ctx context.Context, phone, message string) Result {
	payload, err := json.Marshal(clicksendRequest{
		Messages: []clicksendMessage{{
			Source: "go",
			To:     NormalizeUK(phone),
			Body:   message,
			From:   s.sender,
		}},
	})
	if err != nil {
		return Result{Status: StatusError, Message: fmt.Sprintf("encode payload: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.gatewayURL, bytes.NewReader(payload))
	if err != nil {
		return Result{Status: StatusError, Message: fmt.Sprintf("create request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", s.authHeader)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.Error().Err(err).Msg("HTTP error sending SMS via ClickSend")
		return Result{Status: StatusError, Message: fmt.Sprintf("HTTP error: %v", err)}
	}
	defer resp.Body.Close()

	var body clicksendResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		s.logger.Error().Err(err).Msg("Undecodable ClickSend response")
		return Result{Status: StatusError, Message: "undecodable gateway response"}
	}

	if resp.StatusCode == http.StatusOK && body.ResponseCode == "SUCCESS" {
		var messageID string
		if len(body.Data.Messages) > 0 {
			messageID = body.Data.Messages[0].MessageID
		}
		s.logger.Info().Str("message_id", messageID).Msg("SMS queued successfully via ClickSend")
		return Result{Status: StatusSuccess, Message: "SMS queued for delivery", MessageID: messageID}
	}

	s.logger.Error().
		Int("status", resp.StatusCode).
		Str("response_code", body.ResponseCode).
		Str("response_msg", body.ResponseMsg).
		Msg("ClickSend error")
	return Result{
		Status:    StatusError,
		Message:   fmt.Sprintf("ClickSend error: %s", body.ResponseMsg),
		ErrorCode: body.ResponseCode,
	}
}

// NormalizeUK applies a minimal E.164 normalization for UK numbers:
// a leading "+" passes through, "00" becomes "+", a leading "0" becomes
// "+44", a bare "44" prefix gains "+", and a bare 9-11 digit number is
// assumed to be UK. Anything else is returned as-is for the gateway to
// validate.
func NormalizeUK(number string) string {
	n := strings.ReplaceAll(strings.TrimSpace(number), " ", "")
	switch {
	case strings.HasPrefix(n, "+"):
		return n
	case strings.HasPrefix(n, "00"):
		return "+" + n[2:]
	case strings.HasPrefix(n, "0"):
		return "+44" + n[1:]
	case strings.HasPrefix(n, "44"):
		return "+" + n
	case isDigits(n) && len(n) >= 9 && len(n) <= 11:
		return "+44" + n
	default:
		return n
	}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
