package notify

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultSMSAPIBaseURL = "https://api.twilio.com"

// SMSConfig holds Twilio-style REST credentials. APIBaseURL overrides
// the public endpoint; useful for testing with a mock server.
type SMSConfig struct {
	AccountSID string
	AuthToken  string
	FromNumber string
	APIBaseURL string
}

// SMSProvider sends text messages through a Twilio-style Messages API.
// Without credentials it runs in simulation mode.
type SMSProvider struct {
	cfg      SMSConfig
	client   *http.Client
	simulate bool
	logger   *slog.Logger
}

// NewSMSProvider creates an SMS provider. Missing credentials put it in
// simulation mode rather than failing construction.
func NewSMSProvider(cfg SMSConfig) *SMSProvider {
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = defaultSMSAPIBaseURL
	}
	return &SMSProvider{
		cfg:      cfg,
		client:   &http.Client{Timeout: 10 * time.Second},
		simulate: cfg.AccountSID == "" || cfg.AuthToken == "" || cfg.FromNumber == "",
		logger:   slog.Default().With("component", "sms-provider"),
	}
}

func (p *SMSProvider) Send(ctx context.Context, msg Message) error {
	if p.simulate {
		p.logger.Info("Simulated SMS send (no credentials configured)",
			"to", msg.Phone,
			"body", msg.Body)
		return nil
	}

	form := url.Values{}
	form.Set("To", msg.Phone)
	form.Set("From", p.cfg.FromNumber)
	form.Set("Body", msg.Body)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", p.cfg.APIBaseURL, p.cfg.AccountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("building SMS request: %w", err)
	}
	req.SetBasicAuth(p.cfg.AccountSID, p.cfg.AuthToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("SMS API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("SMS API returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}
