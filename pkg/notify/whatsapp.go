package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// WhatsAppConfig holds the REST endpoint and token of a WhatsApp
// business API gateway.
type WhatsAppConfig struct {
	APIURL   string
	APIToken string
}

// WhatsAppProvider sends messages through a WhatsApp gateway.
// Without credentials it runs in simulation mode.
type WhatsAppProvider struct {
	cfg      WhatsAppConfig
	client   *http.Client
	simulate bool
	logger   *slog.Logger
}

// NewWhatsAppProvider creates a WhatsApp provider. Missing credentials
// put it in simulation mode rather than failing construction.
func NewWhatsAppProvider(cfg WhatsAppConfig) *WhatsAppProvider {
	return &WhatsAppProvider{
		cfg:      cfg,
		client:   &http.Client{Timeout: 10 * time.Second},
		simulate: cfg.APIURL == "" || cfg.APIToken == "",
		logger:   slog.Default().With("component", "whatsapp-provider"),
	}
}

func (p *WhatsAppProvider) Send(ctx context.Context, msg Message) error {
	if p.simulate {
		p.logger.Info("Simulated WhatsApp send (no credentials configured)",
			"to", msg.Phone,
			"body", msg.Body)
		return nil
	}

	payload, err := json.Marshal(map[string]string{
		"to":      msg.Phone,
		"message": msg.Body,
	})
	if err != nil {
		return fmt.Errorf("encoding WhatsApp payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.APIURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building WhatsApp request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.cfg.APIToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("WhatsApp API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("WhatsApp API returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}
