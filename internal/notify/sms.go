package notify

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

const twilioAPI = "https://api.twilio.com/2010-04-01"

// SMSSender sends text messages through the Twilio REST API. Blank
// credentials disable the channel the same way Mailer does.
type SMSSender struct {
	sid        string
	auth       string
	from       string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewSMSSender(sid, auth, from string, client *http.Client, logger *slog.Logger) *SMSSender {
	return &SMSSender{sid: sid, auth: auth, from: from, httpClient: client, logger: logger}
}

func (s *SMSSender) Enabled() bool {
	return s.sid != "" && s.auth != "" && s.from != ""
}

func (s *SMSSender) Send(ctx context.Context, to, body string) error {
	if !s.Enabled() {
		s.logger.Info("sms channel disabled, skipping", "to", to)
		return nil
	}

	form := url.Values{}
	form.Set("From", s.from)
	form.Set("To", to)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", twilioAPI, s.sid)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create sms request: %w", err)
	}
	req.SetBasicAuth(s.sid, s.auth)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send sms: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("twilio returned status %d: %s", resp.StatusCode, detail)
	}

	return nil
}
