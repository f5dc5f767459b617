package smtp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

const (
	searchInboxTestEndpoint = "http://%s:%d/api/v2/search?kind=to&query=%s"
	clearInboxTestEndpoint  = "http://%s:%d/api/v1/messages"
)

// FindEmail searches the MailHog API configured in TestAPIPort for the last
// message sent to the given address. It returns the raw message body and
// clears the inbox, or io.EOF when no message was found. Only meant for
// tests against a local mail catcher.
func (se *Email) FindEmail(ctx context.Context, to string) (string, error) {
	searchEndpoint := fmt.Sprintf(searchInboxTestEndpoint, se.config.SMTPServer, se.config.TestAPIPort,
		url.QueryEscape(to))
	resp, err := se.inboxRequest(ctx, http.MethodGet, searchEndpoint)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	//revive:disable:nested-structs
	type mailResponse struct {
		Items []struct {
			Content struct {
				Body string `json:"Body"`
			} `json:"Content"`
		} `json:"items"`
	}
	mailResults := mailResponse{}
	if err := json.NewDecoder(resp.Body).Decode(&mailResults); err != nil {
		return "", fmt.Errorf("could not decode response: %v", err)
	}
	if len(mailResults.Items) == 0 {
		return "", io.EOF
	}
	return mailResults.Items[0].Content.Body, se.clear(ctx)
}

func (se *Email) clear(ctx context.Context) error {
	clearEndpoint := fmt.Sprintf(clearInboxTestEndpoint, se.config.SMTPServer, se.config.TestAPIPort)
	resp, err := se.inboxRequest(ctx, http.MethodDelete, clearEndpoint)
	if err != nil {
		return err
	}
	return resp.Body.Close()
}

func (*Email) inboxRequest(ctx context.Context, method, endpoint string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("could not create request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not send request: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	return resp, nil
}
