package oauth

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// revokeEndpoint is Google's token revocation endpoint, used regardless of
// which OAuth client configuration the broker was constructed with — the
// calendar+drive scopes this broker requests are Google's.
const revokeEndpoint = "https://oauth2.googleapis.com/revoke"

// revoke posts accessToken to the provider's revocation endpoint. Errors
// here are swallowed by the caller (spec §4.5: "tokens may already be
// expired").
func revoke(ctx context.Context, accessToken string) error {
	form := url.Values{"token": {accessToken}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, revokeEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("revoke endpoint returned HTTP %d", resp.StatusCode)
	}
	return nil
}
