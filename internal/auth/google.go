package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// GoogleProfile is the portion of Google's userinfo response we care
// about. Google returns a larger object — we only unmarshal the fields
// the reconciliation flow needs.
type GoogleProfile struct {
	ID      string `json:"id"`      // Google's account ID ("sub") — stable, never changes
	Email   string `json:"email"`   // Verified email for the Google account
	Name    string `json:"name"`    // Display name, e.g. "Ada Lovelace"
	Picture string `json:"picture"` // Profile picture URL (may be empty)
}

// GoogleProvider wraps golang.org/x/oauth2 for the Google Authorization
// Code flow.
//
// OAUTH 2.0 AUTHORIZATION CODE FLOW:
//  1. The server redirects the user to Google's authorization endpoint.
//  2. The user approves (or denies) on Google's consent screen.
//  3. Google redirects back to CallbackURL with a short-lived "code".
//  4. The server exchanges the code for an access token, server-to-server,
//     using the client secret — the token never touches the browser.
//  5. The server calls the userinfo API with that token.
//
// Everything after step 5 — deciding whether the profile belongs to a
// new user, an existing local user, or a returning Google user — is the
// service layer's job, not this package's.
type GoogleProvider struct {
	config *oauth2.Config
}

// NewGoogleProvider creates a GoogleProvider with the given credentials.
// ClientID and ClientSecret come from the Google Cloud console;
// callbackURL must match the registered redirect URI exactly.
func NewGoogleProvider(clientID, clientSecret, callbackURL string) *GoogleProvider {
	return &GoogleProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"profile", "email"},
			Endpoint:     google.Endpoint,
		},
	}
}

// AuthURL returns the URL to redirect the user to for authorization.
// The state is a random string stored in a cookie before redirecting;
// the callback handler verifies it to block CSRF-initiated flows.
func (p *GoogleProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange completes the OAuth flow: trades the authorization code for
// a Google profile. The returned profile is trusted as authenticated by
// Google — the caller still validates it is complete (has an ID and an
// email) before reconciling it into a local account.
func (p *GoogleProvider) Exchange(ctx context.Context, code string) (*GoogleProfile, error) {
	oauthToken, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("auth: exchanging OAuth code: %w", err)
	}

	// oauth2.Config.Client returns an *http.Client that adds the
	// "Authorization: Bearer <token>" header to every request.
	client := p.config.Client(ctx, oauthToken)

	resp, err := client.Get("https://www.googleapis.com/oauth2/v2/userinfo")
	if err != nil {
		return nil, fmt.Errorf("auth: calling Google userinfo API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("auth: Google userinfo API returned status %d", resp.StatusCode)
	}

	var profile GoogleProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("auth: decoding Google userinfo response: %w", err)
	}

	return &profile, nil
}
