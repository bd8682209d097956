package googlefit

import (
	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
)

// Scopes requested for Google Fit access. Heart rate, glucose and blood
// pressure additionally depend on what the user's devices actually record.
var Scopes = []string{
	"https://www.googleapis.com/auth/fitness.activity.read",
	"https://www.googleapis.com/auth/fitness.body.read",
	"https://www.googleapis.com/auth/fitness.heart_rate.read",
	"https://www.googleapis.com/auth/fitness.sleep.read",
}

// OAuthConfig builds the oauth2 config used to produce authorization URLs.
func (c *Client) OAuthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.clientID,
		ClientSecret: c.clientSecret,
		RedirectURL:  c.redirectURI,
		Scopes:       Scopes,
		Endpoint:     googleoauth.Endpoint,
	}
}

// AuthorizationURL returns the consent URL for a user. The user ID rides in
// the state parameter so the callback can attribute the authorization code.
// access_type=offline and prompt=consent ask Google to issue a refresh token.
func (c *Client) AuthorizationURL(userID string) string {
	return c.OAuthConfig().AuthCodeURL(userID,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	)
}
