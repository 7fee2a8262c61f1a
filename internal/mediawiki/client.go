package mediawiki

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gomodule/oauth1/oauth"
)

const httpCallTimeout = 10 * time.Second

// RequestToken is the short-lived, single-use token pair obtained at the
// start of the three-legged flow.
type RequestToken struct {
	Key    string
	Secret string
}

// AccessToken is the durable token pair authorizing API calls on the
// user's behalf.
type AccessToken struct {
	Key    string
	Secret string
}

// Client drives the OAuth 1.0a three-legged flow against a MediaWiki
// provider (Special:OAuth endpoints) and identifies the authenticated user.
type Client struct {
	oauth          oauth.Client
	consumerKey    string
	consumerSecret string
	oauthURL       string
	identifyURI    string
	providerHost   string
	httpClient     *http.Client
}

// endpointURI turns the configured Special:OAuth URL into a query-free
// request URI for one flow step. Signed OAuth requests must not carry a
// query string, so the special page title moves into the path, which
// MediaWiki routes identically (index.php/Special:OAuth/<step>).
func endpointURI(oauthURL, step string) string {
	u, err := url.Parse(oauthURL)
	if err != nil {
		return oauthURL + "/" + step
	}

	title := u.Query().Get("title")
	if title == "" {
		title = "Special:OAuth"
	}
	u.RawQuery = ""
	u.Path = path.Join(u.Path, title, step)

	return u.String()
}

// NewClient builds a Client for the given Special:OAuth base URL, e.g.
// "https://meta.wikimedia.org/w/index.php?title=Special:OAuth".
func NewClient(oauthURL, consumerKey, consumerSecret, userAgent string) *Client {
	providerHost := ""
	if u, err := url.Parse(oauthURL); err == nil {
		providerHost = u.Host
	}

	return &Client{
		oauth: oauth.Client{
			Credentials: oauth.Credentials{
				Token:  consumerKey,
				Secret: consumerSecret,
			},
			TemporaryCredentialRequestURI: endpointURI(oauthURL, "initiate"),
			TokenRequestURI:               endpointURI(oauthURL, "token"),
			Header:                        http.Header{"User-Agent": {userAgent}},
		},
		consumerKey:    consumerKey,
		consumerSecret: consumerSecret,
		oauthURL:       oauthURL,
		identifyURI:    endpointURI(oauthURL, "identify"),
		providerHost:   providerHost,
		httpClient:     &http.Client{Timeout: httpCallTimeout},
	}
}

// withHTTPClient attaches the timeout client to the context; the oauth
// package's Context call variants pick it up from there.
func (c *Client) withHTTPClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth.HTTPClient, c.httpClient)
}

// Initiate requests a fresh request-token pair and returns it together with
// the authorization URL the user agent must visit.
func (c *Client) Initiate(ctx context.Context, callbackURL string) (RequestToken, string, error) {
	temp, err := c.oauth.RequestTemporaryCredentialsContext(c.withHTTPClient(ctx), callbackURL, nil)
	if err != nil {
		return RequestToken{}, "", fmt.Errorf("failed to obtain request token: %w", err)
	}
	if temp.Token == "" || temp.Secret == "" {
		return RequestToken{}, "", errors.New("provider returned an empty request token")
	}

	// The authorize URL is browser-facing and unsigned, so it keeps the
	// configured query form and is assembled by hand.
	authorizeURL := fmt.Sprintf("%s/authorize&oauth_token=%s&oauth_consumer_key=%s",
		c.oauthURL, url.QueryEscape(temp.Token), url.QueryEscape(c.consumerKey))

	return RequestToken{Key: temp.Token, Secret: temp.Secret}, authorizeURL, nil
}

// Complete exchanges the request token and verifier for an access token.
// Verifiers are single-use; the call is never retried.
func (c *Client) Complete(ctx context.Context, requestToken RequestToken, verifier string) (AccessToken, error) {
	temp := &oauth.Credentials{Token: requestToken.Key, Secret: requestToken.Secret}

	cred, _, err := c.oauth.RequestTokenContext(c.withHTTPClient(ctx), temp, verifier)
	if err != nil {
		return AccessToken{}, fmt.Errorf("failed to exchange request token: %w", err)
	}
	if cred.Token == "" || cred.Secret == "" {
		return AccessToken{}, errors.New("provider returned an empty access token")
	}

	return AccessToken{Key: cred.Token, Secret: cred.Secret}, nil
}

// Identify fetches the authenticated principal behind the access token.
//
// The identify endpoint answers with a JWS signed HS256 with the consumer
// secret; the signature, expiry, audience, and issuer host are all verified
// before the username is trusted.
func (c *Client) Identify(ctx context.Context, accessToken AccessToken) (string, error) {
	cred := &oauth.Credentials{Token: accessToken.Key, Secret: accessToken.Secret}

	resp, err := c.oauth.GetContext(c.withHTTPClient(ctx), cred, c.identifyURI, nil)
	if err != nil {
		return "", fmt.Errorf("identify request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("identify endpoint returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return "", fmt.Errorf("failed to read identify response: %w", err)
	}

	return c.verifyIdentity(string(body))
}

// identityClaims is the JWS payload returned by Special:OAuth/identify.
type identityClaims struct {
	jwt.RegisteredClaims
	Username string `json:"username"`
}

func (c *Client) verifyIdentity(token string) (string, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(c.consumerKey),
	)

	claims := &identityClaims{}
	_, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return []byte(c.consumerSecret), nil
	})
	if err != nil {
		return "", fmt.Errorf("invalid identify response: %w", err)
	}

	issuer, err := url.Parse(claims.Issuer)
	if err != nil || issuer.Host != c.providerHost {
		return "", fmt.Errorf("identify response issued by %q, expected host %q", claims.Issuer, c.providerHost)
	}

	if claims.Username == "" {
		return "", errors.New("identify response carries no username")
	}

	return claims.Username, nil
}
