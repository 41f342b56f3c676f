package retailer

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const (
	// refreshBuffer is how long before expiry a token is treated as expired.
	refreshBuffer = 5 * time.Minute

	defaultExpiresIn = 3600
)

// tokenExpired reports whether tok must be replaced before use at now.
func tokenExpired(tok *oauth2.Token, now time.Time) bool {
	if tok == nil || tok.AccessToken == "" {
		return true
	}
	return !now.Before(tok.Expiry.Add(-refreshBuffer))
}

// tokenFromRedirect reads an implicit-grant token out of the fragment of
// the authorize redirect's Location header.
func tokenFromRedirect(location string, now time.Time) (*oauth2.Token, error) {
	_, fragment, found := strings.Cut(location, "#")
	if !found {
		return nil, &AuthError{Step: "authorize", Reason: "no fragment in redirect URL"}
	}

	// ParseQuery keeps the pairs it could decode alongside the error.
	params, parseErr := url.ParseQuery(fragment)

	accessToken := params.Get("access_token")
	if accessToken == "" {
		return nil, &AuthError{Step: "authorize", Reason: "no access_token in redirect fragment", Err: parseErr}
	}

	expiresIn, err := strconv.Atoi(params.Get("expires_in"))
	if err != nil {
		expiresIn = defaultExpiresIn
	}

	return &oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		Expiry:      now.Add(time.Duration(expiresIn) * time.Second),
	}, nil
}
