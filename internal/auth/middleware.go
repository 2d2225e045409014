package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

const cookieName = "auth_token"

var ErrUnauthorized = errors.New("unauthorized")

type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (c Credentials) Check(other Credentials) bool {
	user := subtle.ConstantTimeCompare([]byte(c.Username), []byte(other.Username))
	pass := subtle.ConstantTimeCompare([]byte(c.Password), []byte(other.Password))
	return user&pass == 1
}

// NewCredentials parses "username:password".
func NewCredentials(s string) (Credentials, error) {
	username, password, ok := strings.Cut(s, ":")
	if !ok || username == "" {
		return Credentials{}, fmt.Errorf("invalid credentials format")
	}
	return Credentials{Username: username, Password: password}, nil
}

type Authenticator struct {
	credentials Credentials
	jwtSecret   []byte
	now         func() time.Time
}

func NewAuthenticator(credentials Credentials, jwtSecret string) *Authenticator {
	return &Authenticator{credentials: credentials, jwtSecret: []byte(jwtSecret), now: time.Now}
}

func (a *Authenticator) Authenticate(creds Credentials) (*http.Cookie, error) {
	if !a.credentials.Check(creds) {
		return nil, ErrUnauthorized
	}
	return a.generateCookie(creds.Username)
}

func (a *Authenticator) generateCookie(username string) (*http.Cookie, error) {
	token, err := signToken(username, a.jwtSecret, a.now())
	if err != nil {
		return nil, err
	}

	return &http.Cookie{
		Name:     cookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(tokenExpiry / time.Second),
	}, nil
}

// NewAuthMiddleware accepts either a valid session cookie or basic auth
// credentials, and refreshes the cookie on success.
func NewAuthMiddleware(auther *Authenticator) echo.MiddlewareFunc {
	type authStrategy func(c echo.Context) (bool, error)
	strategies := []authStrategy{
		auther.authWithCookie,
		auther.authWithBasicAuth,
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			for _, strategy := range strategies {
				ok, err := strategy(c)
				if err != nil {
					continue
				}
				if ok {
					return next(c)
				}
			}
			return echo.ErrUnauthorized
		}
	}
}

func (a *Authenticator) authWithCookie(c echo.Context) (bool, error) {
	cookie, err := c.Cookie(cookieName)
	if err != nil || cookie.Value == "" {
		return false, nil
	}

	claims, err := validateToken(cookie.Value, a.jwtSecret)
	if err != nil {
		return false, nil
	}

	refreshed, err := a.generateCookie(claims.Subject)
	if err != nil {
		return false, fmt.Errorf("failed to generate cookie: %w", err)
	}
	refreshed.Secure = c.IsTLS()
	c.SetCookie(refreshed)

	return true, nil
}

func (a *Authenticator) authWithBasicAuth(c echo.Context) (bool, error) {
	username, password, ok := c.Request().BasicAuth()
	if !ok {
		return false, nil
	}

	cookie, err := a.Authenticate(Credentials{Username: username, Password: password})
	if err != nil {
		return false, err
	}
	cookie.Secure = c.IsTLS()
	c.SetCookie(cookie)

	return true, nil
}

func ExpireCookie() *http.Cookie {
	return &http.Cookie{
		Name:     cookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
	}
}
