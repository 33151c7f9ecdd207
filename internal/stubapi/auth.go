package stubapi

import (
	"net/http"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/golang-jwt/jwt/v5"

	"github.com/goliatone/go-listsync/clock"
)

// Issuer is the iss claim of tokens minted by the stub server.
const Issuer = "listsync-stub"

// Authenticator checks HS256 bearer tokens.
type Authenticator struct {
	secret []byte
	clock  clock.Clock
}

// NewAuthenticator returns an Authenticator for secret. A nil clock uses
// the wall clock.
func NewAuthenticator(secret string, c clock.Clock) (*Authenticator, error) {
	if len(secret) < 16 {
		return nil, goerrors.New("jwt secret must be at least 16 bytes", goerrors.CategoryValidation).
			WithTextCode("WEAK_SECRET")
	}
	return &Authenticator{secret: []byte(secret), clock: clock.OrReal(c)}, nil
}

// Mint signs a token for subject valid for ttl.
func (a *Authenticator) Mint(subject string, ttl time.Duration) (string, error) {
	now := a.clock.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    Issuer,
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "sign token")
	}
	return token, nil
}

// Verify parses a bearer token and returns its subject.
func (a *Authenticator) Verify(token string) (string, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.clock.Now),
	)
	if err != nil {
		textCode := "TOKEN_INVALID"
		if goerrors.Is(err, jwt.ErrTokenExpired) {
			textCode = goerrors.TextCodeTokenExpired
		}
		return "", goerrors.Wrap(err, goerrors.CategoryAuth, "invalid bearer token").
			WithCode(http.StatusUnauthorized).
			WithTextCode(textCode)
	}
	return claims.Subject, nil
}

// Middleware rejects requests without a valid bearer token.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			writeError(w, goerrors.New("missing bearer token", goerrors.CategoryAuth).
				WithCode(http.StatusUnauthorized).
				WithTextCode("TOKEN_MISSING"))
			return
		}
		if _, err := a.Verify(strings.TrimSpace(token)); err != nil {
			writeError(w, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}
