package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"loyalty-ledger-go/internal/models"

	jwt "github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// TokenAuthenticator verifies HMAC-signed bearer tokens and attaches the
// token subject to the request context as the ledger caller.
type TokenAuthenticator struct {
	secret    []byte
	issuer    string
	clockSkew time.Duration
}

func NewTokenAuthenticator(cfg models.ServerConfig) (*TokenAuthenticator, error) {
	secret := strings.TrimSpace(cfg.HMACSecret)
	if secret == "" {
		return nil, errors.New("AUTH_HMAC_SECRET is required to serve the ledger")
	}
	skew := cfg.ClockSkew
	if skew <= 0 {
		skew = 30 * time.Second
	}
	return &TokenAuthenticator{secret: []byte(secret), issuer: cfg.Issuer, clockSkew: skew}, nil
}

// Middleware rejects requests without a valid token.
func (a *TokenAuthenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := extractBearer(r.Header.Get("Authorization"))
		if tokenString == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
			return
		}
		caller, err := a.Verify(tokenString)
		if err != nil {
			zap.L().Info("Rejected bearer token", zap.String("path", r.URL.Path), zap.Error(err))
			writeError(w, http.StatusUnauthorized, "unauthorized", "invalid token")
			return
		}
		next.ServeHTTP(w, r.WithContext(models.WithCaller(r.Context(), caller)))
	})
}

// Verify parses tokenString and returns its subject.
func (a *TokenAuthenticator) Verify(tokenString string) (models.Identity, error) {
	opts := []jwt.ParserOption{
		jwt.WithLeeway(a.clockSkew),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg(), jwt.SigningMethodHS384.Alg(), jwt.SigningMethodHS512.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	}, opts...)
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", errors.New("token invalid")
	}

	caller := models.Identity(strings.TrimSpace(claims.Subject))
	if !caller.Valid() {
		return "", errors.New("token has no subject")
	}
	return caller, nil
}

// IssueToken signs a token for subject valid for ttl.
func (a *TokenAuthenticator) IssueToken(subject models.Identity, ttl time.Duration) (string, error) {
	if !subject.Valid() {
		return "", errors.New("token subject cannot be empty")
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject.String(),
		Issuer:    a.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

func extractBearer(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
