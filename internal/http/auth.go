package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"famfin/internal/core"
	applog "famfin/internal/log"
)

// RoleAdmin is the role claim value that grants access to every user.
const RoleAdmin = "admin"

// Claims are the JWT claims famfin reads. The subject is the numeric user id.
type Claims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// TokenVerifier validates HS256 bearer tokens.
type TokenVerifier struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewTokenVerifier checks the issuer claim only when issuer is not empty.
func NewTokenVerifier(secret, issuer string) *TokenVerifier {
	return &TokenVerifier{secret: []byte(secret), issuer: issuer, now: time.Now}
}

// Verify parses a token and returns the caller it authenticates.
func (v *TokenVerifier) Verify(tokenString string) (core.Caller, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return core.Caller{}, fmt.Errorf("parse token: %w", err)
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return core.Caller{}, errors.New("token subject is not a user id")
	}
	return core.Caller{UserID: userID, Admin: claims.Role == RoleAdmin}, nil
}

// Middleware rejects requests without a valid bearer token and stores the
// authenticated caller in the request context.
func (v *TokenVerifier) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			UnauthorizedResponse("missing bearer token").Write(w)
			return
		}

		caller, err := v.Verify(strings.TrimSpace(token))
		if err != nil {
			applog.FromContext(r.Context()).WithComponent(applog.ComponentAuth).
				WarnContext(r.Context(), "Rejected bearer token", applog.FieldError, err.Error())
			UnauthorizedResponse("invalid or expired token").Write(w)
			return
		}

		ctx := core.WithCaller(r.Context(), caller)
		logger := applog.FromContext(ctx).With(applog.FieldCallerID, caller.UserID)
		next.ServeHTTP(w, r.WithContext(applog.WithLogger(ctx, logger)))
	})
}

// IssueToken signs a token for caller, valid for ttl. famfin does not run a
// login flow; operators mint tokens with famfinctl.
func IssueToken(secret, issuer string, caller core.Caller, ttl time.Duration, now time.Time) (string, error) {
	if caller.UserID <= 0 {
		return "", core.InvalidInput("user", "must be a positive user id")
	}
	if ttl <= 0 {
		return "", core.InvalidInput("ttl", "must be positive")
	}
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(caller.UserID, 10),
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if caller.Admin {
		claims.Role = RoleAdmin
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
