package api

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"contract-plan-manager/internal/infra/logging"
	"contract-plan-manager/internal/infra/metrics"
)

const sessionCookie = "admin_session"

type AuthConfig struct {
	HMACSecret    []byte
	AdminPassword string
	SecureCookie  bool
	TTL           time.Duration
}

// AuthManager mints and verifies HS256 admin session tokens. Tokens are
// accepted from a Bearer header or the admin_session cookie.
type AuthManager struct{ cfg AuthConfig }

func NewAuthManager(secret, adminPassword string, secure bool, ttl time.Duration) *AuthManager {
	return &AuthManager{cfg: AuthConfig{
		HMACSecret:    []byte(secret),
		AdminPassword: adminPassword,
		SecureCookie:  secure,
		TTL:           ttl,
	}}
}

type AdminClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

var errInvalidToken = errors.New("invalid token")

func (a *AuthManager) Mint(w http.ResponseWriter, subject string) (string, error) {
	now := time.Now()
	claims := AdminClaims{
		Role: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.cfg.TTL)),
			Subject:   subject,
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.cfg.HMACSecret)
	if err != nil {
		return "", err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    signed,
		Path:     "/",
		MaxAge:   int(a.cfg.TTL.Seconds()),
		HttpOnly: true,
		Secure:   a.cfg.SecureCookie,
		SameSite: http.SameSiteStrictMode,
	})
	return signed, nil
}

func (a *AuthManager) ParseFromRequest(r *http.Request) (*AdminClaims, error) {
	if hdr := r.Header.Get("Authorization"); hdr != "" {
		if len(hdr) > 7 && strings.EqualFold(hdr[:7], "bearer ") {
			return a.parse(strings.TrimSpace(hdr[7:]))
		}
		return nil, errInvalidToken
	}
	if c, err := r.Cookie(sessionCookie); err == nil {
		return a.parse(c.Value)
	}
	return nil, errors.New("missing token")
}

func (a *AuthManager) parse(tok string) (*AdminClaims, error) {
	claims := &AdminClaims{}
	tkn, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (any, error) {
		return a.cfg.HMACSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !tkn.Valid {
		return nil, errInvalidToken
	}
	return claims, nil
}

// Middleware rejects requests without a valid session and records the
// token subject as the request actor.
func (a *AuthManager) Middleware(logger *zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := a.ParseFromRequest(r)
			if err != nil {
				logging.With(r.Context(), logger).Debug().Err(err).Str("path", r.URL.Path).Msg("unauthenticated request")
				fail(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			ctx := logging.WithActor(r.Context(), claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (a *AuthManager) checkPassword(pw string) bool {
	return subtle.ConstantTimeCompare([]byte(pw), []byte(a.cfg.AdminPassword)) == 1
}

func loginHandler(a *AuthManager, v *validator.Validate, logger *zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if msgs, err := decode(r, v, &req); err != nil {
			fail(w, http.StatusBadRequest, "Validation failed", msgs...)
			return
		}
		if !a.checkPassword(req.Password) {
			metrics.IncAuthAttempt("failure")
			logging.With(r.Context(), logger).Warn().Str("ip", clientIP(r)).Msg("admin login failed")
			fail(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		token, err := a.Mint(w, "admin")
		if err != nil {
			writeError(w, r, logger, err, "")
			return
		}
		metrics.IncAuthAttempt("success")
		ok(w, http.StatusOK, map[string]interface{}{
			"token":     token,
			"expiresAt": time.Now().Add(a.cfg.TTL).UTC(),
		}, "Logged in")
	}
}
