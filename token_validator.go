package adminkit

import (
	"fmt"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
)

// TokenClaims are the provider-issued access token claims we care about.
type TokenClaims struct {
	jwt.RegisteredClaims
	UserRole    string   `json:"role,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
}

// UserID returns the token subject.
func (c *TokenClaims) UserID() string {
	return c.Subject
}

// HSTokenValidator validates HS256 tokens against a shared signing key, for
// self-hosted identity backends.
type HSTokenValidator struct {
	signingKey []byte
	issuer     string
	audience   []string
	logger     Logger
}

var _ TokenValidator = (*HSTokenValidator)(nil)

func NewHSTokenValidator(signingKey []byte, issuer string, audience []string) *HSTokenValidator {
	return &HSTokenValidator{
		signingKey: signingKey,
		issuer:     issuer,
		audience:   audience,
		logger:     defLogger{},
	}
}

func (v *HSTokenValidator) WithLogger(logger Logger) *HSTokenValidator {
	if logger != nil {
		v.logger = logger
	}
	return v
}

// Validate parses and validates a token string, returning structured claims
func (v *HSTokenValidator) Validate(tokenString string) (*TokenClaims, error) {
	parserOptions := make([]jwt.ParserOption, 0, 2)
	if v.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(v.issuer))
	}
	if len(v.audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(v.audience...))
	}

	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			v.logger.Error("token validate encountered unexpected signing method: %v", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.signingKey, nil
	}, parserOptions...)

	if err != nil {
		if goerrors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, goerrors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).
			WithTextCode(ErrTokenMalformed.TextCode)
	}

	if claims, ok := token.Claims.(*TokenClaims); ok && token.Valid {
		return claims, nil
	}

	v.logger.Error("token validate could not decode or validate claims")
	return nil, ErrTokenMalformed
}

// JWKSTokenValidator validates provider-issued RS256 tokens against the
// provider's published JWK set.
type JWKSTokenValidator struct {
	jwks     *keyfunc.JWKS
	issuer   string
	audience []string
	logger   Logger
}

var _ TokenValidator = (*JWKSTokenValidator)(nil)

func NewJWKSTokenValidator(jwksURL, issuer string, audience []string, logger Logger) (*JWKSTokenValidator, error) {
	if logger == nil {
		logger = defLogger{}
	}

	jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{
		RefreshErrorHandler: func(err error) {
			logger.Warn("failed to do a background refresh of JWK set: %v", err)
		},
		RefreshInterval:   time.Hour,
		RefreshRateLimit:  time.Minute * 5,
		RefreshTimeout:    time.Second * 10,
		RefreshUnknownKID: true,
	})
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load JWK set")
	}

	return &JWKSTokenValidator{
		jwks:     jwks,
		issuer:   issuer,
		audience: audience,
		logger:   logger,
	}, nil
}

func (v *JWKSTokenValidator) Validate(tokenString string) (*TokenClaims, error) {
	parserOptions := make([]jwt.ParserOption, 0, 2)
	if v.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(v.issuer))
	}
	if len(v.audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(v.audience...))
	}

	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, v.jwks.Keyfunc, parserOptions...)
	if err != nil {
		if goerrors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, goerrors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).
			WithTextCode(ErrTokenMalformed.TextCode)
	}

	if claims, ok := token.Claims.(*TokenClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, ErrTokenMalformed
}

// Close releases the background JWKS refresh goroutine.
func (v *JWKSTokenValidator) Close() {
	if v.jwks != nil {
		v.jwks.EndBackground()
	}
}

// DecodeExpiry extracts the expiry claim without verifying the signature.
// It exists purely for refresh scheduling; trust decisions go through a
// TokenValidator.
func DecodeExpiry(tokenString string) (time.Time, error) {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()

	if _, _, err := parser.ParseUnverified(tokenString, claims); err != nil {
		return time.Time{}, goerrors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).
			WithTextCode(ErrTokenMalformed.TextCode)
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, goerrors.New("token carries no expiry claim", goerrors.CategoryBadInput).
			WithTextCode(TextCodeTokenMalformed)
	}

	return exp.Time, nil
}
