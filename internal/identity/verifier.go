/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package identity

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"quickdot-custody-go/internal/errs"
	"quickdot-custody-go/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// ErrKeysUnavailable is returned when the provider's signing keys cannot be fetched.
var ErrKeysUnavailable = errors.New("identity provider keys unavailable")

const maxSubjectLength = 128

// ExternalIdentity is the verified subject of an identity-provider token.
type ExternalIdentity struct {
	Subject       string
	Email         string
	EmailVerified bool
	DisplayName   string
	PhotoURL      string
}

// TokenVerifier verifies identity-provider tokens.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*ExternalIdentity, error)
}

type providerClaims struct {
	jwt.RegisteredClaims
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// CertVerifier verifies RS256 provider tokens against the provider's published
// x509 certificates. Certificates are cached for the Cache-Control max-age of
// the response, or the configured TTL when the header is absent.
type CertVerifier struct {
	projectId string
	certsURL  string
	issuer    string
	cacheTTL  time.Duration
	http      *http.Client
	now       func() time.Time

	mu      sync.Mutex
	keys    map[string]*rsa.PublicKey
	expires time.Time
}

func NewCertVerifier(cfg models.IdentityConfig, httpClient *http.Client) (*CertVerifier, error) {
	if cfg.ProjectId == "" {
		return nil, fmt.Errorf("identity project id is required")
	}
	if cfg.CertsURL == "" {
		return nil, fmt.Errorf("identity certs url is required")
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = time.Hour
	}

	return &CertVerifier{
		projectId: cfg.ProjectId,
		certsURL:  cfg.CertsURL,
		issuer:    "https://securetoken.google.com/" + cfg.ProjectId,
		cacheTTL:  ttl,
		http:      httpClient,
		now:       time.Now,
	}, nil
}

// WithClock replaces the verifier's time source.
func (v *CertVerifier) WithClock(now func() time.Time) *CertVerifier {
	v.now = now
	return v
}

func (v *CertVerifier) Verify(ctx context.Context, token string) (*ExternalIdentity, error) {
	if token == "" {
		return nil, errs.ErrTokenInvalid
	}

	var fetchErr error
	claims := &providerClaims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithAudience(v.projectId),
		jwt.WithIssuer(v.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(v.now),
	)

	_, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, fmt.Errorf("token has no key id")
		}
		key, err := v.key(ctx, kid)
		if err != nil {
			fetchErr = err
			return nil, err
		}
		return key, nil
	})
	if err != nil {
		switch {
		case fetchErr != nil && errors.Is(fetchErr, ErrKeysUnavailable):
			return nil, fetchErr
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, errs.ErrTokenExpired
		default:
			zap.L().Debug("Rejected identity token", zap.Error(err))
			return nil, errs.ErrTokenInvalid
		}
	}

	if claims.Subject == "" || len(claims.Subject) > maxSubjectLength {
		return nil, errs.ErrTokenInvalid
	}

	return &ExternalIdentity{
		Subject:       claims.Subject,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
		DisplayName:   claims.Name,
		PhotoURL:      claims.Picture,
	}, nil
}

// key returns the public key for kid, refreshing the certificate set when it
// is stale or does not contain kid.
func (v *CertVerifier) key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.keys != nil && v.now().Before(v.expires) {
		if key, ok := v.keys[kid]; ok {
			return key, nil
		}
	}

	keys, maxAge, err := v.fetch(ctx)
	if err != nil {
		return nil, err
	}
	v.keys = keys
	v.expires = v.now().Add(maxAge)

	key, ok := keys[kid]
	if !ok {
		return nil, fmt.Errorf("unknown key id %q", kid)
	}
	return key, nil
}

func (v *CertVerifier) fetch(ctx context.Context) (map[string]*rsa.PublicKey, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.certsURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrKeysUnavailable, err)
	}
	resp, err := v.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrKeysUnavailable, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			zap.L().Debug("Failed to close certs response body", zap.Error(err))
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, 0, fmt.Errorf("%w: http status %d", ErrKeysUnavailable, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrKeysUnavailable, err)
	}

	var certs map[string]string
	if err := json.Unmarshal(body, &certs); err != nil {
		return nil, 0, fmt.Errorf("%w: decode certs: %v", ErrKeysUnavailable, err)
	}

	keys := make(map[string]*rsa.PublicKey, len(certs))
	for kid, pemCert := range certs {
		key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(pemCert))
		if err != nil {
			zap.L().Warn("Skipping unparseable provider certificate", zap.String("kid", kid), zap.Error(err))
			continue
		}
		keys[kid] = key
	}
	if len(keys) == 0 {
		return nil, 0, fmt.Errorf("%w: no usable certificates", ErrKeysUnavailable)
	}

	zap.L().Debug("Refreshed identity provider certificates", zap.Int("count", len(keys)))
	return keys, maxAge(resp.Header.Get("Cache-Control"), v.cacheTTL), nil
}

func maxAge(cacheControl string, fallback time.Duration) time.Duration {
	for _, directive := range strings.Split(cacheControl, ",") {
		directive = strings.TrimSpace(directive)
		if !strings.HasPrefix(directive, "max-age=") {
			continue
		}
		secs, err := strconv.Atoi(strings.TrimPrefix(directive, "max-age="))
		if err != nil || secs <= 0 {
			return fallback
		}
		return time.Duration(secs) * time.Second
	}
	return fallback
}
