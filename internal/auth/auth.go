package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/fivetwenty-io/cosmos-client/internal/constants"
)

// Static errors for err113 compliance.
var (
	ErrEmptyKey     = errors.New("master key is empty")
	ErrInvalidKey   = errors.New("master key is not valid base64")
	ErrNoToken      = errors.New("no resource token set")
	ErrTokenExpired = errors.New("resource token has expired")
)

// Authorizer produces the Authorization header value of one request.
type Authorizer interface {
	Authorize(ctx context.Context, verb, resourceType, resourceLink string, date time.Time) (string, error)
}

// FormatDate renders t the way x-ms-date expects it.
func FormatDate(t time.Time) string {
	return t.UTC().Format("Mon, 02 Jan 2006 15:04:05 GMT")
}

// MasterKeyAuthorizer signs requests with an account key.
type MasterKeyAuthorizer struct {
	key []byte
}

// NewMasterKeyAuthorizer decodes the base64 account key.
func NewMasterKeyAuthorizer(masterKey string) (*MasterKeyAuthorizer, error) {
	if masterKey == "" {
		return nil, ErrEmptyKey
	}

	key, err := base64.StdEncoding.DecodeString(masterKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidKey, err)
	}

	return &MasterKeyAuthorizer{key: key}, nil
}

// Authorize implements Authorizer. The signed payload is the lower-cased
// verb, resource type and date around the case-preserved resource link.
func (a *MasterKeyAuthorizer) Authorize(ctx context.Context, verb, resourceType, resourceLink string, date time.Time) (string, error) {
	payload := strings.ToLower(verb) + "\n" +
		strings.ToLower(resourceType) + "\n" +
		resourceLink + "\n" +
		strings.ToLower(FormatDate(date)) + "\n" +
		"\n"

	mac := hmac.New(sha256.New, a.key)
	mac.Write([]byte(payload))
	signature := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	return url.QueryEscape("type=" + constants.MasterTokenType + "&ver=" + constants.TokenVersion + "&sig=" + signature), nil
}

// ResourceToken is a pre-authorized token for a single resource.
type ResourceToken struct {
	Token     string
	ExpiresAt time.Time
}

// Valid returns true if the token is set and not about to expire.
func (t *ResourceToken) Valid() bool {
	if t == nil || t.Token == "" {
		return false
	}

	if t.ExpiresAt.IsZero() {
		return true
	}

	return time.Now().Add(constants.TokenExpirationBuffer).Before(t.ExpiresAt)
}

// ResourceTokenAuthorizer sends a resource token URL-encoded. The token can be
// swapped while requests are in flight.
type ResourceTokenAuthorizer struct {
	mutex sync.RWMutex
	token *ResourceToken
}

// NewResourceTokenAuthorizer creates an authorizer holding token. A zero
// expiresAt means the expiry is unknown.
func NewResourceTokenAuthorizer(token string, expiresAt time.Time) *ResourceTokenAuthorizer {
	authorizer := &ResourceTokenAuthorizer{}
	authorizer.SetToken(token, expiresAt)

	return authorizer
}

// SetToken replaces the held token.
func (a *ResourceTokenAuthorizer) SetToken(token string, expiresAt time.Time) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	if token == "" {
		a.token = nil

		return
	}

	a.token = &ResourceToken{Token: token, ExpiresAt: expiresAt}
}

// Token returns a copy of the held token, or nil.
func (a *ResourceTokenAuthorizer) Token() *ResourceToken {
	a.mutex.RLock()
	defer a.mutex.RUnlock()

	if a.token == nil {
		return nil
	}

	token := *a.token

	return &token
}

// Authorize implements Authorizer.
func (a *ResourceTokenAuthorizer) Authorize(ctx context.Context, verb, resourceType, resourceLink string, date time.Time) (string, error) {
	token := a.Token()
	if token == nil {
		return "", ErrNoToken
	}

	if !token.Valid() {
		return "", ErrTokenExpired
	}

	return url.QueryEscape(token.Token), nil
}
