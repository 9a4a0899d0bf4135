package auth_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/fivetwenty-io/cosmos-client/internal/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMasterKey = "dsZQi3KtZmCv1ljt3VNWNm7sQUF1y5rJfC6kv5JiwvW0EndXdDku/dkKBp8/ufDToSxLzR4y+O/0H/t4bQtVNw=="

func TestFormatDate(t *testing.T) {
	t.Parallel()

	date := time.Date(2017, time.April, 27, 0, 51, 12, 0, time.UTC)
	assert.Equal(t, "Thu, 27 Apr 2017 00:51:12 GMT", auth.FormatDate(date))

	local := date.In(time.FixedZone("CEST", 2*60*60))
	assert.Equal(t, "Thu, 27 Apr 2017 00:51:12 GMT", auth.FormatDate(local))
}

func TestMasterKeyAuthorizer(t *testing.T) {
	t.Parallel()

	authorizer, err := auth.NewMasterKeyAuthorizer(testMasterKey)
	require.NoError(t, err)

	tests := []struct {
		name         string
		verb         string
		resourceType string
		resourceLink string
		date         time.Time
		expected     string
	}{
		{
			name:         "read database",
			verb:         "GET",
			resourceType: "dbs",
			resourceLink: "dbs/ToDoList",
			date:         time.Date(2017, time.April, 27, 0, 51, 12, 0, time.UTC),
			expected:     "type%3Dmaster%26ver%3D1.0%26sig%3Dc09PEVJrgp2uQRkr934kFbTqhByc7TVr3OHyqlu%2Bc%2Bc%3D",
		},
		{
			name:         "create document",
			verb:         "POST",
			resourceType: "docs",
			resourceLink: "dbs/shop/colls/orders",
			date:         time.Date(2026, time.October, 19, 10, 0, 0, 0, time.UTC),
			expected:     "type%3Dmaster%26ver%3D1.0%26sig%3DwigMdQY%2FeMu89wDjh95L9Olwu4Kz5ogAa%2BszpUoSn2s%3D",
		},
		{
			name:         "verb and type are case insensitive",
			verb:         "get",
			resourceType: "DBS",
			resourceLink: "dbs/ToDoList",
			date:         time.Date(2017, time.April, 27, 0, 51, 12, 0, time.UTC),
			expected:     "type%3Dmaster%26ver%3D1.0%26sig%3Dc09PEVJrgp2uQRkr934kFbTqhByc7TVr3OHyqlu%2Bc%2Bc%3D",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			token, err := authorizer.Authorize(context.Background(), tt.verb, tt.resourceType, tt.resourceLink, tt.date)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, token)
		})
	}
}

func TestMasterKeyAuthorizer_LinkIsCaseSensitive(t *testing.T) {
	t.Parallel()

	authorizer, err := auth.NewMasterKeyAuthorizer(testMasterKey)
	require.NoError(t, err)

	date := time.Date(2017, time.April, 27, 0, 51, 12, 0, time.UTC)

	lower, err := authorizer.Authorize(context.Background(), "GET", "dbs", "dbs/todolist", date)
	require.NoError(t, err)

	mixed, err := authorizer.Authorize(context.Background(), "GET", "dbs", "dbs/ToDoList", date)
	require.NoError(t, err)

	assert.NotEqual(t, lower, mixed)
}

func TestNewMasterKeyAuthorizer_Errors(t *testing.T) {
	t.Parallel()

	_, err := auth.NewMasterKeyAuthorizer("")
	require.ErrorIs(t, err, auth.ErrEmptyKey)

	_, err = auth.NewMasterKeyAuthorizer("not base64!")
	require.ErrorIs(t, err, auth.ErrInvalidKey)
}

func TestResourceToken_Valid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		token    *auth.ResourceToken
		expected bool
	}{
		{
			name:     "nil token",
			token:    nil,
			expected: false,
		},
		{
			name:     "empty token",
			token:    &auth.ResourceToken{},
			expected: false,
		},
		{
			name:     "token without expiry",
			token:    &auth.ResourceToken{Token: "type=resource&ver=1.0&sig=abc"},
			expected: true,
		},
		{
			name: "token with future expiry",
			token: &auth.ResourceToken{
				Token:     "type=resource&ver=1.0&sig=abc",
				ExpiresAt: time.Now().Add(1 * time.Hour),
			},
			expected: true,
		},
		{
			name: "token expiring within buffer",
			token: &auth.ResourceToken{
				Token:     "type=resource&ver=1.0&sig=abc",
				ExpiresAt: time.Now().Add(15 * time.Second),
			},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, tt.token.Valid())
		})
	}
}

func TestResourceTokenAuthorizer(t *testing.T) {
	t.Parallel()
	t.Run("encodes token", testResourceTokenEncoded)
	t.Run("no token", testResourceTokenMissing)
	t.Run("expired token", testResourceTokenExpired)
	t.Run("concurrent access", testResourceTokenConcurrent)
}

func testResourceTokenEncoded(t *testing.T) {
	t.Parallel()

	authorizer := auth.NewResourceTokenAuthorizer("type=resource&ver=1.0&sig=a/b+c=", time.Time{})

	token, err := authorizer.Authorize(context.Background(), "GET", "docs", "dbs/d/colls/c/docs/x", time.Now())
	require.NoError(t, err)
	assert.Equal(t, "type%3Dresource%26ver%3D1.0%26sig%3Da%2Fb%2Bc%3D", token)
}

func testResourceTokenMissing(t *testing.T) {
	t.Parallel()

	authorizer := auth.NewResourceTokenAuthorizer("", time.Time{})
	assert.Nil(t, authorizer.Token())

	_, err := authorizer.Authorize(context.Background(), "GET", "docs", "", time.Now())
	require.ErrorIs(t, err, auth.ErrNoToken)
}

func testResourceTokenExpired(t *testing.T) {
	t.Parallel()

	authorizer := auth.NewResourceTokenAuthorizer("token", time.Now().Add(-time.Minute))

	_, err := authorizer.Authorize(context.Background(), "GET", "docs", "", time.Now())
	require.ErrorIs(t, err, auth.ErrTokenExpired)

	authorizer.SetToken("fresh", time.Now().Add(time.Hour))

	token, err := authorizer.Authorize(context.Background(), "GET", "docs", "", time.Now())
	require.NoError(t, err)
	assert.Equal(t, "fresh", token)
}

func testResourceTokenConcurrent(t *testing.T) {
	t.Parallel()

	authorizer := auth.NewResourceTokenAuthorizer("initial", time.Time{})

	var waitGroup sync.WaitGroup

	for range 10 {
		waitGroup.Add(2)

		go func() {
			defer waitGroup.Done()

			authorizer.SetToken("rotated", time.Time{})
		}()

		go func() {
			defer waitGroup.Done()

			_, _ = authorizer.Authorize(context.Background(), "GET", "docs", "", time.Now())
		}()
	}

	waitGroup.Wait()

	assert.Equal(t, "rotated", authorizer.Token().Token)
}
