package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/webagent-cloud/mailagent/internal/database/models"
	"google.golang.org/api/googleapi"
)

var (
	// ErrProviderNotConfigured indicates the provider's OAuth client is not configured
	ErrProviderNotConfigured = errors.New("mail provider not configured")
	// ErrUnknownProvider indicates an unknown mail provider key
	ErrUnknownProvider = errors.New("unknown mail provider")
	// ErrNoRefreshToken indicates the account has no refresh token to renew credentials with
	ErrNoRefreshToken = errors.New("no refresh token available")
)

// RawMessage is a provider-normalized mail message as fetched from the remote mailbox
type RawMessage struct {
	MessageID  string
	ThreadID   string
	Subject    string
	From       string
	To         string
	ReceivedAt time.Time
	Body       string
	IsRead     bool
}

// TokenSet is the result of an OAuth code exchange or token refresh.
// RefreshToken is empty when the provider did not rotate it.
type TokenSet struct {
	AccessToken  string
	RefreshToken string
	Expiry       *time.Time
}

// UserInfo is the profile of the mailbox owner as reported by the provider
type UserInfo struct {
	Email       string
	DisplayName string
}

// MailProvider is the capability surface of one mail provider. One
// implementation exists per provider; accounts select theirs by their
// Provider field.
type MailProvider interface {
	Name() models.EmailProvider
	AuthURL(state string) string
	ExchangeCode(code string) (*TokenSet, error)
	RefreshToken(refreshToken string) (*TokenSet, error)
	GetUserInfo(accessToken string) (*UserInfo, error)
	// ListNewMessages fetches messages received at or after since,
	// bounded to one page per call.
	ListNewMessages(accessToken string, since time.Time) ([]RawMessage, error)
}

// ProviderRegistry maps provider keys to their implementations
type ProviderRegistry struct {
	providers map[models.EmailProvider]MailProvider
}

// NewProviderRegistry creates a registry from the given providers
func NewProviderRegistry(providers ...MailProvider) *ProviderRegistry {
	r := &ProviderRegistry{providers: make(map[models.EmailProvider]MailProvider)}
	for _, p := range providers {
		r.providers[p.Name()] = p
	}
	return r
}

// Get returns the provider implementation for the given key
func (r *ProviderRegistry) Get(name models.EmailProvider) (MailProvider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
	return p, nil
}

// GraphError is a non-success response from the Microsoft Graph API
type GraphError struct {
	Status  int
	Message string
}

func (e *GraphError) Error() string {
	return fmt.Sprintf("graph API error (%d): %s", e.Status, e.Message)
}

// isAuthError reports whether a provider fetch failed with an
// auth-class HTTP status, which warrants one refresh-and-retry.
func isAuthError(err error) bool {
	var graphErr *GraphError
	if errors.As(err, &graphErr) {
		return graphErr.Status == 401
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == 401
	}
	return false
}
