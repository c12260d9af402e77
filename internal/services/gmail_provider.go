package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/webagent-cloud/mailagent/internal/config"
	"github.com/webagent-cloud/mailagent/internal/database/models"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// GmailProvider implements MailProvider against the Gmail API
type GmailProvider struct {
	oauthConfig *oauth2.Config
	pageSize    int64
	httpClient  *http.Client
}

// NewGmailProvider creates a GmailProvider from OAuth client settings
func NewGmailProvider(cfg config.OAuthConfig, pageSize int) *GmailProvider {
	return &GmailProvider{
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes: []string{
				gmail.GmailReadonlyScope,
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: google.Endpoint,
		},
		pageSize: int64(pageSize),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Name returns the provider key
func (p *GmailProvider) Name() models.EmailProvider {
	return models.ProviderGmail
}

// IsConfigured reports whether the OAuth client settings are present
func (p *GmailProvider) IsConfigured() bool {
	return p.oauthConfig.ClientID != "" && p.oauthConfig.ClientSecret != "" && p.oauthConfig.RedirectURL != ""
}

// AuthURL returns the consent-screen URL for the authorization-code flow.
// Consent is forced so a refresh token is always issued.
func (p *GmailProvider) AuthURL(state string) string {
	return p.oauthConfig.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	)
}

// ExchangeCode exchanges an authorization code for a token set
func (p *GmailProvider) ExchangeCode(code string) (*TokenSet, error) {
	if !p.IsConfigured() {
		return nil, ErrProviderNotConfigured
	}

	token, err := p.oauthConfig.Exchange(context.Background(), code)
	if err != nil {
		return nil, fmt.Errorf("code exchange failed: %w", err)
	}

	return tokenSetFromOAuth2(token), nil
}

// RefreshToken obtains a new access token using the refresh token
func (p *GmailProvider) RefreshToken(refreshToken string) (*TokenSet, error) {
	if !p.IsConfigured() {
		return nil, ErrProviderNotConfigured
	}

	source := p.oauthConfig.TokenSource(context.Background(), &oauth2.Token{RefreshToken: refreshToken})
	token, err := source.Token()
	if err != nil {
		return nil, fmt.Errorf("token refresh failed: %w", err)
	}

	set := tokenSetFromOAuth2(token)
	if set.RefreshToken == refreshToken {
		// Not rotated
		set.RefreshToken = ""
	}
	return set, nil
}

// GetUserInfo fetches the mailbox owner's email address and display name
func (p *GmailProvider) GetUserInfo(accessToken string) (*UserInfo, error) {
	req, err := http.NewRequest("GET", "https://www.googleapis.com/oauth2/v2/userinfo", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo request failed with status %d", resp.StatusCode)
	}

	var data struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, err
	}

	return &UserInfo{Email: data.Email, DisplayName: data.Name}, nil
}

// ListNewMessages lists messages received after since, fetching full
// detail per message id. A failure on a single message is logged and
// skipped so one bad message cannot abort the batch.
func (p *GmailProvider) ListNewMessages(accessToken string, since time.Time) ([]RawMessage, error) {
	ctx := context.Background()
	source := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})
	srv, err := gmail.NewService(ctx, option.WithTokenSource(source))
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("after:%d", since.Unix())
	listResp, err := srv.Users.Messages.List("me").Q(query).MaxResults(p.pageSize).Do()
	if err != nil {
		return nil, err
	}

	messages := make([]RawMessage, 0, len(listResp.Messages))
	for _, ref := range listResp.Messages {
		if ref.Id == "" {
			continue
		}

		full, err := srv.Users.Messages.Get("me", ref.Id).Format("full").Do()
		if err != nil {
			log.Printf("[GmailProvider] Failed to fetch message %s: %v", ref.Id, err)
			continue
		}

		messages = append(messages, p.normalizeMessage(full))
	}

	return messages, nil
}

// normalizeMessage converts a Gmail API message into the canonical shape
func (p *GmailProvider) normalizeMessage(msg *gmail.Message) RawMessage {
	raw := RawMessage{
		MessageID: msg.Id,
		ThreadID:  msg.ThreadId,
	}

	var dateHeader string
	if msg.Payload != nil {
		for _, h := range msg.Payload.Headers {
			switch strings.ToLower(h.Name) {
			case "subject":
				raw.Subject = h.Value
			case "from":
				raw.From = h.Value
			case "to":
				raw.To = h.Value
			case "date":
				dateHeader = h.Value
			}
		}
	}

	raw.ReceivedAt = parseMessageDate(dateHeader, msg.InternalDate)

	plain, html := extractBodyParts(msg.Payload)
	if plain != "" {
		raw.Body = plain
	} else {
		raw.Body = html
	}

	return raw
}

// parseMessageDate parses the Date header, falling back to the
// provider's internal timestamp, then to now.
func parseMessageDate(header string, internalMillis int64) time.Time {
	if header != "" {
		if t, err := mail.ParseDate(header); err == nil {
			return t
		}
	}
	if internalMillis > 0 {
		return time.UnixMilli(internalMillis)
	}
	return time.Now()
}

// extractBodyParts walks the MIME part tree collecting the first
// text/plain and text/html bodies found.
func extractBodyParts(part *gmail.MessagePart) (plain, html string) {
	if part == nil {
		return "", ""
	}

	if part.Body != nil && part.Body.Data != "" {
		decoded, err := decodeBase64URL(part.Body.Data)
		if err == nil {
			switch part.MimeType {
			case "text/plain":
				if plain == "" {
					plain = decoded
				}
			case "text/html":
				if html == "" {
					html = decoded
				}
			}
		}
	}

	for _, child := range part.Parts {
		childPlain, childHTML := extractBodyParts(child)
		if plain == "" {
			plain = childPlain
		}
		if html == "" {
			html = childHTML
		}
	}

	return plain, html
}

// decodeBase64URL decodes Gmail body data, which is base64url with or
// without padding depending on the part.
func decodeBase64URL(data string) (string, error) {
	if decoded, err := base64.URLEncoding.DecodeString(data); err == nil {
		return string(decoded), nil
	}
	decoded, err := base64.RawURLEncoding.DecodeString(data)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}

// tokenSetFromOAuth2 converts an oauth2 token into a TokenSet
func tokenSetFromOAuth2(token *oauth2.Token) *TokenSet {
	set := &TokenSet{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
	}
	if !token.Expiry.IsZero() {
		expiry := token.Expiry
		set.Expiry = &expiry
	}
	return set
}
