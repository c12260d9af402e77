package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/webagent-cloud/mailagent/internal/config"
	"github.com/webagent-cloud/mailagent/internal/database/models"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/microsoft"
)

const graphBaseURL = "https://graph.microsoft.com/v1.0"

// OutlookProvider implements MailProvider against the Microsoft Graph API
type OutlookProvider struct {
	oauthConfig *oauth2.Config
	pageSize    int
	httpClient  *http.Client
}

// NewOutlookProvider creates an OutlookProvider from OAuth client settings
func NewOutlookProvider(cfg config.OAuthConfig, pageSize int) *OutlookProvider {
	tenant := cfg.TenantID
	if tenant == "" {
		tenant = "common"
	}

	return &OutlookProvider{
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes: []string{
				"https://graph.microsoft.com/Mail.Read",
				"https://graph.microsoft.com/User.Read",
				"offline_access",
			},
			Endpoint: microsoft.AzureADEndpoint(tenant),
		},
		pageSize: pageSize,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Name returns the provider key
func (p *OutlookProvider) Name() models.EmailProvider {
	return models.ProviderOutlook
}

// IsConfigured reports whether the OAuth client settings are present
func (p *OutlookProvider) IsConfigured() bool {
	return p.oauthConfig.ClientID != "" && p.oauthConfig.ClientSecret != "" && p.oauthConfig.RedirectURL != ""
}

// AuthURL returns the consent-screen URL for the authorization-code flow
func (p *OutlookProvider) AuthURL(state string) string {
	return p.oauthConfig.AuthCodeURL(state,
		oauth2.SetAuthURLParam("response_mode", "query"),
		oauth2.SetAuthURLParam("prompt", "consent"),
	)
}

// ExchangeCode exchanges an authorization code for a token set
func (p *OutlookProvider) ExchangeCode(code string) (*TokenSet, error) {
	if !p.IsConfigured() {
		return nil, ErrProviderNotConfigured
	}

	token, err := p.oauthConfig.Exchange(context.Background(), code)
	if err != nil {
		return nil, fmt.Errorf("code exchange failed: %w", err)
	}

	return tokenSetFromOAuth2(token), nil
}

// RefreshToken obtains a new access token using the refresh token.
// Microsoft rotates refresh tokens; the rotated token is returned so
// the caller can persist it.
func (p *OutlookProvider) RefreshToken(refreshToken string) (*TokenSet, error) {
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
		set.RefreshToken = ""
	}
	return set, nil
}

// GetUserInfo fetches the mailbox owner's profile from Graph
func (p *OutlookProvider) GetUserInfo(accessToken string) (*UserInfo, error) {
	req, err := http.NewRequest("GET", graphBaseURL+"/me", nil)
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
		Mail              string `json:"mail"`
		UserPrincipalName string `json:"userPrincipalName"`
		DisplayName       string `json:"displayName"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, err
	}

	email := data.Mail
	if email == "" {
		email = data.UserPrincipalName
	}

	return &UserInfo{Email: email, DisplayName: data.DisplayName}, nil
}

// graphEmailAddress is a structured name+address pair
type graphEmailAddress struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

// graphRecipient wraps an email address in Graph's envelope shape
type graphRecipient struct {
	EmailAddress graphEmailAddress `json:"emailAddress"`
}

// graphMessage is the subset of Graph message fields the sync needs
type graphMessage struct {
	ID               string           `json:"id"`
	ConversationID   string           `json:"conversationId"`
	Subject          string           `json:"subject"`
	From             *graphRecipient  `json:"from"`
	ToRecipients     []graphRecipient `json:"toRecipients"`
	ReceivedDateTime string           `json:"receivedDateTime"`
	Body             struct {
		Content string `json:"content"`
	} `json:"body"`
	IsRead bool `json:"isRead"`
}

// ListNewMessages queries Graph for messages received at or after
// since, newest first, in a single bounded page.
func (p *OutlookProvider) ListNewMessages(accessToken string, since time.Time) ([]RawMessage, error) {
	params := url.Values{}
	params.Set("$filter", "receivedDateTime ge "+since.UTC().Format(time.RFC3339))
	params.Set("$top", strconv.Itoa(p.pageSize))
	params.Set("$orderby", "receivedDateTime desc")
	params.Set("$select", "id,conversationId,subject,from,toRecipients,receivedDateTime,body,isRead")

	req, err := http.NewRequest("GET", graphBaseURL+"/me/messages?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		message := resp.Status
		var errData struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(body, &errData) == nil && errData.Error.Message != "" {
			message = errData.Error.Message
		}
		return nil, &GraphError{Status: resp.StatusCode, Message: message}
	}

	var data struct {
		Value []graphMessage `json:"value"`
	}
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, err
	}

	messages := make([]RawMessage, 0, len(data.Value))
	for _, msg := range data.Value {
		if msg.ID == "" {
			continue
		}
		messages = append(messages, normalizeGraphMessage(msg))
	}

	return messages, nil
}

// normalizeGraphMessage converts a Graph message into the canonical shape
func normalizeGraphMessage(msg graphMessage) RawMessage {
	raw := RawMessage{
		MessageID: msg.ID,
		ThreadID:  msg.ConversationID,
		Subject:   msg.Subject,
		Body:      msg.Body.Content,
		IsRead:    msg.IsRead,
	}

	if msg.From != nil {
		raw.From = formatGraphAddress(msg.From.EmailAddress)
	}

	var recipients []string
	for _, r := range msg.ToRecipients {
		if formatted := formatGraphAddress(r.EmailAddress); formatted != "" {
			recipients = append(recipients, formatted)
		}
	}
	raw.To = strings.Join(recipients, ", ")

	if msg.ReceivedDateTime != "" {
		if t, err := time.Parse(time.RFC3339, msg.ReceivedDateTime); err == nil {
			raw.ReceivedAt = t
		}
	}
	if raw.ReceivedAt.IsZero() {
		raw.ReceivedAt = time.Now()
	}

	return raw
}

// formatGraphAddress renders a name+address pair as "Name <address>",
// or the bare address when no name is present.
func formatGraphAddress(addr graphEmailAddress) string {
	if addr.Address == "" {
		return ""
	}
	if addr.Name != "" {
		return fmt.Sprintf("%s <%s>", addr.Name, addr.Address)
	}
	return addr.Address
}
