package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/webagent-cloud/mailagent/internal/database/models"
)

// Property: connecting the same mailbox repeatedly never creates a
// second account row. The (email, provider) pair is the identity of a
// connection; re-running the OAuth flow only rotates credentials.
func TestProperty_UpsertFromOAuthIsIdempotent(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 20
	properties := gopter.NewProperties(parameters)

	properties.Property("repeated_upsert_keeps_one_account", prop.ForAll(
		func(repeats int) bool {
			db, cleanup := setupTestDB(t)
			defer cleanup()

			logService := NewLogService(db)
			service := NewAccountService(db, logService)

			info := &UserInfo{Email: "user@example.com", DisplayName: "Test User"}
			for i := 0; i < repeats; i++ {
				expiry := time.Now().Add(time.Hour)
				tokens := &TokenSet{
					AccessToken:  fmt.Sprintf("access-%d", i),
					RefreshToken: fmt.Sprintf("refresh-%d", i),
					Expiry:       &expiry,
				}
				if _, err := service.UpsertFromOAuth(models.ProviderGmail, info, tokens); err != nil {
					return false
				}
			}

			var count int64
			db.Model(&models.EmailAccount{}).Count(&count)
			if count != 1 {
				return false
			}

			// The last exchange wins.
			var account models.EmailAccount
			db.First(&account)
			return account.AccessToken == fmt.Sprintf("access-%d", repeats-1)
		},
		gen.IntRange(1, 5),
	))

	// The same email address on a different provider is a distinct account.
	properties.Property("same_email_different_provider_is_separate", prop.ForAll(
		func(email string) bool {
			db, cleanup := setupTestDB(t)
			defer cleanup()

			logService := NewLogService(db)
			service := NewAccountService(db, logService)

			address := email + "@example.com"
			expiry := time.Now().Add(time.Hour)
			tokens := &TokenSet{AccessToken: "a", RefreshToken: "r", Expiry: &expiry}

			if _, err := service.UpsertFromOAuth(models.ProviderGmail, &UserInfo{Email: address}, tokens); err != nil {
				return false
			}
			if _, err := service.UpsertFromOAuth(models.ProviderOutlook, &UserInfo{Email: address}, tokens); err != nil {
				return false
			}

			var count int64
			db.Model(&models.EmailAccount{}).Count(&count)
			return count == 2
		},
		gen.AlphaLowerChar().Map(func(r rune) string { return "user" + string(r) }),
	))

	properties.TestingRun(t)
}

// Property: re-connecting a mailbox clears the sticky auth error and
// reactivates the account, so the scheduler resumes syncing it.
func TestProperty_ReconnectClearsAuthError(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 20
	properties := gopter.NewProperties(parameters)

	properties.Property("upsert_clears_auth_error_and_reactivates", prop.ForAll(
		func(message string) bool {
			db, cleanup := setupTestDB(t)
			defer cleanup()

			logService := NewLogService(db)
			service := NewAccountService(db, logService)

			info := &UserInfo{Email: "user@example.com", DisplayName: "Test User"}
			expiry := time.Now().Add(time.Hour)
			tokens := &TokenSet{AccessToken: "a", RefreshToken: "r", Expiry: &expiry}

			account, err := service.UpsertFromOAuth(models.ProviderGmail, info, tokens)
			if err != nil {
				return false
			}

			if err := service.SetAuthError(account.ID, message); err != nil {
				return false
			}
			if _, err := service.SetAccountActive(account.ID, false); err != nil {
				return false
			}

			if _, err := service.UpsertFromOAuth(models.ProviderGmail, info, tokens); err != nil {
				return false
			}

			var updated models.EmailAccount
			db.First(&updated, account.ID)
			return updated.AuthError == "" && updated.IsActive
		},
		gen.AlphaString().SuchThat(func(s string) bool { return s != "" }),
	))

	properties.TestingRun(t)
}

// Property: token refresh persistence keeps the stored refresh token
// when the provider does not rotate it, and replaces it when it does.
func TestProperty_UpdateTokensRefreshRotation(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 20
	properties := gopter.NewProperties(parameters)

	properties.Property("empty_refresh_token_preserves_stored_one", prop.ForAll(
		func(rotated bool) bool {
			db, cleanup := setupTestDB(t)
			defer cleanup()

			logService := NewLogService(db)
			service := NewAccountService(db, logService)

			info := &UserInfo{Email: "user@example.com"}
			expiry := time.Now().Add(time.Hour)
			initial := &TokenSet{AccessToken: "a0", RefreshToken: "r0", Expiry: &expiry}
			account, err := service.UpsertFromOAuth(models.ProviderGmail, info, initial)
			if err != nil {
				return false
			}

			update := &TokenSet{AccessToken: "a1", Expiry: &expiry}
			if rotated {
				update.RefreshToken = "r1"
			}
			if err := service.UpdateTokens(account.ID, update); err != nil {
				return false
			}

			var stored models.EmailAccount
			db.First(&stored, account.ID)
			if stored.AccessToken != "a1" {
				return false
			}
			if rotated {
				return stored.RefreshToken == "r1"
			}
			return stored.RefreshToken == "r0"
		},
		gen.Bool(),
	))

	properties.TestingRun(t)
}
