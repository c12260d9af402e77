package api

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/webagent-cloud/mailagent/internal/ai"
	"github.com/webagent-cloud/mailagent/internal/api/handlers"
	"github.com/webagent-cloud/mailagent/internal/api/middleware"
	"github.com/webagent-cloud/mailagent/internal/config"
	"github.com/webagent-cloud/mailagent/internal/services"
	"gorm.io/gorm"
)

// SetupRouter initializes the Gin router with all routes configured and
// starts the background sync scheduler.
func SetupRouter(db *gorm.DB, cfg *config.Config) (*gin.Engine, *middleware.APIKeyManager, *services.SyncScheduler, error) {
	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Split(cfg.CORSOrigins, ","),
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-API-Key"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	apiKeyManager, err := middleware.NewAPIKeyManager(cfg.DataDir)
	if err != nil {
		return nil, nil, nil, err
	}

	// Core services
	logService := services.NewLogServiceWithLevel(db, cfg.LogLevel)
	accountService := services.NewAccountService(db, logService)
	emailService := services.NewEmailService(db)
	agentService := services.NewAgentService(db)
	runService := services.NewRunService(db)

	// Mail providers; only configured ones are registered
	var providerList []services.MailProvider
	if cfg.Gmail.IsConfigured() {
		providerList = append(providerList, services.NewGmailProvider(cfg.Gmail, cfg.SyncPageSize))
	}
	if cfg.Outlook.IsConfigured() {
		providerList = append(providerList, services.NewOutlookProvider(cfg.Outlook, cfg.SyncPageSize))
	}
	providers := services.NewProviderRegistry(providerList...)
	credentials := services.NewCredentialManager(accountService, providers)

	// Model client and agent dispatch
	aiClient := ai.NewClient(ai.Keys{
		OpenAI:    cfg.OpenAIAPIKey,
		Anthropic: cfg.AnthropicAPIKey,
		Google:    cfg.GoogleAPIKey,
	}, cfg.ModelTimeout())
	agentRunner := services.NewAgentRunner(db, aiClient, logService, cfg.MaxConcurrentRuns)

	syncService := services.NewSyncService(db, accountService, credentials, providers,
		agentRunner, logService, cfg.LookbackWindow())

	// Background sync scheduler
	syncScheduler := services.NewSyncScheduler(syncService, cfg.SyncInterval(), cfg.InitialSyncDelay())
	syncScheduler.Start()

	// Handlers
	accountHandler := handlers.NewAccountHandler(accountService)
	agentHandler := handlers.NewAgentHandler(agentService, emailService, agentRunner)
	emailHandler := handlers.NewEmailHandler(emailService)
	runHandler := handlers.NewRunHandler(runService)
	syncHandler := handlers.NewSyncHandler(syncService, syncScheduler, accountService)
	oauthHandler := handlers.NewOAuthHandler(accountService, providers)
	logHandler := handlers.NewLogHandler(logService)

	// Health check endpoint (no auth required)
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// API routes
	apiGroup := router.Group("/api")
	{
		// OAuth callback must stay reachable without the API key since
		// the provider redirects the browser here directly.
		apiGroup.GET("/oauth/:provider/callback", oauthHandler.Callback)

		protected := apiGroup.Group("")
		protected.Use(middleware.APIKeyMiddleware(apiKeyManager))
		{
			oauth := protected.Group("/oauth")
			{
				oauth.GET("/config", oauthHandler.GetOAuthConfig)
				oauth.GET("/:provider/auth", oauthHandler.GetAuthURL)
			}

			accounts := protected.Group("/accounts")
			{
				accounts.GET("", accountHandler.ListAccounts)
				accounts.GET("/:id", accountHandler.GetAccount)
				accounts.PUT("/:id", accountHandler.UpdateAccount)
				accounts.DELETE("/:id", accountHandler.DeleteAccount)
				accounts.PUT("/:id/enable", accountHandler.EnableAccount)
				accounts.PUT("/:id/disable", accountHandler.DisableAccount)
				accounts.PUT("/:id/clear-auth-error", accountHandler.ClearAuthError)
				accounts.POST("/:id/sync", syncHandler.SyncAccount)
			}

			agents := protected.Group("/agents")
			{
				agents.GET("", agentHandler.ListAgents)
				agents.POST("", agentHandler.CreateAgent)
				agents.GET("/:id", agentHandler.GetAgent)
				agents.PUT("/:id", agentHandler.UpdateAgent)
				agents.DELETE("/:id", agentHandler.DeleteAgent)
				agents.PUT("/:id/enable", agentHandler.EnableAgent)
				agents.PUT("/:id/disable", agentHandler.DisableAgent)
				agents.POST("/:id/run", agentHandler.RunAgent)
			}

			emails := protected.Group("/emails")
			{
				emails.GET("", emailHandler.ListEmails)
				emails.GET("/stats", emailHandler.GetStats)
				emails.GET("/:id", emailHandler.GetEmail)
				emails.PUT("/:id/read", emailHandler.MarkAsRead)
				emails.PUT("/:id/star", emailHandler.ToggleStar)
			}

			runs := protected.Group("/runs")
			{
				runs.GET("", runHandler.ListRuns)
				runs.GET("/:id", runHandler.GetRun)
			}

			protected.POST("/sync", syncHandler.SyncAll)
			protected.GET("/logs", logHandler.ListLogs)
		}
	}

	return router, apiKeyManager, syncScheduler, nil
}
