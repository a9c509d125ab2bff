// Package server assembles the HTTP API.
package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"golang.org/x/time/rate"

	"finledger/internal/config"
	"finledger/internal/handlers"
	"finledger/internal/middleware"

	_ "finledger/internal/docs" // Import swagger docs
)

// NewRouter wires the handlers, middleware and routes.
func NewRouter(cfg *config.Config, svc *Services) *gin.Engine {
	accountHandler := handlers.NewAccountHandler(svc.Accounts, svc.Transactions, svc.Audit)
	transactionHandler := handlers.NewTransactionHandler(svc.Transactions, svc.Audit)
	transferHandler := handlers.NewTransferHandler(svc.Transfers, svc.Audit)
	investmentHandler := handlers.NewInvestmentHandler(svc.Investments, svc.Audit)
	integrityHandler := handlers.NewIntegrityHandler(svc.Integrity, svc.Audit)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check endpoint
	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")
	if cfg.AuthEnabled {
		v1.Use(middleware.AuthMiddleware([]byte(cfg.JWTSecret)))
	}

	// Account routes
	accounts := v1.Group("/accounts")
	accounts.POST("", accountHandler.CreateAccount)
	accounts.GET("", accountHandler.ListAccounts)
	accounts.GET("/:id", accountHandler.GetAccount)
	accounts.PUT("/:id", accountHandler.UpdateAccount)
	accounts.DELETE("/:id", accountHandler.DeleteAccount)
	accounts.POST("/:id/adjust", accountHandler.AdjustBalance)
	accounts.GET("/:id/transactions", accountHandler.GetAccountTransactions)
	accounts.GET("/:id/transactions/deleted", accountHandler.GetDeletedTransactions)

	// Credit card routes
	cards := v1.Group("/credit-cards")
	cards.POST("", accountHandler.CreateCreditCard)
	cards.GET("", accountHandler.ListCreditCards)
	cards.GET("/:id", accountHandler.GetCreditCard)
	cards.PUT("/:id", accountHandler.UpdateCreditCard)
	cards.DELETE("/:id", accountHandler.DeleteCreditCard)
	cards.POST("/:id/adjust", accountHandler.AdjustCreditCardBalance)
	cards.GET("/:id/transactions", accountHandler.GetAccountTransactions)
	cards.GET("/:id/transactions/deleted", accountHandler.GetDeletedTransactions)

	// Transaction routes
	transactions := v1.Group("/transactions")
	transactions.POST("", transactionHandler.CreateTransaction)
	transactions.GET("/:id", transactionHandler.GetTransaction)
	transactions.PUT("/:id", transactionHandler.UpdateTransaction)
	transactions.DELETE("/:id", transactionHandler.DeleteTransaction)

	// Transfer routes
	transfers := v1.Group("/transfers")
	transfers.POST("/validate", transferHandler.ValidateTransfer)
	transfers.POST("", transferHandler.CreateTransfer)
	transfers.GET("", transferHandler.ListTransfers)
	transfers.GET("/:id", transferHandler.GetTransfer)
	transfers.DELETE("/:id", transferHandler.DeleteTransfer)

	// Investment routes
	investments := v1.Group("/investments")
	investments.POST("", investmentHandler.CreateInvestment)
	investments.GET("", investmentHandler.ListInvestments)
	investments.GET("/:id", investmentHandler.GetInvestment)
	investments.GET("/:id/total", investmentHandler.GetTotalInvested)
	investments.POST("/:id/contributions", investmentHandler.AddContribution)
	investments.DELETE("/:id/contributions/:cid", investmentHandler.DeleteContribution)
	investments.POST("/:id/withdrawals", investmentHandler.ProcessWithdrawal)
	investments.DELETE("/:id/withdrawals/:wid", investmentHandler.DeleteWithdrawal)
	investments.POST("/:id/accrue", investmentHandler.AccrueReturns)

	// Integrity routes
	perMin := cfg.ReconcileRatePerMin
	if perMin <= 0 {
		perMin = 1
	}
	reconcileLimiter := rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMin)), perMin)

	integrity := v1.Group("/integrity")
	integrity.GET("/status", integrityHandler.Status)
	integrity.POST("/validate", integrityHandler.Validate)
	integrity.POST("/reconcile", middleware.RateLimit(reconcileLimiter), integrityHandler.Reconcile)

	return router
}
