// Package server wires the HTTP surface: routing, request middleware and the
// JSON handlers that front the domain services.
package server

import (
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// NewRouter builds the gin engine with all routes and middleware. verifier
// may be nil to disable authentication.
func NewRouter(logger *zap.Logger, handlers *Handlers, verifier TokenVerifier) *gin.Engine {
	registerValidators()

	router := gin.New()

	router.Use(ginzap.Ginzap(logger, time.RFC3339, true))
	router.Use(ginzap.RecoveryWithZap(logger, true))
	router.Use(cors.Default())
	router.Use(TraceIDMiddleware())

	router.GET("/health", handlers.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.POST("/users", handlers.RegisterUser)
	router.POST("/users/sign-in", handlers.SignIn)

	authed := router.Group("/", AuthMiddleware(verifier))
	{
		authed.POST("/banks/accounts", handlers.Transfer)
		authed.POST("/financial/accounts", handlers.OpenAccount)
		authed.GET("/financial/accounts/:userSub", handlers.ListAccounts)
		authed.GET("/accounts/:accountId", handlers.GetAccount)
		authed.POST("/notifications/tokens", handlers.RegisterPushToken)
	}

	return router
}
