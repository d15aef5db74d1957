package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.POST("/accounts", h.CreateAccount)
	r.GET("/accounts", h.ListAccounts)
	r.GET("/accounts/:accountId", h.GetAccount)
	r.GET("/accounts/:accountId/balance", h.GetBalance)
	r.GET("/accounts/:accountId/ledger", h.ListLedgerEntries)

	r.POST("/transfers", h.Transfer)
	r.POST("/deposits", h.Deposit)
	r.POST("/withdrawals", h.Withdraw)

	return r
}
