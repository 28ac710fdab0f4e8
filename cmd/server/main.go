package main

import (
	"log"

	"github.com/gin-gonic/gin"

	"tillpoint/config"
	"tillpoint/internal/database"
	"tillpoint/internal/events"
	"tillpoint/internal/gateway/handlers"
	"tillpoint/internal/gateway/middleware"
	"tillpoint/internal/inventory"
	"tillpoint/internal/order"
	"tillpoint/internal/refund"
	"tillpoint/internal/register"
	"tillpoint/internal/report"
)

func main() {
	cfg := config.LoadConfig()

	db, err := database.NewConnection(cfg.DB.DSN())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	redisClient := config.NewRedisClient(cfg.Redis)

	publisher := events.NewRedisPublisher(redisClient)
	orderStore := order.NewGormStore(db)
	ledger := order.NewLedger(orderStore, publisher, cfg.Sales.TaxRate)
	restocker := inventory.NewStockKeeper(db)
	refunds := refund.NewProcessor(orderStore, restocker, publisher)
	sessions := register.NewService(register.NewGormStore(db), cfg.Sales.RegisterVarianceWarn)
	reports := report.NewService(orderStore)

	orderHandler := handlers.NewOrderHTTPHandler(ledger, refunds, redisClient)
	registerHandler := handlers.NewRegisterHTTPHandler(sessions)
	reportHandler := handlers.NewReportHTTPHandler(reports)

	r := gin.Default()
	r.Use(middleware.CORS())
	r.Use(middleware.RateLimit("120-M"))

	api := r.Group("/api/v1")
	api.Use(middleware.JWTAuth([]byte(cfg.Auth.JWTSecret)))
	{
		orders := api.Group("/orders")
		{
			orders.POST("", orderHandler.CreateOrder)
			orders.GET("", orderHandler.ListOrders)
			orders.GET("/:id", orderHandler.GetOrder)
			orders.PATCH("/:id", orderHandler.UpdateOrder)
			orders.DELETE("/:id", orderHandler.DeleteOrder)
			orders.GET("/:id/balance", orderHandler.GetBalance)
			orders.POST("/:id/refunds", orderHandler.CreateRefund)
		}

		registers := api.Group("/registers")
		{
			registers.POST("/sessions", registerHandler.OpenSession)
			registers.GET("/sessions/:id", registerHandler.GetSession)
			registers.POST("/sessions/:id/movements", registerHandler.RecordMovement)
			registers.POST("/sessions/:id/close", registerHandler.CloseSession)
		}

		reportsGroup := api.Group("/reports")
		{
			reportsGroup.GET("/sales", reportHandler.SalesReport)
		}
	}

	log.Printf("Listening on %s", cfg.Server.Addr)
	if err := r.Run(cfg.Server.Addr); err != nil {
		log.Fatalf("Server stopped: %v", err)
	}
}
