package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"valet_parking/internal/api/handler"
	"valet_parking/internal/api/middleware"
	"valet_parking/internal/dashboard"
	"valet_parking/internal/domain"
	"valet_parking/internal/feed"
	"valet_parking/internal/logger"
	"valet_parking/internal/service"
)

// Deps gom các thành phần router cần.
type Deps struct {
	Auth        *service.AuthService
	Parking     *service.ParkingService
	AuthMw      *middleware.AuthMiddleware
	Hub         *feed.Hub
	WSManager   *handler.WebSocketManager
	ViewModel   *dashboard.ViewModel
	AuthLimiter *middleware.RateLimiter
}

func SetupRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(logger.GinLogger())
	r.Use(gin.Recovery())

	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// WebSocket xác thực bằng query ?token=
	wsHandler := handler.NewWebSocketHandler(d.WSManager, d.Hub, d.Auth, d.Parking)
	r.GET("/ws", wsHandler.HandleWebSocket)

	authHandler := handler.NewAuthHandler(d.Auth)
	authRoutes := r.Group("/auth")
	if d.AuthLimiter != nil {
		authRoutes.Use(d.AuthLimiter.Handler())
	}
	{
		authRoutes.POST("/register", authHandler.Register)
		authRoutes.POST("/login", authHandler.Login)
	}

	slotH := handler.NewParkingSlotHandler(d.Parking)
	parkingH := handler.NewParkingHandler(d.Parking, d.Auth, d.ViewModel)

	// Endpoint công khai cho khách hàng và dashboard poll
	r.POST("/customer/slots/:slot_id/request", slotH.RequestCar)
	r.GET("/api/cars/occupied", parkingH.OccupiedCars)

	staff := []domain.Role{domain.RoleValet, domain.RoleAdmin}

	v1 := r.Group("/api/v1")
	v1.Use(d.AuthMw.Authenticate())
	{
		v1.POST("/auth/logout", authHandler.Logout)
		v1.GET("/me", authHandler.Me)

		slotRoutes := v1.Group("/slots")
		{
			slotRoutes.POST("/generate-id", d.AuthMw.AuthorizeRole(staff...), slotH.GenerateSlotID)
			slotRoutes.POST("", d.AuthMw.AuthorizeRole(staff...), slotH.Park)
			slotRoutes.GET("/:slot_id", slotH.GetSlot)
			slotRoutes.POST("/:slot_id/ready", d.AuthMw.AuthorizeRole(staff...), slotH.MarkReady)
			slotRoutes.POST("/:slot_id/deliver", d.AuthMw.AuthorizeRole(staff...), slotH.EndService)
			slotRoutes.POST("/:slot_id/clear", d.AuthMw.AuthorizeRole(staff...), slotH.Clear)
		}

		dashRoutes := v1.Group("/dashboard")
		{
			dashRoutes.GET("/valet", d.AuthMw.AuthorizeRole(staff...), parkingH.ValetDashboard)
			dashRoutes.GET("/valet/history", d.AuthMw.AuthorizeRole(staff...), parkingH.ValetHistory)
			dashRoutes.GET("/admin", d.AuthMw.AuthorizeRole(domain.RoleAdmin), parkingH.AdminDashboard)
		}

		empRoutes := v1.Group("/employees")
		empRoutes.Use(d.AuthMw.AuthorizeRole(domain.RoleAdmin))
		{
			empRoutes.GET("/valets", authHandler.ListValets)
			empRoutes.POST("", authHandler.AddEmployee)
		}
	}
	return r
}
