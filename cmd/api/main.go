package main

import (
	"context"
	"log"
	"os"

	_ "nexustax/api/swagger" // swagger docs
	"nexustax/internal/database"
	"nexustax/internal/engine"
	"nexustax/internal/handler"
	"nexustax/internal/middleware"
	"nexustax/internal/repository"
	"nexustax/internal/service"
	"nexustax/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           Nexus Tax Study API
// @version         1.0
// @description     Sales tax nexus determination and liability calculation engine.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := godotenv.Load("configs/.env"); err != nil {
		log.Println("No configs/.env file found or error loading it")
	}

	dbHost := os.Getenv("DB_HOST")
	dbPort := os.Getenv("DB_PORT")
	dbUser := os.Getenv("DB_USER")
	dbPassword := os.Getenv("DB_PASSWORD")
	dbName := os.Getenv("DB_NAME")
	dbSslMode := os.Getenv("DB_SSLMODE")

	if dbHost == "" {
		dbHost = "localhost"
	}
	if dbPort == "" {
		dbPort = "5432"
	}
	if dbUser == "" {
		dbUser = "postgres"
	}
	if dbPassword == "" {
		dbPassword = "postgres"
	}
	if dbName == "" {
		dbName = "postgres"
	}
	if dbSslMode == "" {
		dbSslMode = "disable"
	}

	dsn := "postgres://" + dbUser + ":" + dbPassword + "@" + dbHost + ":" + dbPort + "/" + dbName + "?sslmode=" + dbSslMode

	db, err := database.NewConnection(dsn)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	log.Println("Connected to PostgreSQL successfully.")

	// Permission middleware needs DB access for role lookups
	middleware.InitPermissionMiddleware(db)

	// Set up WebSocket Hub
	wsHub := websocket.NewHub()
	go wsHub.Run()

	// Set up dependencies (Repository -> Service -> Handler)
	userRepo := repository.NewUserRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	clientRepo := repository.NewClientRepository(db)
	studyRepo := repository.NewStudyRepository(db)
	transactionRepo := repository.NewTransactionRepository(db)
	ruleRepo := repository.NewRuleRepository(db)
	resultRepo := repository.NewResultRepository(db)
	txManager := repository.NewTransactionManager(db)

	calcEngine := engine.New(ruleRepo)

	userService := service.NewUserService(userRepo)
	roleService := service.NewRoleService(db)
	auditService := service.NewAuditService(db)
	clientService := service.NewClientService(clientRepo, auditRepo)
	studyService := service.NewStudyService(studyRepo, clientRepo, transactionRepo, resultRepo, auditRepo, txManager)
	transactionService := service.NewTransactionService(studyRepo, transactionRepo, auditRepo)
	ruleService := service.NewRuleService(ruleRepo, auditRepo)
	calcService := service.NewCalculationService(calcEngine, studyRepo, transactionRepo, resultRepo, auditRepo, txManager, wsHub)
	vdaService := service.NewVDAService(ruleRepo, resultRepo)
	exposureService := service.NewExposureService(db)

	// Seed system roles and permissions
	if err := roleService.SeedDefaultRolesAndPermissions(context.Background()); err != nil {
		log.Println("WARNING: Failed to seed roles/permissions:", err)
	}

	// Initialize Handlers
	userHandler := handler.NewUserHandler(userService)
	roleHandler := handler.NewRoleHandler(roleService)
	auditHandler := handler.NewAuditHandler(auditService)
	clientHandler := handler.NewClientHandler(clientService)
	studyHandler := handler.NewStudyHandler(studyService, transactionService)
	ruleHandler := handler.NewRuleHandler(ruleService)
	calcHandler := handler.NewCalculationHandler(calcService, vdaService)
	exposureHandler := handler.NewExposureHandler(exposureService)

	// Set up Gin Router
	router := gin.Default()

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"http://localhost:5173", "http://127.0.0.1:5173", "http://localhost:5174"} // Frontend URL
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "OK"})
	})

	// WebSocket endpoint for calculation progress events
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, middleware.GetJWTSecret())
	})

	// Register API Routes
	userHandler.RegisterRoutes(router.Group(""))
	roleHandler.RegisterRoutes(router.Group(""))
	auditHandler.RegisterRoutes(router.Group(""))
	clientHandler.RegisterRoutes(router.Group(""))
	studyHandler.RegisterRoutes(router.Group(""))
	ruleHandler.RegisterRoutes(router.Group(""))
	calcHandler.RegisterRoutes(router.Group(""))
	exposureHandler.RegisterRoutes(router.Group(""))

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server listening on :%s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
