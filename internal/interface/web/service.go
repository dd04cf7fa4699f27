package web

import (
	"embed"
	"fmt"
	"html/template"

	"github.com/SatoshiDNC/nostrmarket/internal/core/application"
	"github.com/gin-gonic/gin"
)

//go:embed templates/*.html
var templatesFS embed.FS

func init() {
	gin.SetMode(gin.ReleaseMode)
}

type Config struct {
	Port     uint32
	AuthUser string
	AuthPass string
}

type service struct {
	*gin.Engine
	appSvc application.Service
	port   uint32
}

func NewService(appSvc application.Service, config Config) *service {
	router := gin.New()
	router.Use(gin.Recovery())
	router.SetHTMLTemplate(template.Must(
		template.ParseFS(templatesFS, "templates/*.html"),
	))

	svc := &service{router, appSvc, config.Port}

	// Payment-service callbacks and buyer order submission carry no
	// merchant credentials.
	svc.POST("/api/v1/orders", svc.createOrderHandler)
	svc.POST("/api/v1/payments/webhook", svc.paymentWebhookHandler)

	authorized := svc.Group("/", gin.BasicAuth(gin.Accounts{
		config.AuthUser: config.AuthPass,
	}))
	authorized.GET("/", svc.indexViewHandler)
	authorized.POST("/api/v1/merchants", svc.createMerchantHandler)
	authorized.PUT("/api/v1/stalls/:id", svc.upsertStallHandler)
	authorized.DELETE("/api/v1/stalls/:id", svc.deleteStallHandler)
	authorized.PUT("/api/v1/products/:id", svc.upsertProductHandler)
	authorized.DELETE("/api/v1/products/:id", svc.deleteProductHandler)

	return svc
}

func (s *service) Start() error {
	return s.Run(fmt.Sprintf(":%d", s.port))
}
