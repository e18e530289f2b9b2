package api

import (
	_ "embed"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	httpSwagger "github.com/swaggo/http-swagger"
)

//go:embed openapi.json
var openAPIDocument []byte

type Handlers struct {
	Auth    *AuthHandler
	Catalog *CatalogHandler
	Booking *BookingHandler
	Tokens  TokenParser
}

// NewRouter builds the JSON API. Catalog and auth routes are public; booking
// routes require a bearer token.
func NewRouter(logger *slog.Logger, h Handlers) *gin.Engine {
	router := gin.New()
	router.Use(RequestID(), RequestLogger(logger), Recovery(logger))

	router.GET("/openapi.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json", openAPIDocument)
	})
	router.GET("/docs/*any", gin.WrapH(httpSwagger.Handler(httpSwagger.URL("/openapi.json"))))

	h.Auth.Register(router.Group("/auth"))

	public := router.Group("/api")
	h.Catalog.Register(public)

	private := router.Group("/api", RequireAuth(h.Tokens))
	h.Booking.Register(private)

	router.NoRoute(func(c *gin.Context) {
		respondError(c, notFoundRoute())
	})
	return router
}
