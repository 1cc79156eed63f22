package handler

import (
	"github.com/labstack/echo/v4"
	"github.com/suteetoe/erpsuite/gomicro/jwtutil"
	"github.com/suteetoe/erpsuite/gomicro/middleware"
)

// RegisterRoutes mounts the product API behind JWT auth
func RegisterRoutes(e *echo.Echo, jwt *jwtutil.JWTUtil) {
	auth := middleware.JWTAuthMiddleware(jwt)

	productAPI := e.Group("/api/products", auth, RequireTenant)
	productAPI.GET("", ListProducts)
	productAPI.GET("/:id", GetProduct)
	productAPI.POST("", CreateProduct)
	productAPI.PUT("/:id", UpdateProduct)
	productAPI.DELETE("/:id", DeleteProduct)

	productAPI.GET("/:id/price", ResolvePrice)
	productAPI.GET("/:id/prices", ListPrices)
	productAPI.POST("/:id/prices", CreatePrice)
	productAPI.PUT("/:id/prices/:priceId", UpdatePrice)
	productAPI.DELETE("/:id/prices/:priceId", DeactivatePrice)

	categoryAPI := e.Group("/api/categories", auth, RequireTenant)
	categoryAPI.GET("", ListCategories)
	categoryAPI.GET("/:id", GetCategory)
	categoryAPI.POST("", CreateCategory)
	categoryAPI.PUT("/:id", UpdateCategory)
	categoryAPI.DELETE("/:id", DeleteCategory)
}
