package components

import (
	"bookstore/internal/handler"
	"bookstore/internal/handler/api"
	"bookstore/internal/handler/middleware"

	"go.uber.org/fx"
)

var HandlerModule = fx.Module("handler",
	fx.Provide(
		api.NewAuthHandler,
		api.NewBookHandler,
		api.NewCartHandler,
		api.NewOrderHandler,
		api.NewReviewHandler,
		api.NewLoyaltyHandler,
		middleware.NewAuthMiddleware,
	),
	fx.Invoke(handler.NewRouter),
)
