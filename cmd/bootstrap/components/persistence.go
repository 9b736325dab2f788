package components

import (
	"bookstore/internal/infra/cache"
	"bookstore/internal/infra/db"
	"bookstore/internal/infra/readstore"
	"bookstore/internal/infra/uow"
	"bookstore/internal/pkg/config"
	"bookstore/internal/usecase/commands"
	"bookstore/internal/usecase/queries"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

var PersistenceModule = fx.Module("persistence",
	fx.Provide(
		NewDBTX,
		// UnitOfWork
		uow.NewPostgresUoW,
		// Book (read-through cache in front of the raw read store)
		fx.Annotate(
			NewCachedBookReadStore,
			fx.As(new(queries.BookReadStore)),
			fx.As(new(commands.BookCacheInvalidator)),
		),
		// Order
		fx.Annotate(
			readstore.NewOrderReadStore,
			fx.As(new(queries.OrderReadStore)),
		),
		// Cart
		fx.Annotate(
			readstore.NewCartReadStore,
			fx.As(new(queries.CartReadStore)),
		),
		// Review
		fx.Annotate(
			readstore.NewReviewReadStore,
			fx.As(new(queries.ReviewReadStore)),
		),
		// Loyalty
		fx.Annotate(
			readstore.NewLoyaltyReadStore,
			fx.As(new(queries.LoyaltyReadStore)),
		),
		// User
		fx.Annotate(
			readstore.NewUserReadStore,
			fx.As(new(queries.UserReadStore)),
		),
	),
)

func NewDBTX(pool *pgxpool.Pool) db.DBTX {
	return pool
}

func NewCachedBookReadStore(dbtx db.DBTX, rdb *redis.Client, cfg config.Config) *cache.BookCache {
	return cache.NewBookCache(readstore.NewBookReadStore(dbtx), rdb, cfg.Redis.BookTTL)
}
