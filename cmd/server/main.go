package main // Entry point package

import (
	"log"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/store-locator/internal/cache"
	"github.com/iliyamo/store-locator/internal/config"
	"github.com/iliyamo/store-locator/internal/database"
	"github.com/iliyamo/store-locator/internal/geocode"
	"github.com/iliyamo/store-locator/internal/handler"
	"github.com/iliyamo/store-locator/internal/middleware"
	"github.com/iliyamo/store-locator/internal/queue"
	"github.com/iliyamo/store-locator/internal/repository"
	"github.com/iliyamo/store-locator/internal/router"
	"github.com/iliyamo/store-locator/internal/service"
)

func main() {
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Redis backs rate limiting only; a missing Redis disables throttling
	// but never blocks startup.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable; rate limiting disabled")
	}

	stores := repository.NewStoreRepo(db)
	users := repository.NewUserRepo(db)
	roles := repository.NewRoleRepo(db)
	tokens := repository.NewTokenRepo(db)

	// One cache instance serves both search results and geocoding lookups;
	// entries carry their own TTLs.
	appCache := cache.New()
	nominatim := geocode.NewNominatim(cfg.GeocoderBase, cfg.GeocoderAgent, cfg.GeocoderTO)
	geocoder := geocode.NewCached(nominatim, appCache, cfg.GeoCacheTTL)

	searchSvc := service.NewSearchService(stores, geocoder, appCache, cfg.SearchCacheTTL)
	importer := service.NewImporter(service.RepoImportSource{Stores: stores}, geocoder)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.Logger())

	router.Register(e, router.Handlers{
		Health: handler.NewHealthHandler(appCache),
		Auth:   handler.NewAuthHandler(cfg, users, tokens),
		Stores: handler.NewStoreHandler(cfg, stores, appCache, geocoder),
		Search: handler.NewSearchHandler(searchSvc),
		Users:  handler.NewAdminUserHandler(cfg, users, roles, tokens),
		Import: handler.NewImportHandler(importer, appCache),
	}, router.Middlewares{
		Authenticate: middleware.Authenticate(cfg.JWTSecret, users, roles),
		RateLimit:    middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb),
	})

	// Audit consumer runs for the life of the process and reconnects on
	// broker failures.
	go func() {
		if err := queue.StartAuditConsumer(); err != nil {
			log.Printf("audit consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
