package main

import (
	"context"
	"database/sql"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"syscall"

	identity "github.com/artisania/go-identity"
	"github.com/artisania/go-identity/config"
	"github.com/artisania/go-identity/federated"
	"github.com/artisania/go-identity/federated/providers/google"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/goliatone/go-router"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// App wires persistence, auth, and the HTTP server together.
type App struct {
	config  *config.AppConfig
	bunDB   *bun.DB
	repo    identity.RepositoryManager
	session *identity.SessionContext
	auther  *identity.RouteAuthenticator
	tokens  identity.TokenService
	srv     router.Server[*fiber.App]
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	app := &App{config: cfg}

	ctx := context.Background()

	if err := WithPersistence(ctx, app); err != nil {
		log.Fatal(err)
	}

	if err := WithAuth(ctx, app); err != nil {
		log.Fatal(err)
	}

	if err := WithHTTPServer(ctx, app); err != nil {
		log.Fatal(err)
	}

	go func() {
		if err := app.srv.Serve(cfg.ServerAddress); err != nil {
			log.Printf("server error: %v", err)
		}
	}()

	WaitExitSignal()

	if err := app.srv.Shutdown(ctx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}

func WithPersistence(ctx context.Context, app *App) error {
	db, err := sql.Open(sqliteshim.ShimName, app.config.Database.GetDSN())
	if err != nil {
		return err
	}

	persistence.RegisterModel((*identity.Profile)(nil))
	persistence.RegisterModel((*identity.Notification)(nil))
	persistence.RegisterModel((*identity.FederatedAccount)(nil))
	persistence.RegisterModel((*identity.LocalCredential)(nil))

	client, err := persistence.New(app.config.GetPersistence(), db, sqlitedialect.New())
	if err != nil {
		return err
	}

	migrationsFS, err := fs.Sub(identity.GetMigrationsFS(), "data/sql/migrations")
	if err != nil {
		return err
	}
	client.RegisterDialectMigrations(
		migrationsFS,
		persistence.WithDialectSourceLabel("data/sql/migrations"),
		persistence.WithValidationTargets("postgres", "sqlite"),
	)

	if err := client.Migrate(ctx); err != nil {
		return err
	}

	client.RegisterFixtures(identity.GetFixturesFS())

	if err := client.Seed(ctx); err != nil {
		return err
	}

	app.bunDB = client.DB()
	app.repo = identity.NewRepositoryManager(client.DB())

	return app.repo.Validate()
}

func WithAuth(ctx context.Context, app *App) error {
	cfg := app.config

	app.tokens = identity.NewTokenService(
		[]byte(cfg.GetSigningKey()),
		cfg.GetTokenExpiration(),
		cfg.GetIssuer(),
		jwt.ClaimStrings(cfg.GetAudience()),
		identity.DefaultLogger(),
	)

	credentials := identity.NewCredentialsRepository(app.bunDB)

	provider := identity.NewLocalProvider(credentials).
		WithMailer(identity.NewRepositoryNotifier(app.repo.Notifications()))

	store := identity.NewStoreService(app.repo,
		identity.WithSubjectResolver(identity.SubjectFromIdentityProvider(provider)),
	)

	app.session = identity.NewSessionContext(provider, store)

	auther, err := identity.NewRouteAuthenticator(app.session, app.tokens, cfg)
	if err != nil {
		return err
	}
	app.auther = auther

	return nil
}

func WithHTTPServer(ctx context.Context, app *App) error {
	srv := router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		return router.DefaultFiberOptions(fiber.New(fiber.Config{
			UnescapePath:  true,
			StrictRouting: false,
		}))
	})

	identity.RegisterSessionRoutes(srv.Router(),
		identity.WithSessionControllerSession(app.session),
		identity.WithSessionControllerAuther(app.auther),
	)

	identity.RegisterIdentityRoutes(srv.Router(),
		identity.WithControllerRepo(app.repo),
		identity.WithControllerAuther(app.auther),
		identity.WithControllerConfig(app.config),
	)

	if app.config.Google.ClientID != "" {
		if err := mountFederated(app, srv); err != nil {
			return err
		}
	}

	app.srv = srv

	return nil
}

func mountFederated(app *App, srv router.Server[*fiber.App]) error {
	cfg := app.config

	authenticator := federated.NewAuthenticator(
		app.repo.FederatedAccounts(),
		app.repo.Profiles(),
		app.tokens,
		federated.AuthConfig{
			BaseURL:              cfg.Federated.BaseURL,
			CallbackPath:         cfg.Federated.CallbackPath,
			StateEncryptionKey:   []byte(cfg.Federated.StateEncryptionKey),
			StateHMACKey:         []byte(cfg.Federated.StateHMACKey),
			AllowSignup:          cfg.Federated.AllowSignup,
			RequireEmailVerified: cfg.Federated.RequireVerified,
		},
		federated.WithProvider(google.New(google.Config{
			ClientID:     cfg.Google.ClientID,
			ClientSecret: cfg.Google.ClientSecret,
			CallbackURL:  cfg.Google.CallbackURL,
		})),
	)

	controller := federated.NewHTTPController(authenticator, federated.HTTPConfig{
		SessionContextKey: cfg.GetContextKey(),
	})
	controller.RegisterRoutes(srv.Router().Group("/auth/federated"))

	return nil
}

func WaitExitSignal() os.Signal {
	ch := make(chan os.Signal, 3)
	signal.Notify(ch,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)
	return <-ch
}
