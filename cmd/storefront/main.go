package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	cloudstorage "cloud.google.com/go/storage"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/ludoteka/storefront/internal/admin"
	"github.com/ludoteka/storefront/internal/cart"
	"github.com/ludoteka/storefront/internal/catalog"
	"github.com/ludoteka/storefront/internal/checkout"
	"github.com/ludoteka/storefront/internal/handlers"
	"github.com/ludoteka/storefront/internal/identity"
	"github.com/ludoteka/storefront/internal/invoice"
	"github.com/ludoteka/storefront/internal/platform/config"
	pfirestore "github.com/ludoteka/storefront/internal/platform/firestore"
	"github.com/ludoteka/storefront/internal/platform/localstore"
	"github.com/ludoteka/storefront/internal/platform/observability"
	platformstorage "github.com/ludoteka/storefront/internal/platform/storage"
	"github.com/ludoteka/storefront/internal/wishlist"
)

func main() {
	ctx := context.Background()

	baseLogger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()

	logger := baseLogger.Named("storefront")
	ctx = observability.WithLogger(ctx, logger)

	cfg, err := config.Load(ctx)
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	firestoreProvider := pfirestore.NewProvider(cfg.Firestore)
	firestoreClient, err := firestoreProvider.Client(ctx)
	if err != nil {
		logger.Fatal("failed to initialise firestore client", zap.Error(err))
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := firestoreProvider.Close(closeCtx); err != nil {
			logger.Warn("firestore close error", zap.Error(err))
		}
	}()

	var uploader *platformstorage.Uploader
	if strings.TrimSpace(cfg.Storage.InvoicesBucket) != "" {
		var storageOpts []option.ClientOption
		if file := strings.TrimSpace(cfg.Identity.CredentialsFile); file != "" {
			storageOpts = append(storageOpts, option.WithCredentialsFile(file))
		}
		storageClient, err := cloudstorage.NewClient(ctx, storageOpts...)
		if err != nil {
			logger.Fatal("failed to initialise storage client", zap.Error(err))
		}
		defer func() {
			if err := storageClient.Close(); err != nil {
				logger.Warn("storage close error", zap.Error(err))
			}
		}()
		uploader, err = platformstorage.NewUploader(storageClient, cfg.Storage.InvoicesBucket)
		if err != nil {
			logger.Fatal("failed to initialise invoice uploader", zap.Error(err))
		}
	} else {
		logger.Warn("invoice bucket not configured; invoice files stay local to the response")
	}

	catalogClient, err := catalog.NewClient(cfg.Catalog.BaseURL, catalog.WithTimeout(cfg.Catalog.Timeout))
	if err != nil {
		logger.Fatal("failed to initialise catalog client", zap.Error(err))
	}

	identityProvider, err := identity.NewRESTProvider(cfg.Identity.Endpoint, cfg.Identity.WebAPIKey)
	if err != nil {
		logger.Fatal("failed to initialise identity provider", zap.Error(err))
	}
	roles, err := identity.NewFirestoreRoles(firestoreProvider)
	if err != nil {
		logger.Fatal("failed to initialise role store", zap.Error(err))
	}
	verifier, err := identity.NewFirebaseVerifier(ctx, cfg.Identity)
	if err != nil {
		logger.Warn("firebase verifier unavailable; skipping token verification", zap.Error(err))
		verifier = nil
	}

	sessionDeps := identity.SessionDeps{
		Provider: identityProvider,
		Roles:    roles,
		Logger:   eventLogger(logger.Named("identity")),
	}
	if verifier != nil {
		sessionDeps.Verifier = verifier
	}
	sessions, err := identity.NewSessionManager(sessionDeps)
	if err != nil {
		logger.Fatal("failed to initialise session manager", zap.Error(err))
	}

	stateStore, err := localstore.New(cfg.State.Dir)
	if err != nil {
		logger.Fatal("failed to initialise local state store", zap.Error(err))
	}

	cartStore, err := cart.NewStore(cart.Deps{
		Storage: stateStore,
		Logger:  eventLogger(logger.Named("cart")),
	})
	if err != nil {
		logger.Fatal("failed to initialise cart store", zap.Error(err))
	}
	wishlistStore, err := wishlist.NewStore(wishlist.Deps{
		Storage: stateStore,
		Logger:  eventLogger(logger.Named("wishlist")),
	})
	if err != nil {
		logger.Fatal("failed to initialise wishlist store", zap.Error(err))
	}

	invoiceRepo, err := invoice.NewFirestoreRepository(firestoreProvider)
	if err != nil {
		logger.Fatal("failed to initialise invoice repository", zap.Error(err))
	}
	invoiceDeps := invoice.Deps{
		Repository: invoiceRepo,
		Renderer:   invoice.NewTextRenderer(),
		Vendor: invoice.Vendor{
			Name:    cfg.Invoice.VendorName,
			Address: cfg.Invoice.VendorAddress,
		},
		Logger: eventLogger(logger.Named("invoice")),
	}
	if uploader != nil {
		invoiceDeps.Uploader = uploader
	}
	invoiceService, err := invoice.NewService(invoiceDeps)
	if err != nil {
		logger.Fatal("failed to initialise invoice service", zap.Error(err))
	}
	defer invoiceService.Close()

	checkoutWorkflow, err := checkout.NewWorkflow(checkout.Deps{
		Cart:         cartStore,
		Catalog:      catalogClient,
		Sessions:     sessions,
		Invoices:     invoiceService,
		Logger:       eventLogger(logger.Named("checkout")),
		PaymentDelay: cfg.Checkout.PaymentDelay,
	})
	if err != nil {
		logger.Fatal("failed to initialise checkout workflow", zap.Error(err))
	}

	adminProducts, err := admin.NewProducts(admin.Deps{
		Catalog: catalogClient,
		Logger:  eventLogger(logger.Named("admin")),
	})
	if err != nil {
		logger.Fatal("failed to initialise admin service", zap.Error(err))
	}

	healthHandlers := handlers.NewHealthHandlers(
		handlers.WithReadinessCheck("firestore", func(ctx context.Context) error {
			iter := firestoreClient.Collections(ctx)
			_, err := iter.Next()
			if errors.Is(err, iterator.Done) {
				return nil
			}
			return err
		}),
		handlers.WithReadinessCheck("catalog", func(ctx context.Context) error {
			_, err := catalogClient.ListCategories(ctx)
			return err
		}),
	)

	middlewares := []func(http.Handler) http.Handler{
		observability.InjectLoggerMiddleware(logger.Named("http")),
		observability.RecoveryMiddleware(logger.Named("http")),
		observability.RequestLoggerMiddleware(),
	}

	router := handlers.NewRouter(
		handlers.WithMiddlewares(middlewares...),
		handlers.WithHealthHandlers(healthHandlers),
		handlers.WithCatalogRoutes(handlers.NewCatalogHandlers(catalogClient).Routes),
		handlers.WithAuthRoutes(handlers.NewAuthHandlers(sessions).Routes),
		handlers.WithCartRoutes(handlers.NewCartHandlers(cartStore, catalogClient).Routes),
		handlers.WithWishlistRoutes(handlers.NewWishlistHandlers(wishlistStore, catalogClient).Routes),
		handlers.WithCheckoutRoutes(handlers.NewCheckoutHandlers(checkoutWorkflow).Routes),
		handlers.WithInvoiceRoutes(handlers.NewInvoiceHandlers(invoiceService, sessions).Routes),
		handlers.WithAdminRoutes(handlers.NewAdminHandlers(adminProducts, sessions).Routes),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	go func() {
		serverLogger.Info("ludoteka storefront listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received; draining requests")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

// eventLogger bridges the per-package structured event callbacks onto zap.
func eventLogger(logger *zap.Logger) func(ctx context.Context, event string, fields map[string]any) {
	return func(_ context.Context, event string, fields map[string]any) {
		zFields := make([]zap.Field, 0, len(fields)+1)
		zFields = append(zFields, zap.String("event", event))
		for k, v := range fields {
			zFields = append(zFields, zap.Any(k, v))
		}
		logger.Debug("event", zFields...)
	}
}
