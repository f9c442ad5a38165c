package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/campverse/api/internal/payments"
	"github.com/campverse/api/internal/platform/config"
	"github.com/campverse/api/internal/platform/events"
	"github.com/campverse/api/internal/platform/observability"
	"github.com/campverse/api/internal/repositories"
	"github.com/campverse/api/internal/services"
)

const defaultCurrency = "VND"

// Services bundles the service-layer contracts that handlers rely upon. Concrete implementations
// are assembled via dependency injection in NewContainer.
type Services struct {
	Catalog       services.CatalogService
	Cart          services.CartService
	Orders        services.OrderService
	Bookings      services.BookingService
	Notifications services.NotificationService
	Messages      services.MessageService
	System        services.SystemService
	Sweeper       *services.OrderSweeper
}

// Infrastructure carries the process-level collaborators built in main.
type Infrastructure struct {
	Publisher events.Publisher
	Pusher    services.Pusher
	// Payments is optional; without it card refunds are rejected.
	Payments payments.Gateway
	Logger   *zap.Logger
	Build    services.BuildInfo
	Clock    func() time.Time
}

// Container wires repositories, services, and background infrastructure for runtime use.
type Container struct {
	Config       config.Config
	Repositories repositories.Registry
	Publisher    events.Publisher
	Services     Services
}

// NewContainer constructs the runtime dependencies. Tests supply the in-memory registry.
func NewContainer(ctx context.Context, cfg config.Config, reg repositories.Registry, infra Infrastructure) (*Container, error) {
	if reg == nil {
		return nil, errors.New("repositories registry is required")
	}
	if infra.Publisher == nil {
		infra.Publisher = events.NopPublisher{}
	}
	if infra.Logger == nil {
		infra.Logger = zap.NewNop()
	}
	if infra.Clock == nil {
		infra.Clock = time.Now
	}

	svc, err := buildServices(ctx, cfg, reg, infra)
	if err != nil {
		return nil, err
	}

	return &Container{
		Config:       cfg,
		Repositories: reg,
		Publisher:    infra.Publisher,
		Services:     svc,
	}, nil
}

// Close stops the sweeper, flushes the event publisher and releases repository clients.
func (c *Container) Close(ctx context.Context) error {
	if c == nil {
		return nil
	}
	if c.Services.Sweeper != nil {
		c.Services.Sweeper.Stop()
	}
	var errs []error
	if c.Publisher != nil {
		if err := c.Publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close publisher: %w", err))
		}
	}
	if c.Repositories != nil {
		if err := c.Repositories.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close repositories: %w", err))
		}
	}
	return errors.Join(errs...)
}

func buildServices(_ context.Context, cfg config.Config, reg repositories.Registry, infra Infrastructure) (Services, error) {
	var svc Services
	named := func(name string) services.Logger {
		return observability.EventLogger(infra.Logger.Named(name))
	}

	notifications, err := services.NewNotificationService(services.NotificationServiceDeps{
		Notifications: reg.Notifications(),
		Pusher:        infra.Pusher,
		Clock:         infra.Clock,
		Logger:        named("notifications"),
	})
	if err != nil {
		return svc, fmt.Errorf("notification service: %w", err)
	}
	svc.Notifications = notifications

	if svc.Catalog, err = services.NewCatalogService(services.CatalogServiceDeps{
		Products: reg.Products(),
	}); err != nil {
		return svc, fmt.Errorf("catalog service: %w", err)
	}

	if svc.Cart, err = services.NewCartService(services.CartServiceDeps{
		Repository: reg.Carts(),
		Products:   reg.Products(),
		Clock:      infra.Clock,
		Logger:     named("cart"),
	}); err != nil {
		return svc, fmt.Errorf("cart service: %w", err)
	}

	if svc.Orders, err = services.NewOrderService(services.OrderServiceDeps{
		Orders:             reg.Orders(),
		Carts:              reg.Carts(),
		Payments:           infra.Payments,
		Notifier:           notifications,
		Events:             infra.Publisher,
		TaxRate:            cfg.Orders.TaxRate,
		DefaultShippingFee: cfg.Orders.DefaultShippingFee,
		Currency:           defaultCurrency,
		Clock:              infra.Clock,
		Logger:             named("orders"),
	}); err != nil {
		return svc, fmt.Errorf("order service: %w", err)
	}

	if svc.Bookings, err = services.NewBookingService(services.BookingServiceDeps{
		Bookings:     reg.Bookings(),
		Notifier:     notifications,
		Events:       infra.Publisher,
		CodeAttempts: cfg.Bookings.CodeAttempts,
		Clock:        infra.Clock,
		Logger:       named("bookings"),
	}); err != nil {
		return svc, fmt.Errorf("booking service: %w", err)
	}

	if svc.Messages, err = services.NewMessageService(services.MessageServiceDeps{
		Messages: reg.Messages(),
		Pusher:   infra.Pusher,
		Notifier: notifications,
		Clock:    infra.Clock,
		Logger:   named("messages"),
	}); err != nil {
		return svc, fmt.Errorf("message service: %w", err)
	}

	if svc.Sweeper, err = services.NewOrderSweeper(services.OrderSweeperDeps{
		Orders:    reg.Orders(),
		Notifier:  notifications,
		Events:    infra.Publisher,
		Interval:  cfg.Orders.SweepInterval,
		Timeout:   cfg.Orders.UnpaidTimeout,
		BatchSize: cfg.Orders.SweepBatchSize,
		Clock:     infra.Clock,
		Logger:    named("sweeper"),
	}); err != nil {
		return svc, fmt.Errorf("order sweeper: %w", err)
	}

	if health := reg.Health(); health != nil {
		if svc.System, err = services.NewSystemService(services.SystemServiceDeps{
			HealthRepository: health,
			Components:       map[string]services.HealthChecker{"order_sweeper": svc.Sweeper},
			Clock:            infra.Clock,
			Build:            infra.Build,
		}); err != nil {
			return svc, fmt.Errorf("system service: %w", err)
		}
	}

	return svc, nil
}
