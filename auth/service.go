// Package auth assembles a JWT component, a bearer filter, the revocation
// list and telemetry from a single Config.
//
//	cfg, err := auth.Load("orders-api")
//	svc, err := auth.New(ctx, cfg, auth.WithIdentityFunc(lookupUser))
//	defer svc.Close(ctx)
//	router.Use(svc.Filter().Gin())
package auth

import (
	"context"
	stderrors "errors"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/kbukum/jwtauth/bearer"
	"github.com/kbukum/jwtauth/jwt"
	"github.com/kbukum/jwtauth/logger"
	"github.com/kbukum/jwtauth/observability"
	"github.com/kbukum/jwtauth/redis"
	"github.com/kbukum/jwtauth/revocation"
)

const (
	meterName     = "github.com/kbukum/jwtauth/auth"
	purgeInterval = time.Minute
)

// Service owns the components built from Config.
type Service struct {
	cfg         *Config
	log         *logger.Logger
	jwt         *jwt.JWT
	registry    *Registry
	filter      *bearer.Filter
	revocations *revocation.List
	redis       *redis.Client
	providers   *observability.Providers
	metrics     *observability.TokenMetrics
	stopPurge   context.CancelFunc
}

type options struct {
	log      *logger.Logger
	identify bearer.IdentityFunc
	login    bearer.AccessTokenLogin
	clock    jwt.Clock
	meter    metric.Meter
	store    revocation.Store
	jwtOpts  []jwt.Option
}

// Option configures New.
type Option func(*options)

// WithLogger sets the root logger. By default one is built from the logging
// section of Config and installed as the global logger.
func WithLogger(l *logger.Logger) Option { return func(o *options) { o.log = l } }

// WithIdentityFunc enables the bearer filter with identities resolved from tokens.
func WithIdentityFunc(fn bearer.IdentityFunc) Option { return func(o *options) { o.identify = fn } }

// WithAccessTokenLogin enables the bearer filter with host login.
func WithAccessTokenLogin(l bearer.AccessTokenLogin) Option { return func(o *options) { o.login = l } }

// WithClock sets the clock used by time constraints, token issuing and revocation.
func WithClock(c jwt.Clock) Option { return func(o *options) { o.clock = c } }

// WithMeter records token metrics on meter instead of the global provider.
func WithMeter(m metric.Meter) Option { return func(o *options) { o.meter = m } }

// WithRevocationStore replaces the store selected by the revocation section.
func WithRevocationStore(s revocation.Store) Option { return func(o *options) { o.store = s } }

// WithJWTOptions passes extra options to jwt.New, after the ones New derives
// from Config.
func WithJWTOptions(opts ...jwt.Option) Option {
	return func(o *options) { o.jwtOpts = append(o.jwtOpts, opts...) }
}

// New builds the service. cfg is defaulted and validated first. Resources
// acquired before a failure are released.
func New(ctx context.Context, cfg *Config, opts ...Option) (svc *Service, err error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.log == nil {
		o.log = logger.New(&cfg.Logging, cfg.Name)
		logger.SetGlobalLogger(o.log)
	}

	s := &Service{cfg: cfg, log: o.log, registry: NewRegistry()}
	defer func() {
		if err != nil {
			_ = s.Close(ctx)
		}
	}()

	s.providers, err = observability.Setup(ctx, cfg.Observability, observability.ServiceInfo{
		Name:        cfg.Name,
		Version:     cfg.Version,
		Environment: cfg.Environment,
	})
	if err != nil {
		return nil, err
	}

	meter := o.meter
	if meter == nil {
		meter = observability.Meter(meterName)
	}
	if s.metrics, err = observability.NewTokenMetrics(meter); err != nil {
		return nil, err
	}

	jwtOpts := []jwt.Option{
		jwt.WithLogger(o.log.WithComponent("jwt")),
		jwt.WithRecorder(s.metrics),
	}
	if o.clock != nil {
		jwtOpts = append(jwtOpts, jwt.WithClock(o.clock))
	}

	if cfg.Revocation.Enabled {
		store, err := s.revocationStore(o)
		if err != nil {
			return nil, err
		}
		s.revocations = revocation.NewList(store, cfg.Revocation, o.clock, o.log.WithComponent("revocation"))
		jwtOpts = append(jwtOpts, jwt.WithConstraints(s.revocations.Constraint()))
	}

	s.jwt, err = jwt.New(cfg.JWT, append(jwtOpts, o.jwtOpts...)...)
	if err != nil {
		return nil, err
	}
	s.registry.Register(DefaultComponent, s.jwt)

	if o.identify != nil || o.login != nil {
		filterOpts := []bearer.Option{
			bearer.WithLogger(o.log.WithComponent("bearer")),
			bearer.WithRecorder(s.metrics),
		}
		if o.identify != nil {
			filterOpts = append(filterOpts, bearer.WithIdentityFunc(o.identify))
		}
		if o.login != nil {
			filterOpts = append(filterOpts, bearer.WithAccessTokenLogin(o.login))
		}
		if s.filter, err = s.registry.Filter(DefaultComponent, cfg.Bearer, filterOpts...); err != nil {
			return nil, err
		}
	}

	o.log.Info("auth initialized", logger.Fields(
		"config", cfg.Describe(),
		"environment", cfg.Environment,
	))
	return s, nil
}

func (s *Service) revocationStore(o *options) (revocation.Store, error) {
	if o.store != nil {
		return o.store, nil
	}
	if s.cfg.Revocation.Store != revocation.StoreRedis {
		store := revocation.NewMemoryStore(o.clock)
		var purgeCtx context.Context
		purgeCtx, s.stopPurge = context.WithCancel(context.Background())
		go store.PurgeEvery(purgeCtx, purgeInterval)
		return store, nil
	}
	client, err := redis.New(*s.cfg.Redis, o.log.WithComponent("redis"))
	if err != nil {
		return nil, err
	}
	s.redis = client
	return revocation.NewRedisStore(client, o.clock), nil
}

// Config returns the effective configuration.
func (s *Service) Config() *Config { return s.cfg }

// JWT returns the JWT component.
func (s *Service) JWT() *jwt.JWT { return s.jwt }

// Registry returns the component registry. The service's own component is
// registered as DefaultComponent.
func (s *Service) Registry() *Registry { return s.registry }

// Filter returns the bearer filter, or nil when neither WithIdentityFunc nor
// WithAccessTokenLogin was given.
func (s *Service) Filter() *bearer.Filter { return s.filter }

// Revocations returns the revocation list, or nil when revocation is disabled.
func (s *Service) Revocations() *revocation.List { return s.revocations }

// Metrics returns the token metrics.
func (s *Service) Metrics() *observability.TokenMetrics { return s.metrics }

// Issue signs a token with the configured component. See jwt.JWT.Issue.
func (s *Service) Issue(customize func(b *jwt.Builder) *jwt.Builder) (*jwt.Token, error) {
	return s.jwt.Issue(customize)
}

// Close stops background purging, releases the Redis connection and flushes
// telemetry.
func (s *Service) Close(ctx context.Context) error {
	if s.stopPurge != nil {
		s.stopPurge()
	}
	var errs []error
	if s.redis != nil {
		errs = append(errs, s.redis.Close())
	}
	if s.providers != nil {
		errs = append(errs, s.providers.Shutdown(ctx))
	}
	return stderrors.Join(errs...)
}
