package kidtube

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"kidtube/cache"
	"kidtube/config"
	"kidtube/health"
	kthttp "kidtube/http"
	"kidtube/internal/retry"
	"kidtube/screentime"
	"kidtube/storage"
	"kidtube/whitelist"
	"kidtube/youtube"
	"kidtube/youtube/dataapi"
	"kidtube/youtube/feed"
	"kidtube/youtube/invidious"
	"kidtube/youtube/oembed"
)

// App is the fully wired set of components built from a Config.
type App struct {
	Config     *config.Config
	Store      *storage.SQLiteStore
	Tracker    *health.Tracker
	Resolver   *youtube.Resolver
	Whitelist  *whitelist.Service
	Evaluator  *screentime.Evaluator
	SleepTimer *screentime.SleepTimer
	// API is nil when no API key is configured.
	API *dataapi.Provider

	client *kthttp.Client
	mirror *kthttp.Client
	redis  *cache.RedisCache
	log    zerolog.Logger
}

// NewApp opens the store and builds the provider chain in priority order:
// Data API (when a key is set), oEmbed, then the mirror pool.
func NewApp(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("kidtube: %w", err)
	}

	store, err := storage.NewSQLiteStore(cfg.DatabasePath, storage.WithLogger(log))
	if err != nil {
		return nil, err
	}

	a := &App{
		Config: cfg,
		Store:  store,
		log:    log.With().Str("component", "app").Logger(),
	}

	httpCfg := kthttp.DefaultConfig()
	httpCfg.Timeout = cfg.HTTPTimeout
	httpCfg.Retry = cfg.Retry()
	a.client = kthttp.New(httpCfg, kthttp.WithLogger(log))

	mirrorCfg := *httpCfg
	mirrorCfg.Retry = retry.None()
	a.mirror = kthttp.New(&mirrorCfg, kthttp.WithLogger(log))

	a.Tracker = health.NewTracker(cfg.MirrorInstances,
		health.WithMaxFailures(cfg.MirrorMaxFailures),
		health.WithResetWindow(cfg.MirrorResetWindow),
		health.WithLogger(log))

	var (
		providers []youtube.Provider
		listers   []youtube.VideoLister
	)
	if cfg.APIKey != "" {
		api, err := dataapi.New(ctx, cfg.APIKey,
			dataapi.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}),
			dataapi.WithRPS(cfg.APIRPS),
			dataapi.WithRetry(cfg.Retry()),
			dataapi.WithLogger(log))
		if err != nil {
			store.Close()
			return nil, err
		}
		a.API = api
		providers = append(providers, api)
		listers = append(listers, api)
	}
	providers = append(providers,
		oembed.New(a.client,
			oembed.WithBaseURL(cfg.OEmbedBaseURL),
			oembed.WithPageBaseURL(cfg.ChannelPageBaseURL),
			oembed.WithLogger(log)),
		invidious.New(a.mirror, a.Tracker,
			invidious.WithMaxAttempts(cfg.MirrorMaxAttempts),
			invidious.WithLogger(log)),
	)
	listers = append(listers, feed.New(a.client, cfg.FeedBaseURL))

	a.Resolver = youtube.NewResolver(providers, youtube.WithResolverLogger(log))

	var listingCache cache.Cache = cache.NewMemoryCache(cfg.CacheSize, cfg.CacheTTL)
	if cfg.RedisURL != "" {
		rc, err := cache.NewRedisCache(ctx, cfg.RedisURL)
		if err != nil {
			a.log.Warn().Err(err).Msg("redis unavailable, using in-memory cache")
		} else {
			a.redis = rc
			listingCache = rc
		}
	}

	a.Whitelist = whitelist.NewService(a.Resolver, store,
		whitelist.WithListers(listers...),
		whitelist.WithCache(listingCache, cfg.CacheTTL),
		whitelist.WithLogger(log))
	a.Evaluator = screentime.NewEvaluator(store, store)
	a.SleepTimer = screentime.NewSleepTimer(screentime.WithLogger(log))

	a.log.Debug().Strs("providers", a.Resolver.Providers()).Int("mirrors", a.Tracker.Len()).Msg("app ready")
	return a, nil
}

// Close stops the sleep timer and releases every connection.
func (a *App) Close() error {
	a.SleepTimer.Stop()

	var errs []error
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	a.client.Close()
	a.mirror.Close()
	errs = append(errs, a.Store.Close())
	return errors.Join(errs...)
}
