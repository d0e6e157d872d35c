package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/RainAllDay-vn/QuizSpark-Website-sub001/internal/auth"
	"github.com/RainAllDay-vn/QuizSpark-Website-sub001/internal/config"
	"github.com/RainAllDay-vn/QuizSpark-Website-sub001/internal/flow"
	"github.com/RainAllDay-vn/QuizSpark-Website-sub001/internal/infra/memory"
	redisstore "github.com/RainAllDay-vn/QuizSpark-Website-sub001/internal/infra/redis"
	"github.com/RainAllDay-vn/QuizSpark-Website-sub001/internal/logging"
	"github.com/RainAllDay-vn/QuizSpark-Website-sub001/internal/sessionapi"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// clientEnv is what the join and host commands share.
type clientEnv struct {
	cfg     config.Config
	logger  *zap.Logger
	api     *sessionapi.Client
	timeout time.Duration
	redis   *redis.Client
}

func newClientEnv(configPath string) (*clientEnv, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return nil, err
	}
	env := &clientEnv{
		cfg:     cfg,
		logger:  logger,
		timeout: config.TTLDuration(cfg.API.Timeout, flow.DefaultTimeout),
		api: sessionapi.New(cfg.API.BaseURL,
			sessionapi.WithToken(cfg.API.Token),
			sessionapi.WithLogger(logger),
		),
	}
	if cfg.Redis.Addr != "" {
		env.redis = newRedisClient(cfg)
	}
	return env, nil
}

func (e *clientEnv) Close() {
	if e.redis != nil {
		_ = e.redis.Close()
	}
	_ = e.logger.Sync()
}

// gate runs the authentication gate and turns a redirect into an error naming the route.
func (e *clientEnv) gate(ctx context.Context, out io.Writer) error {
	var cache *auth.ProfileCache
	if e.cfg.API.Token != "" {
		subject, err := auth.SubjectOf(e.cfg.API.Token)
		if err != nil {
			fmt.Fprintf(out, "redirect: %s\n", flow.LandingRoute)
			return err
		}
		var store auth.ProfileStore = memory.NewProfileStore()
		if e.redis != nil {
			store = redisstore.NewProfileStore(e.redis)
		}
		cache = auth.NewProfileCache(subject, e.api, store, config.TTLDuration(e.cfg.Profile.TTL, 5*time.Minute))
	}

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	decision, err := auth.NewGate(e.cfg.API.Token, cache).Check(callCtx)
	if err != nil {
		return err
	}
	if !decision.Allowed() {
		fmt.Fprintf(out, "redirect: %s\n", decision.Route)
		return fmt.Errorf("not allowed to continue, redirected to %s", decision.Route)
	}
	e.logger.Debug("gate passed", zap.String("user_id", decision.Profile.ID))
	return nil
}

func (e *clientEnv) statusSource() flow.StatusSource {
	if e.cfg.Lobby.Transport == config.TransportStream {
		return flow.NewStream(e.api)
	}
	return flow.NewPoller(e.api, config.TTLDuration(e.cfg.Lobby.PollInterval, flow.DefaultPollInterval), e.timeout)
}

func newRedisClient(cfg config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}
