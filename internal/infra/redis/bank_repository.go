package redis

import (
	"context"
	"strconv"
	"time"

	"github.com/RainAllDay-vn/QuizSpark-Website-sub001/internal/cache"
	"github.com/RainAllDay-vn/QuizSpark-Website-sub001/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// BankLoader fetches question banks from a backing store (e.g., Postgres).
type BankLoader interface {
	LoadBank(ctx context.Context, bankID string) (domain.Bank, error)
}

// BankRepository caches bank metadata in Redis (hash per bank) and falls back to a loader on cache miss.
// Banks are stored as: HSET quizspark:bank:{bankID} title {title} questions {count}
type BankRepository struct {
	client *redis.Client
	loader BankLoader
	ttl    time.Duration
	sf     singleflight.Group
	jitter *cache.Jitter
}

func NewBankRepository(client *redis.Client, loader BankLoader, ttl time.Duration) *BankRepository {
	return &BankRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		jitter: cache.NewJitter(),
	}
}

func (r *BankRepository) GetBank(ctx context.Context, bankID string) (domain.Bank, error) {
	key := r.key(bankID)

	fields, err := r.client.HGetAll(ctx, key).Result()
	if err == nil && len(fields) > 0 {
		return bankFromHash(bankID, fields), nil
	}

	result, err, _ := r.sf.Do(bankID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		fields, err := r.client.HGetAll(ctx, key).Result()
		if err == nil && len(fields) > 0 {
			return bankFromHash(bankID, fields), nil
		}

		bank, err := r.loader.LoadBank(ctx, bankID)
		if err != nil {
			return domain.Bank{}, err
		}

		pipe := r.client.Pipeline()
		pipe.HSet(ctx, key, "title", bank.Title, "questions", bank.QuestionCount)
		if ttl := r.jitter.TTL(r.ttl); ttl > 0 {
			pipe.Expire(ctx, key, ttl)
		}
		_, _ = pipe.Exec(ctx)

		return bank, nil
	})
	if err != nil {
		return domain.Bank{}, err
	}
	return result.(domain.Bank), nil
}

func (r *BankRepository) key(bankID string) string {
	return "quizspark:bank:" + bankID
}

func bankFromHash(bankID string, fields map[string]string) domain.Bank {
	bank := domain.Bank{ID: bankID, Title: fields["title"]}
	if n, err := strconv.Atoi(fields["questions"]); err == nil {
		bank.QuestionCount = n
	}
	return bank
}
