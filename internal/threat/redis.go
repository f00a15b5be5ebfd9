package threat

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ledgerkit/gatekeeper/internal/log"
)

// updateScript applies one observation atomically on the Redis side. Doing
// the increment/decrement in a script keeps the floor-at-zero rule safe
// under concurrent updates from multiple gatekeeper replicas.
var updateScript = redis.NewScript(`
local count = tonumber(redis.call('HGET', KEYS[1], 'count') or '0')
if ARGV[1] == '1' then
  count = count + 1
elseif count > 0 then
  count = count - 1
end
redis.call('HSET', KEYS[1], 'count', count, 'last', ARGV[2])
redis.call('PEXPIRE', KEYS[1], ARGV[3])
return count
`)

// RedisStore shares threat profiles across gatekeeper replicas. Entries
// carry a TTL instead of relying on the background sweep, so Sweep is a
// no-op here. Redis failures are logged and treated as "no profile": the
// gatekeeper fails open rather than rejecting legitimate traffic when the
// shared store is down.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) (*RedisStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	return &RedisStore{
		client:    client,
		keyPrefix: "gatekeeper:threat:",
		ttl:       ttl,
	}, nil
}

func (s *RedisStore) key(clientID string) string {
	return s.keyPrefix + clientID
}

func (s *RedisStore) Update(ctx context.Context, clientID string, suspicious bool) Profile {
	now := time.Now()

	flag := "0"
	if suspicious {
		flag = "1"
	}

	result, err := updateScript.Run(ctx, s.client,
		[]string{s.key(clientID)},
		flag, now.UnixMilli(), s.ttl.Milliseconds(),
	).Int()
	if err != nil {
		log.Errorf("redis threat update failed for %s: %v", clientID, err)
		return Profile{LastActivity: now}
	}

	return Profile{
		Level:           LevelForCount(result),
		SuspiciousCount: result,
		LastActivity:    now,
	}
}

func (s *RedisStore) Get(ctx context.Context, clientID string) (Profile, bool) {
	fields, err := s.client.HGetAll(ctx, s.key(clientID)).Result()
	if err != nil {
		log.Errorf("redis threat lookup failed for %s: %v", clientID, err)
		return Profile{}, false
	}
	if len(fields) == 0 {
		return Profile{}, false
	}

	count, _ := strconv.Atoi(fields["count"])
	lastMilli, _ := strconv.ParseInt(fields["last"], 10, 64)

	return Profile{
		Level:           LevelForCount(count),
		SuspiciousCount: count,
		LastActivity:    time.UnixMilli(lastMilli),
	}, true
}

// Sweep is a no-op: Redis entries expire via their TTL.
func (s *RedisStore) Sweep(context.Context, time.Duration) int {
	return 0
}
