package rate

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// takeScript applies the whole window transition server-side so that
// concurrent attempts from the same client cannot undercount each other.
// Counter state is a hash of attempts / last_attempt / blocked_until in
// epoch milliseconds; the key expires once it can no longer influence a
// decision.
const takeScript = `
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local max = tonumber(ARGV[3])
local block = tonumber(ARGV[4])

local state = redis.call("HMGET", KEYS[1], "attempts", "last_attempt", "blocked_until")
local attempts = tonumber(state[1])
local last = tonumber(state[2])
local blocked = tonumber(state[3])

if blocked and blocked > now then
  return {0, blocked - now}
end

if not attempts or not last or (now - last) > window then
  redis.call("DEL", KEYS[1])
  redis.call("HSET", KEYS[1], "attempts", 1, "last_attempt", now)
  redis.call("PEXPIRE", KEYS[1], window + block)
  return {1, 0}
end

attempts = attempts + 1
if attempts >= max then
  redis.call("HSET", KEYS[1], "attempts", attempts, "last_attempt", now, "blocked_until", now + block)
  redis.call("PEXPIRE", KEYS[1], window + block)
  return {0, block}
end

redis.call("HSET", KEYS[1], "attempts", attempts, "last_attempt", now)
redis.call("PEXPIRE", KEYS[1], window + block)
return {1, 0}
`

var takeLua = redis.NewScript(takeScript)

// RedisStore keeps counters in Redis so the budget holds across
// replicas.
type RedisStore struct {
	client redis.UniversalClient
}

func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Take(ctx context.Context, key string, policy Policy, now time.Time) (Decision, error) {
	res, err := takeLua.Run(ctx, s.client, []string{key},
		now.UnixMilli(),
		policy.Window.Milliseconds(),
		policy.MaxAttempts,
		policy.BlockDuration.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("rate counter eval: %w", err)
	}
	if len(res) != 2 {
		return Decision{}, fmt.Errorf("rate counter eval: unexpected reply shape")
	}

	if res[0] == 1 {
		return Decision{Allowed: true}, nil
	}
	return deny(time.Duration(res[1]) * time.Millisecond), nil
}
