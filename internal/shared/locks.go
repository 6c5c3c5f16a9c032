package shared

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// TellerLockKey builds redis keys for teller critical sections.
func TellerLockKey(tellerCode string) string {
	return fmt.Sprintf("teller:%s:lock", tellerCode)
}

// ErrTellerBusy indicates another command holds the teller lock.
var ErrTellerBusy = Conflictf("teller command already in progress")

// TellerLocker serializes commands against a single teller. Every state
// mutating command runs under this lock so two concurrent commands cannot
// race on the teller state row.
type TellerLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewTellerLocker returns a locker whose leases expire after ttl.
func NewTellerLocker(client *redis.Client, ttl time.Duration) *TellerLocker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &TellerLocker{client: client, ttl: ttl}
}

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// Acquire takes the lock for tellerCode, returning a release function.
// A held lock surfaces ErrTellerBusy rather than blocking.
func (l *TellerLocker) Acquire(ctx context.Context, tellerCode string) (func(context.Context) error, error) {
	if l == nil || l.client == nil {
		return func(context.Context) error { return nil }, nil
	}
	key := TellerLockKey(tellerCode)
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("shared: acquire teller lock: %w", err)
	}
	if !ok {
		return nil, ErrTellerBusy
	}
	release := func(ctx context.Context) error {
		return releaseScript.Run(ctx, l.client, []string{key}, token).Err()
	}
	return release, nil
}
