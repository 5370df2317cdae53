package signals

import (
	"context"
	"strconv"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/pcdshub/rixcalc/pkg/pv"
)

// redisReader is the subset of redis.Cmdable used by Redis.
type redisReader interface {
	MGet(ctx context.Context, keys ...string) *redis.SliceCmd
}

var _ Source = &Redis{}

// Redis reads inputs cached in Redis by an upstream gateway. Each input is
// stored under keyPrefix+name as a decimal string; a missing key means the
// input has not been received.
type Redis struct {
	client    redisReader
	keyPrefix string
}

// NewRedis returns a Source reading from client. The caller keeps ownership
// of client.
func NewRedis(client *redis.Client, keyPrefix string) *Redis {
	return &Redis{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

func (r *Redis) Read(ctx context.Context, names []pv.Input) (Snapshot, error) {
	keys := make([]string, len(names))
	for i, n := range names {
		keys[i] = r.keyPrefix + string(n)
	}

	vals, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to read %d inputs from redis", len(keys))
	}

	now := time.Now()
	snap := make(Snapshot, len(names))
	for i, v := range vals {
		if i >= len(names) || v == nil {
			continue
		}
		s, ok := v.(string)
		if !ok {
			continue
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"key":   keys[i],
				"value": s,
			}).Warn("ignoring non-numeric input")
			continue
		}
		snap[names[i]] = Sample{Value: f, Present: true, Received: now}
	}

	return snap, nil
}

// Close is a no-op. The client is shared and closed by its owner.
func (r *Redis) Close() error {
	return nil
}
