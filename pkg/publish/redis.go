package publish

import (
	"context"
	"strconv"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/pcdshub/rixcalc/pkg/beamline"
	"github.com/pcdshub/rixcalc/pkg/pv"
)

// redisWriter is the subset of redis.Cmdable used by Redis.
type redisWriter interface {
	TxPipelined(ctx context.Context, fn func(redis.Pipeliner) error) ([]redis.Cmder, error)
}

var _ Sink = &Redis{}

// Redis stores each output under keyPrefix+prefix+name, formatted to the
// slot's precision. Keys expire after ttl so consumers do not read values
// from a stopped daemon.
type Redis struct {
	client    redisWriter
	keyPrefix string
	prefix    string
	ttl       time.Duration
}

func NewRedis(client *redis.Client, keyPrefix, prefix string, ttl time.Duration) *Redis {
	return &Redis{
		client:    client,
		keyPrefix: keyPrefix,
		prefix:    prefix,
		ttl:       ttl,
	}
}

func (r *Redis) Name() string {
	return "redis"
}

func (r *Redis) Publish(ctx context.Context, res *beamline.Result) error {
	entries := r.entries(res)
	if len(entries) == 0 {
		return nil
	}

	_, err := r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		for _, e := range entries {
			p.Set(ctx, e.key, e.value, r.ttl)
		}
		return nil
	})
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to write %d outputs to redis", len(entries))
	}
	return nil
}

type redisEntry struct {
	key   string
	value string
}

func (r *Redis) entries(res *beamline.Result) []redisEntry {
	entries := make([]redisEntry, 0, len(res.Outputs))
	for _, o := range res.Outputs {
		prec := -1
		if slot, ok := pv.LookupSlot(o.Name); ok {
			prec = slot.Precision
		}
		entries = append(entries, redisEntry{
			key:   r.keyPrefix + pv.FullName(r.prefix, o.Name),
			value: strconv.FormatFloat(o.Value, 'f', prec, 64),
		})
	}
	return entries
}

// Close is a no-op. The client is shared and closed by its owner.
func (r *Redis) Close() error {
	return nil
}
