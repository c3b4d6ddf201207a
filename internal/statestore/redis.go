package statestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
	"github.com/specialistvlad/gridscript/internal/ctxlog"
	"github.com/specialistvlad/gridscript/internal/script"
	"github.com/zclconf/go-cty/cty"
)

const keyPrefix = "gridscript:state:"

// Redis stores snapshots as JSON strings under "gridscript:state:<name>".
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis connects to the server at url and pings it.
func NewRedis(ctx context.Context, url string) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &Redis{client: client}, nil
}

// WithTTL makes saved snapshots expire. Zero keeps them forever.
func (r *Redis) WithTTL(ttl time.Duration) *Redis {
	r.ttl = ttl
	return r
}

func (r *Redis) Save(ctx context.Context, name string, vars *script.Variables) error {
	data, err := Encode(Snapshot(vars))
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, keyPrefix+name, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save snapshot %s: %w", name, err)
	}
	ctxlog.FromContext(ctx).Debug("Snapshot saved to redis.", "script", name, "bytes", len(data))
	return nil
}

func (r *Redis) Restore(ctx context.Context, name string, vars *script.Variables) error {
	data, err := r.client.Get(ctx, keyPrefix+name).Bytes()
	if errors.Is(err, redis.Nil) {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return fmt.Errorf("failed to load snapshot %s: %w", name, err)
	}
	entries, err := Decode(data)
	if err != nil {
		return fmt.Errorf("snapshot %s: %w", name, err)
	}
	return Apply(ctx, vars, entries)
}

func (r *Redis) Close() error {
	return r.client.Close()
}

type jsonEntry struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Value any    `json:"value"`
}

// Encode renders entries as JSON.
func Encode(entries []Entry) ([]byte, error) {
	out := make([]jsonEntry, 0, len(entries))
	for _, e := range entries {
		je := jsonEntry{Name: e.Name, Type: e.Type}
		v := e.Value
		switch {
		case v.IsNull() || !v.IsKnown():
		case v.Type().Equals(cty.Bool):
			je.Value = v.True()
		case v.Type().Equals(cty.Number):
			je.Value, _ = v.AsBigFloat().Float64()
		case v.Type().Equals(cty.String):
			je.Value = v.AsString()
		default:
			return nil, fmt.Errorf("variable %q: cannot encode %s", e.Name, v.Type().FriendlyName())
		}
		out = append(out, je)
	}
	data, err := sonic.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return data, nil
}

// Decode parses the output of Encode.
func Decode(data []byte) ([]Entry, error) {
	var in []jsonEntry
	if err := sonic.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	entries := make([]Entry, 0, len(in))
	for _, je := range in {
		e := Entry{Name: je.Name, Type: je.Type, Value: cty.NilVal}
		switch v := je.Value.(type) {
		case nil:
		case bool:
			e.Value = cty.BoolVal(v)
		case float64:
			e.Value = cty.NumberFloatVal(v)
		case string:
			e.Value = cty.StringVal(v)
		default:
			return nil, fmt.Errorf("variable %q: unexpected value %v", je.Name, v)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
