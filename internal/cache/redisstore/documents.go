package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mohammed-shakir/airfoil-geometry/internal/cache/keys"
	"github.com/mohammed-shakir/airfoil-geometry/internal/core/model"
)

// DocumentStore persists raw coordinate documents grouped into the 27
// catalog buckets, plus resampled profiles indexed per code.
type DocumentStore struct {
	cli *Client
	ttl time.Duration
}

// NewDocumentStore stores documents with ttl; zero keeps them until deleted.
func NewDocumentStore(cli *Client, ttl time.Duration) *DocumentStore {
	return &DocumentStore{cli: cli, ttl: ttl}
}

// Fetch returns the stored document or model.ErrNotFound.
func (s *DocumentStore) Fetch(ctx context.Context, code string) (model.Document, error) {
	raw, ok, err := s.cli.Get(ctx, keys.Document(code))
	if err != nil {
		return model.Document{}, fmt.Errorf("%w: %w", model.ErrSourceUnavailable, err)
	}
	if !ok {
		return model.Document{}, fmt.Errorf("%w: %q not in store", model.ErrNotFound, code)
	}
	var doc model.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return model.Document{}, fmt.Errorf("%w: decode stored %q: %w", model.ErrSourceUnavailable, code, err)
	}
	return doc, nil
}

// Put writes doc and records its code in the bucket set.
func (s *DocumentStore) Put(ctx context.Context, doc model.Document) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %q: %w", doc.Code, err)
	}
	return s.cli.Pipelined(ctx, "put_document", func(p redis.Pipeliner) error {
		p.Set(ctx, keys.Document(doc.Code), body, s.ttl)
		p.SAdd(ctx, keys.BucketSet(keys.Bucket(doc.Code)), doc.Code)
		return nil
	})
}

// Delete removes the document, its bucket membership and every cached
// resampled profile of code.
func (s *DocumentStore) Delete(ctx context.Context, code string) error {
	if err := s.DropResampled(ctx, code); err != nil {
		return err
	}
	return s.cli.Pipelined(ctx, "delete_document", func(p redis.Pipeliner) error {
		p.Del(ctx, keys.Document(code))
		p.SRem(ctx, keys.BucketSet(keys.Bucket(code)), code)
		return nil
	})
}

// Codes lists the stored codes of one bucket, sorted.
func (s *DocumentStore) Codes(ctx context.Context, bucket string) ([]string, error) {
	out, err := s.cli.Members(ctx, keys.BucketSet(bucket))
	if err != nil {
		return nil, err
	}
	slices.Sort(out)
	return out, nil
}

// Index returns every non-empty bucket with its sorted codes.
func (s *DocumentStore) Index(ctx context.Context) (map[string][]string, error) {
	out := map[string][]string{}
	for _, b := range keys.Buckets() {
		codes, err := s.Codes(ctx, b)
		if err != nil {
			return nil, err
		}
		if len(codes) > 0 {
			out[b] = codes
		}
	}
	return out, nil
}

func (s *DocumentStore) GetResampled(ctx context.Context, key string) ([]byte, bool, error) {
	return s.cli.Get(ctx, key)
}

// PutResampled caches body under key and remembers key in the code's index.
// The index outlives every entry it lists.
func (s *DocumentStore) PutResampled(ctx context.Context, code, key string, body []byte, ttl time.Duration) error {
	idx := keys.ResampleIndex(code)
	return s.cli.Pipelined(ctx, "put_resampled", func(p redis.Pipeliner) error {
		p.Set(ctx, key, body, ttl)
		p.SAdd(ctx, idx, key)
		if ttl > 0 {
			p.Expire(ctx, idx, ttl)
		}
		return nil
	})
}

// DropResampled deletes every cached resampled profile of code.
func (s *DocumentStore) DropResampled(ctx context.Context, code string) error {
	idx := keys.ResampleIndex(code)
	members, err := s.cli.Members(ctx, idx)
	if err != nil {
		return err
	}
	return s.cli.Del(ctx, append(members, idx)...)
}
