package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

type Queue interface {
	Enqueue(ctx context.Context, jobID string) error
	ClaimBlocking(ctx context.Context, timeout time.Duration) (string, error)
	Ack(ctx context.Context, jobID string) error
	RequeueStale(ctx context.Context, olderThan time.Duration, max int64) (int64, error)
}

// redisQueue implements a reliable queue using Redis lists.
// Claim: BRPOPLPUSH queue -> processing, claim time recorded in a hash
// Ack:   LREM from processing, claim record dropped
// A reaper moves processing entries whose claim outlived the lease back to
// the queue (at-least-once delivery); the repository's status guard keeps
// actual execution exactly-once.
type redisQueue struct {
	rdb           *redis.Client
	queueKey      string
	processingKey string
	claimsKey     string
}

func NewRedisQueue(rdb *redis.Client, queueKey, processingKey string) Queue {
	return &redisQueue{
		rdb:           rdb,
		queueKey:      queueKey,
		processingKey: processingKey,
		claimsKey:     processingKey + ":claims",
	}
}

func (q *redisQueue) Enqueue(ctx context.Context, jobID string) error {
	return q.rdb.LPush(ctx, q.queueKey, jobID).Err()
}

// ClaimBlocking waits up to timeout for a job id and atomically moves it to
// the processing list. Returns redis.Nil when nothing arrived in time.
func (q *redisQueue) ClaimBlocking(ctx context.Context, timeout time.Duration) (string, error) {
	jobID, err := q.rdb.BRPopLPush(ctx, q.queueKey, q.processingKey, timeout).Result()
	if err != nil {
		return "", err
	}
	// Remember when the id was claimed so the reaper can tell a stranded
	// entry from one still inside its run. If the record fails to write the
	// entry just looks stale and gets requeued early, which is harmless.
	claimed := strconv.FormatInt(time.Now().Unix(), 10)
	if err := q.rdb.HSet(ctx, q.claimsKey, jobID, claimed).Err(); err != nil {
		return "", err
	}
	return jobID, nil
}

func (q *redisQueue) Ack(ctx context.Context, jobID string) error {
	if err := q.rdb.LRem(ctx, q.processingKey, 1, jobID).Err(); err != nil {
		return err
	}
	_ = q.rdb.HDel(ctx, q.claimsKey, jobID).Err()
	return nil
}

// RequeueStale moves up to max processing entries claimed more than olderThan
// ago back to the queue. Entries still inside their lease are left alone, so
// a job mid-run is not re-delivered under a live worker.
func (q *redisQueue) RequeueStale(ctx context.Context, olderThan time.Duration, max int64) (int64, error) {
	ids, err := q.rdb.LRange(ctx, q.processingKey, 0, -1).Result()
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().Add(-olderThan)
	var moved int64
	for _, jobID := range ids {
		if moved >= max {
			break
		}
		raw, err := q.rdb.HGet(ctx, q.claimsKey, jobID).Result()
		missing := errors.Is(err, redis.Nil)
		if err != nil && !missing {
			return moved, err
		}
		if !claimStale(raw, missing, cutoff) {
			continue
		}
		removed, err := q.rdb.LRem(ctx, q.processingKey, 1, jobID).Result()
		if err != nil {
			return moved, err
		}
		if removed == 0 {
			// acked between LRange and here
			continue
		}
		if err := q.rdb.LPush(ctx, q.queueKey, jobID).Err(); err != nil {
			return moved, err
		}
		_ = q.rdb.HDel(ctx, q.claimsKey, jobID).Err()
		moved++
	}
	return moved, nil
}

// claimStale reports whether a processing entry is overdue for requeueing.
// A missing or unreadable claim record counts as stale: the entry has no
// live owner we can vouch for.
func claimStale(raw string, missing bool, cutoff time.Time) bool {
	if missing {
		return true
	}
	sec, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return true
	}
	return time.Unix(sec, 0).Before(cutoff)
}
