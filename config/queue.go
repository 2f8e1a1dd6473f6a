package config

import (
	"fmt"
	"time"
)

const (
	QueueBackendLocal = "local"
	QueueBackendAsynq = "asynq"

	LockNone   = "none"
	LockMemory = "memory"
	LockRedis  = "redis"
)

type QueueConfig struct {
	Backend     string
	RedisAddr   string
	RedisDB     int
	Concurrency int
	// Lock guards each background run with a lock keyed by assistant
	// name. LockNone keeps runs unsynchronized.
	Lock    string
	LockTTL time.Duration
}

func loadQueueConfig() (QueueConfig, error) {
	backend := getEnv("QUEUE_BACKEND", QueueBackendLocal)
	if backend != QueueBackendLocal && backend != QueueBackendAsynq {
		return QueueConfig{}, fmt.Errorf("unsupported QUEUE_BACKEND: %s", backend)
	}
	db, err := getInt("REDIS_DB", 0)
	if err != nil {
		return QueueConfig{}, err
	}
	concurrency, err := getInt("WORKER_CONCURRENCY", 2)
	if err != nil {
		return QueueConfig{}, err
	}
	lock := getEnv("PROVISION_LOCK", LockNone)
	if lock != LockNone && lock != LockMemory && lock != LockRedis {
		return QueueConfig{}, fmt.Errorf("unsupported PROVISION_LOCK: %s", lock)
	}
	if lock == LockMemory && backend == QueueBackendAsynq {
		return QueueConfig{}, fmt.Errorf("PROVISION_LOCK=memory cannot be used with QUEUE_BACKEND=asynq; the worker releases locks in its own process, use redis")
	}
	lockTTL, err := getDuration("PROVISION_LOCK_TTL", 10*time.Minute)
	if err != nil {
		return QueueConfig{}, err
	}

	return QueueConfig{
		Backend:     backend,
		RedisAddr:   getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:     db,
		Concurrency: concurrency,
		Lock:        lock,
		LockTTL:     lockTTL,
	}, nil
}
