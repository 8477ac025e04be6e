package config

import "strconv"

const (
	storeBackendVar  = "STORE_BACKEND"
	redisAddrVar     = "REDIS_ADDR"
	redisPasswordVar = "REDIS_PASSWORD"
	redisDBVar       = "REDIS_DB"

	StoreBackendMemory = "memory"
	StoreBackendRedis  = "redis"
)

type StoreConfig interface {
	GetStoreBackend() string
	GetRedisAddr() string
	GetRedisPassword() string
	GetRedisDB() int
}

type Store struct{}

var _ StoreConfig = Store{}

func (Store) GetStoreBackend() string {
	return GetEnv(storeBackendVar, StoreBackendMemory)
}

func (Store) GetRedisAddr() string {
	return GetEnv(redisAddrVar, "")
}

func (Store) GetRedisPassword() string {
	return GetEnv(redisPasswordVar, "")
}

func (Store) GetRedisDB() int {
	db, err := strconv.Atoi(GetEnv(redisDBVar, "0"))
	if err != nil {
		return 0
	}
	return db
}
