// Package config centraliza o carregamento de configurações da aplicação.
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/Nikhil9989/faculty-api/internal/core/domain"
)

type Config struct {
	Server      ServerConfig
	Storage     StorageConfig
	RateLimiter RateLimiterConfig
	LogLevel    string
}

type ServerConfig struct {
	Port string
}

type StorageConfig struct {
	Type  string
	Redis RedisConfig
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Addr devolve o endereço host:porta aceito pelo cliente Redis.
func (c RedisConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

type RateLimiterConfig struct {
	// FailOpen decide o que fazer quando o counter store está fora do ar
	// durante a requisição: permitir (true) ou negar (false).
	FailOpen     bool
	StoreTimeout time.Duration
	Public       domain.Policy
	User         domain.Policy
	Admin        domain.Policy
	// ExtraTiers carrega tiers adicionais declarados em RATE_LIMIT_TIERS.
	ExtraTiers []domain.Policy
}

func Load() (Config, error) {
	_ = godotenv.Load()

	server := ServerConfig{Port: getEnv("SERVER_PORT", "8080")}

	storageType := strings.ToLower(getEnv("STORAGE_TYPE", "redis"))

	redisConfig, err := buildRedisConfig()
	if err != nil {
		return Config{}, err
	}

	rateLimiterConfig, err := buildRateLimiterConfig()
	if err != nil {
		return Config{}, err
	}

	return Config{
		Server: server,
		Storage: StorageConfig{
			Type:  storageType,
			Redis: redisConfig,
		},
		RateLimiter: rateLimiterConfig,
		LogLevel:    getEnv("LOG_LEVEL", "info"),
	}, nil
}

func buildRedisConfig() (RedisConfig, error) {
	host := getEnv("REDIS_HOST", "localhost")
	port, err := getEnvInt("REDIS_PORT", 6379)
	if err != nil {
		return RedisConfig{}, err
	}
	db, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		return RedisConfig{}, err
	}

	return RedisConfig{
		Host:     host,
		Port:     port,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       db,
	}, nil
}

func buildRateLimiterConfig() (RateLimiterConfig, error) {
	failOpen, err := getEnvBool("RATE_LIMIT_FAIL_OPEN", true)
	if err != nil {
		return RateLimiterConfig{}, err
	}
	timeoutSeconds, err := getEnvInt("RATE_LIMIT_STORE_TIMEOUT_SECONDS", 2)
	if err != nil {
		return RateLimiterConfig{}, err
	}

	public, err := buildTierPolicy(domain.TierPublic, 30, 60)
	if err != nil {
		return RateLimiterConfig{}, err
	}
	user, err := buildTierPolicy(domain.TierUser, 100, 60)
	if err != nil {
		return RateLimiterConfig{}, err
	}
	admin, err := buildTierPolicy(domain.TierAdmin, 300, 60)
	if err != nil {
		return RateLimiterConfig{}, err
	}

	extraTiers, err := buildTierOverrides()
	if err != nil {
		return RateLimiterConfig{}, err
	}

	return RateLimiterConfig{
		FailOpen:     failOpen,
		StoreTimeout: time.Duration(timeoutSeconds) * time.Second,
		Public:       public,
		User:         user,
		Admin:        admin,
		ExtraTiers:   extraTiers,
	}, nil
}

// buildTierPolicy lê RATE_LIMIT_<TIER>_REQUESTS e RATE_LIMIT_<TIER>_WINDOW_SECONDS.
func buildTierPolicy(tier string, defaultRequests, defaultWindowSeconds int) (domain.Policy, error) {
	prefix := "RATE_LIMIT_" + strings.ToUpper(tier)

	requests, err := getEnvInt(prefix+"_REQUESTS", defaultRequests)
	if err != nil {
		return domain.Policy{}, err
	}
	windowSeconds, err := getEnvInt(prefix+"_WINDOW_SECONDS", defaultWindowSeconds)
	if err != nil {
		return domain.Policy{}, err
	}

	return domain.Policy{
		Tier:     tier,
		Requests: requests,
		Window:   time.Duration(windowSeconds) * time.Second,
	}, nil
}

func buildTierOverrides() ([]domain.Policy, error) {
	raw := strings.TrimSpace(os.Getenv("RATE_LIMIT_TIERS"))
	if raw == "" {
		return nil, nil
	}

	var tiers []domain.Policy
	items := strings.Split(raw, ",")

	for _, item := range items {
		parts := strings.Split(strings.TrimSpace(item), ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("tier override must follow NAME:REQUESTS:WINDOW_SECONDS: %s", item)
		}

		name := strings.TrimSpace(parts[0])
		requests, err := strconv.Atoi(parts[1])
		if err != nil {
			return nil, fmt.Errorf("invalid requests for tier %s: %w", name, err)
		}
		windowSeconds, err := strconv.Atoi(parts[2])
		if err != nil {
			return nil, fmt.Errorf("invalid window seconds for tier %s: %w", name, err)
		}

		tiers = append(tiers, domain.Policy{
			Tier:     name,
			Requests: requests,
			Window:   time.Duration(windowSeconds) * time.Second,
		})
	}

	return tiers, nil
}

func getEnv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func getEnvInt(key string, fallback int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}
