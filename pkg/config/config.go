// Package config loads process configuration the way the rest of the stack
// expects it: environment variables (optionally from a .env file) resolved
// through viper, with hard-coded defaults so the service boots cleanly in
// development.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config aggregates every tunable of the demonstration server and the
// scheduler core it wraps.
type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Log        LogConfig
	CORS       CORSConfig
	Redis      RedisConfig
	Scheduler  SchedulerConfig
	Cache      ScheduleCacheConfig
	Dispatcher DispatcherConfig
	Optimizer  OptimizerDefaults
	Evaluator  EvaluatorDefaults
}

type LogConfig struct {
	Level  string
	Format string
}

type CORSConfig struct {
	AllowedOrigins []string
}

// RedisConfig is only consulted when Cache.RedisBacked is true.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// SchedulerConfig governs palette and hard-constraint defaults (§3, §6).
type SchedulerConfig struct {
	PMax                    int
	DefaultMaxPerDay        int
	DefaultMaxPerWeek       int
	DefaultMaxConsecutive   int
	DefaultAvoidConsecutive bool
	MaxBacktracks           int
	MaxWeeksLookahead       int
}

// ScheduleCacheConfig governs the §4.6 LRU cache and its optional Redis mirror.
type ScheduleCacheConfig struct {
	Capacity    int
	RedisBacked bool
	TTL         time.Duration
}

// DispatcherConfig governs the §4.8 worker pool.
type DispatcherConfig struct {
	Workers int
}

// OptimizerDefaults mirrors the OptimizerConfig fields of §6.
type OptimizerDefaults struct {
	PopulationSize               int
	GenerationLimit              int
	MutationRate                 float64
	CrossoverRate                float64
	ElitismCount                 int
	TournamentSize               int
	MaxSeconds                   int
	PlateauWindow                int
	PlateauPct                   float64
	WeightDayDistribution        float64
	WeightTimeGaps               float64
	WeightPeriodUtilization      float64
	WeightWeekDistribution       float64
	WeightConstraintSatisfaction float64
}

// EvaluatorDefaults mirrors the EvaluatorConfig fields of §6.
type EvaluatorDefaults struct {
	MaxGapSize          int
	MinDailyClasses     int
	MaxDailyClasses     int
	TargetClassesPerDay int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}
	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.Scheduler = SchedulerConfig{
		PMax:                    v.GetInt("SCHEDULER_PMAX"),
		DefaultMaxPerDay:        v.GetInt("SCHEDULER_DEFAULT_MAX_PER_DAY"),
		DefaultMaxPerWeek:       v.GetInt("SCHEDULER_DEFAULT_MAX_PER_WEEK"),
		DefaultMaxConsecutive:   v.GetInt("SCHEDULER_DEFAULT_MAX_CONSECUTIVE"),
		DefaultAvoidConsecutive: v.GetBool("SCHEDULER_DEFAULT_AVOID_CONSECUTIVE"),
		MaxBacktracks:           v.GetInt("SCHEDULER_MAX_BACKTRACKS"),
		MaxWeeksLookahead:       v.GetInt("SCHEDULER_MAX_WEEKS_LOOKAHEAD"),
	}

	cfg.Cache = ScheduleCacheConfig{
		Capacity:    v.GetInt("CACHE_CAPACITY"),
		RedisBacked: v.GetBool("CACHE_REDIS_BACKED"),
		TTL:         parseDuration(v.GetString("CACHE_TTL"), time.Hour),
	}

	cfg.Dispatcher = DispatcherConfig{
		Workers: v.GetInt("DISPATCHER_WORKERS"),
	}

	cfg.Optimizer = OptimizerDefaults{
		PopulationSize:               v.GetInt("OPTIMIZER_POPULATION_SIZE"),
		GenerationLimit:              v.GetInt("OPTIMIZER_GENERATION_LIMIT"),
		MutationRate:                 v.GetFloat64("OPTIMIZER_MUTATION_RATE"),
		CrossoverRate:                v.GetFloat64("OPTIMIZER_CROSSOVER_RATE"),
		ElitismCount:                 v.GetInt("OPTIMIZER_ELITISM_COUNT"),
		TournamentSize:               v.GetInt("OPTIMIZER_TOURNAMENT_SIZE"),
		MaxSeconds:                   v.GetInt("OPTIMIZER_MAX_SECONDS"),
		PlateauWindow:                v.GetInt("OPTIMIZER_PLATEAU_WINDOW"),
		PlateauPct:                   v.GetFloat64("OPTIMIZER_PLATEAU_PCT"),
		WeightDayDistribution:        v.GetFloat64("OPTIMIZER_WEIGHT_DAY_DISTRIBUTION"),
		WeightTimeGaps:               v.GetFloat64("OPTIMIZER_WEIGHT_TIME_GAPS"),
		WeightPeriodUtilization:      v.GetFloat64("OPTIMIZER_WEIGHT_PERIOD_UTILIZATION"),
		WeightWeekDistribution:       v.GetFloat64("OPTIMIZER_WEIGHT_WEEK_DISTRIBUTION"),
		WeightConstraintSatisfaction: v.GetFloat64("OPTIMIZER_WEIGHT_CONSTRAINT_SATISFACTION"),
	}

	cfg.Evaluator = EvaluatorDefaults{
		MaxGapSize:          v.GetInt("EVALUATOR_MAX_GAP_SIZE"),
		MinDailyClasses:     v.GetInt("EVALUATOR_MIN_DAILY_CLASSES"),
		MaxDailyClasses:     v.GetInt("EVALUATOR_MAX_DAILY_CLASSES"),
		TargetClassesPerDay: v.GetInt("EVALUATOR_TARGET_CLASSES_PER_DAY"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("ALLOWED_ORIGINS", "")

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("SCHEDULER_PMAX", 8)
	v.SetDefault("SCHEDULER_DEFAULT_MAX_PER_DAY", 6)
	v.SetDefault("SCHEDULER_DEFAULT_MAX_PER_WEEK", 30)
	v.SetDefault("SCHEDULER_DEFAULT_MAX_CONSECUTIVE", 2)
	v.SetDefault("SCHEDULER_DEFAULT_AVOID_CONSECUTIVE", false)
	v.SetDefault("SCHEDULER_MAX_BACKTRACKS", 1000)
	v.SetDefault("SCHEDULER_MAX_WEEKS_LOOKAHEAD", 10)

	v.SetDefault("CACHE_CAPACITY", 100)
	v.SetDefault("CACHE_REDIS_BACKED", false)
	v.SetDefault("CACHE_TTL", "1h")

	v.SetDefault("DISPATCHER_WORKERS", 4)

	v.SetDefault("OPTIMIZER_POPULATION_SIZE", 50)
	v.SetDefault("OPTIMIZER_GENERATION_LIMIT", 200)
	v.SetDefault("OPTIMIZER_MUTATION_RATE", 0.1)
	v.SetDefault("OPTIMIZER_CROSSOVER_RATE", 0.8)
	v.SetDefault("OPTIMIZER_ELITISM_COUNT", 2)
	v.SetDefault("OPTIMIZER_TOURNAMENT_SIZE", 5)
	v.SetDefault("OPTIMIZER_MAX_SECONDS", 30)
	v.SetDefault("OPTIMIZER_PLATEAU_WINDOW", 10)
	v.SetDefault("OPTIMIZER_PLATEAU_PCT", 0.01)
	v.SetDefault("OPTIMIZER_WEIGHT_DAY_DISTRIBUTION", 0.3)
	v.SetDefault("OPTIMIZER_WEIGHT_TIME_GAPS", 0.3)
	v.SetDefault("OPTIMIZER_WEIGHT_PERIOD_UTILIZATION", 0.2)
	v.SetDefault("OPTIMIZER_WEIGHT_WEEK_DISTRIBUTION", 0.1)
	v.SetDefault("OPTIMIZER_WEIGHT_CONSTRAINT_SATISFACTION", 0.1)

	v.SetDefault("EVALUATOR_MAX_GAP_SIZE", 2)
	v.SetDefault("EVALUATOR_MIN_DAILY_CLASSES", 4)
	v.SetDefault("EVALUATOR_MAX_DAILY_CLASSES", 8)
	v.SetDefault("EVALUATOR_TARGET_CLASSES_PER_DAY", 6)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
