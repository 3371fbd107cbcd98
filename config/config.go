package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config 进程级配置，来自环境变量（可由 .env 文件预置）
type Config struct {
	Addr          string
	LogFile       string
	LogLevel      string
	StaticDir     string
	TickHz        int
	MatchDuration time.Duration
	StartDelay    time.Duration
	PhysicsFile   string
}

// MinMatchDuration 比赛时长下限，只能延长
const MinMatchDuration = 60 * time.Second

// Default 默认配置
func Default() Config {
	return Config{
		Addr:          ":3000",
		LogFile:       "app.log",
		LogLevel:      "info",
		StaticDir:     "web",
		TickHz:        60,
		MatchDuration: MinMatchDuration,
		StartDelay:    time.Second,
	}
}

// Load 读取 envFile（不存在时忽略）后，用环境变量覆盖默认值
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}
	c := Default()
	c.Addr = env("BOUNCY_ADDR", c.Addr)
	c.LogFile = env("BOUNCY_LOG_FILE", c.LogFile)
	c.LogLevel = env("BOUNCY_LOG_LEVEL", c.LogLevel)
	c.StaticDir = env("BOUNCY_STATIC_DIR", c.StaticDir)
	c.PhysicsFile = env("BOUNCY_PHYSICS_FILE", c.PhysicsFile)

	var err error
	if c.TickHz, err = envInt("BOUNCY_TICK_HZ", c.TickHz); err != nil {
		return Config{}, err
	}
	if c.MatchDuration, err = envMillis("BOUNCY_MATCH_DURATION_MS", c.MatchDuration); err != nil {
		return Config{}, err
	}
	if c.StartDelay, err = envMillis("BOUNCY_START_DELAY_MS", c.StartDelay); err != nil {
		return Config{}, err
	}
	if c.TickHz <= 0 {
		return Config{}, fmt.Errorf("BOUNCY_TICK_HZ must be > 0, got %d", c.TickHz)
	}
	if c.MatchDuration < MinMatchDuration {
		return Config{}, fmt.Errorf("BOUNCY_MATCH_DURATION_MS must be >= %d, got %d", MinMatchDuration.Milliseconds(), c.MatchDuration.Milliseconds())
	}
	return c, nil
}

func env(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	v := env(key, "")
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func envMillis(key string, def time.Duration) (time.Duration, error) {
	n, err := envInt(key, int(def/time.Millisecond))
	if err != nil {
		return 0, err
	}
	return time.Duration(n) * time.Millisecond, nil
}
