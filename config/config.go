package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config 保存合成引擎及其外围服务的配置
type Config struct {
	// 合成参数
	FPS                    float64       // 目标帧率
	DefaultDurationSeconds float64       // 所有轨道都无有效时长时的兜底时长
	PollInterval           time.Duration // 时间线轮询间隔
	ServedRoot             string        // 媒体对外服务的根路径，例如 /media
	MediaDir               string        // ServedRoot 对应的本地目录，音频频谱从这里读取

	// 项目与时间线来源
	ProjectID        string // 期望加载的项目ID，为空时取索引第一个
	ProjectsDir      string // 本地项目目录（file 来源与 fsnotify 监听）
	TimelineSource   string // file | http | minio
	TimelineBaseURL  string // http 来源的基础地址
	IndexSource      string // file | db | minio
	ProjectIndexFile string // file 索引路径
	WatchFiles       bool

	HTTPAddr string

	// 数据库配置
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Redis配置
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
	SnapshotTTL   time.Duration

	// MinIO配置
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
	MinioRegion    string
	MinioPrefix    string // 项目目录在桶内的前缀

	// 日志配置
	LogLevel string
	LogPath  string
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt gets an environment variable as int or returns a default value.
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if b, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return b
		}
	}
	return fallback
}

// getEnvDuration 支持 "2s" 形式，也接受纯数字（按秒）
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.ParseFloat(value, 64); err == nil {
		return time.Duration(secs * float64(time.Second))
	}
	return fallback
}

// Load loads configuration from environment variables (via .env file) or defaults.
func Load() *Config {
	// godotenv.Load() will not override existing env vars.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found or error loading .env, relying on existing environment variables and defaults.")
	}
	return FromEnv()
}

// FromEnv 只读取当前环境变量，不加载 .env
func FromEnv() *Config {
	cfg := &Config{
		FPS:                    getEnvFloat("FPS", 30),
		DefaultDurationSeconds: getEnvFloat("DEFAULT_DURATION_SECONDS", 30),
		PollInterval:           getEnvDuration("POLL_INTERVAL", 2*time.Second),
		ServedRoot:             getEnv("SERVED_ROOT", "/media"),
		MediaDir:               getEnv("MEDIA_DIR", "public"),

		ProjectID:        getEnv("PROJECT_ID", ""),
		ProjectsDir:      getEnv("PROJECTS_DIR", "public/projects"),
		TimelineSource:   strings.ToLower(getEnv("TIMELINE_SOURCE", "file")),
		TimelineBaseURL:  getEnv("TIMELINE_BASE_URL", ""),
		IndexSource:      strings.ToLower(getEnv("INDEX_SOURCE", "file")),
		ProjectIndexFile: getEnv("PROJECT_INDEX_FILE", "public/projects/index.json"),
		WatchFiles:       getEnvBool("WATCH_FILES", true),

		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),

		DBHost:     getEnv("DB_HOST", "127.0.0.1"),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBUser:     getEnv("DB_USER", "root"),
		DBPassword: os.Getenv("DB_PASSWORD"), // 密码不提供默认值
		DBName:     getEnv("DB_NAME", "reelcomp"),

		RedisHost:     getEnv("REDIS_HOST", ""),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		SnapshotTTL:   getEnvDuration("SNAPSHOT_TTL", 24*time.Hour),

		MinioEndpoint:  getEnv("MINIO_ENDPOINT", ""),
		MinioAccessKey: getEnv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: getEnv("MINIO_SECRET_KEY", ""),
		MinioBucket:    getEnv("MINIO_BUCKET", "reelcomp"),
		MinioUseSSL:    getEnvBool("MINIO_USE_SSL", false),
		MinioRegion:    getEnv("MINIO_REGION", "us-east-1"),
		MinioPrefix:    getEnv("MINIO_PREFIX", "projects"),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogPath:  getEnv("LOG_PATH", ""),
	}

	if cfg.FPS <= 0 {
		cfg.FPS = 30
	}
	if cfg.DefaultDurationSeconds <= 0 {
		cfg.DefaultDurationSeconds = 30
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	return cfg
}

// RedisEnabled Redis 未配置主机时不启用快照持久化
func (c *Config) RedisEnabled() bool {
	return c.RedisHost != ""
}

// MinioEnabled reports whether MinIO credentials are present.
func (c *Config) MinioEnabled() bool {
	return c.MinioEndpoint != "" && c.MinioAccessKey != ""
}
