package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DevSecretKey 仅用于debug/test模式的开发密钥
const DevSecretKey = "accessctl-dev-secret-change-me"

// 鉴权策略
const (
	PolicyMenu     = "menu"
	PolicyRoleName = "role_name"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	Auth     AuthConfig
	Log      LogConfig
	CORS     CORSConfig
	Seed     SeedConfig
}

type ServerConfig struct {
	Port string
	Mode string // debug / release / test
}

type DatabaseConfig struct {
	Driver       string // postgres / mysql / sqlite
	Host         string
	Port         string
	User         string
	Password     string
	DBName       string
	SSLMode      string
	Path         string // sqlite文件路径
	MaxOpenConns int
	MaxIdleConns int
}

type JWTConfig struct {
	SecretKey         string
	TokenDuration     time.Duration // 会话令牌有效期
	SelectionDuration time.Duration // 角色选择凭据有效期
	Issuer            string
	// UsingDevSecret 未配置密钥而使用了开发密钥
	UsingDevSecret bool
}

type AuthConfig struct {
	Policy       string   // menu 或 role_name
	AllowedRoles []string // role_name 策略放行的角色
	BcryptCost   int
}

type LogConfig struct {
	Level      string
	FilePath   string
	MaxSize    int    // MB
	MaxBackups int    // 保留的备份文件数
	MaxAge     int    // 保留天数
	Compress   bool   // 是否压缩
	Format     string // json 或 text
}

type CORSConfig struct {
	AllowOrigins     []string
	AllowMethods     []string
	AllowHeaders     []string
	ExposeHeaders    []string
	AllowCredentials bool
	MaxAge           int // 预检请求缓存时间（小时）
}

type SeedConfig struct {
	OnStart bool // 启动时写入演示数据
}

// 获取环境变量，如果不存在则使用默认值
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true"
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s 格式错误: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s 必须大于0", key)
	}
	return d, nil
}

// 逗号分隔的字符串数组
func getEnvAsStringArray(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		result := make([]string, 0, len(parts))
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return defaultValue
}

// LoadConfig 加载 .env 与环境变量
func LoadConfig() (*Config, error) {
	// .env 不存在时直接使用进程环境变量
	_ = godotenv.Load()

	tokenDuration, err := getEnvAsDuration("JWT_TOKEN_DURATION", 24*time.Hour)
	if err != nil {
		return nil, err
	}
	selectionDuration, err := getEnvAsDuration("JWT_SELECTION_DURATION", 5*time.Minute)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Mode: getEnv("SERVER_MODE", "debug"),
		},
		Database: DatabaseConfig{
			Driver:       strings.ToLower(getEnv("DB_DRIVER", "postgres")),
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", ""),
			DBName:       getEnv("DB_NAME", "accessctl"),
			SSLMode:      getEnv("DB_SSLMODE", "disable"),
			Path:         getEnv("DB_PATH", "data/accessctl.db"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
		},
		JWT: JWTConfig{
			SecretKey:         os.Getenv("JWT_SECRET_KEY"),
			TokenDuration:     tokenDuration,
			SelectionDuration: selectionDuration,
			Issuer:            getEnv("JWT_ISSUER", "accessctl"),
		},
		Auth: AuthConfig{
			Policy:       strings.ToLower(getEnv("AUTH_POLICY", PolicyMenu)),
			AllowedRoles: getEnvAsStringArray("AUTH_ALLOWED_ROLES", []string{"Super Admin"}),
			BcryptCost:   getEnvAsInt("AUTH_BCRYPT_COST", 10),
		},
		Log: LogConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			FilePath:   getEnv("LOG_FILE_PATH", "logs/app.log"),
			MaxSize:    getEnvAsInt("LOG_MAX_SIZE", 100),
			MaxBackups: getEnvAsInt("LOG_MAX_BACKUPS", 7),
			MaxAge:     getEnvAsInt("LOG_MAX_AGE", 30),
			Compress:   getEnvAsBool("LOG_COMPRESS", true),
			Format:     getEnv("LOG_FORMAT", "json"),
		},
		CORS: CORSConfig{
			AllowOrigins:     getEnvAsStringArray("CORS_ALLOW_ORIGINS", []string{"*"}),
			AllowMethods:     getEnvAsStringArray("CORS_ALLOW_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"}),
			AllowHeaders:     getEnvAsStringArray("CORS_ALLOW_HEADERS", []string{"Origin", "Content-Type", "Authorization", "Accept", "X-Requested-With"}),
			ExposeHeaders:    getEnvAsStringArray("CORS_EXPOSE_HEADERS", []string{"Content-Length", "Content-Type"}),
			AllowCredentials: getEnvAsBool("CORS_ALLOW_CREDENTIALS", false),
			MaxAge:           getEnvAsInt("CORS_MAX_AGE", 12),
		},
		Seed: SeedConfig{
			OnStart: getEnvAsBool("SEED_ON_START", false),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.JWT.SecretKey == "" {
		if c.Server.Mode == "release" {
			return fmt.Errorf("release模式必须配置 JWT_SECRET_KEY")
		}
		c.JWT.SecretKey = DevSecretKey
		c.JWT.UsingDevSecret = true
	}

	switch c.Auth.Policy {
	case PolicyMenu, PolicyRoleName:
	default:
		return fmt.Errorf("不支持的 AUTH_POLICY: %s", c.Auth.Policy)
	}

	switch c.Database.Driver {
	case "postgres", "mysql", "sqlite":
	default:
		return fmt.Errorf("不支持的 DB_DRIVER: %s", c.Database.Driver)
	}

	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		return fmt.Errorf("AUTH_BCRYPT_COST 必须在4-31之间")
	}
	return nil
}
