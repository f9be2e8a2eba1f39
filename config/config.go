// Package config 提供了统一的配置加载与管理能力.
// 配置文件为 toml 格式，环境变量以 BEATS_ 为前缀覆盖同名键（"." 替换为 "_"）。
package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/wyfcoding/beats/logging"

	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config 全局顶级配置结构.
type Config struct {
	Version   string          `mapstructure:"version"   toml:"version"`
	Server    ServerConfig    `mapstructure:"server"    toml:"server"`
	Log       LogConfig       `mapstructure:"log"       toml:"log"`
	Metrics   MetricsConfig   `mapstructure:"metrics"   toml:"metrics"`
	Tracing   TracingConfig   `mapstructure:"tracing"   toml:"tracing"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit" toml:"rate_limit"`
	Tree      TreeConfig      `mapstructure:"tree"      toml:"tree"`
	Verify    VerifyConfig    `mapstructure:"verify"    toml:"verify"`
}

// ServerConfig 定义服务器运行时的基础网络与环境参数.
type ServerConfig struct {
	Name        string `mapstructure:"name"        toml:"name"        validate:"required"`
	Environment string `mapstructure:"environment" toml:"environment" validate:"oneof=dev test prod"`
	HTTP        struct {
		Addr              string        `mapstructure:"addr"                toml:"addr"`
		Port              int           `mapstructure:"port"                toml:"port"                validate:"required,min=1,max=65535"`
		ReadTimeout       time.Duration `mapstructure:"read_timeout"        toml:"read_timeout"`
		ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" toml:"read_header_timeout"`
		WriteTimeout      time.Duration `mapstructure:"write_timeout"       toml:"write_timeout"`
		IdleTimeout       time.Duration `mapstructure:"idle_timeout"        toml:"idle_timeout"`
		ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"    toml:"shutdown_timeout"`
		SlowThreshold     time.Duration `mapstructure:"slow_threshold"      toml:"slow_threshold"`
		MaxBodyBytes      int64         `mapstructure:"max_body_bytes"      toml:"max_body_bytes"      validate:"min=0"`
	} `mapstructure:"http" toml:"http"`
}

// LogConfig 定义日志输出、级别与切割策略.
type LogConfig struct {
	Level      string `mapstructure:"level"       toml:"level"       validate:"omitempty,oneof=debug info warn error"` // 日志级别。
	Format     string `mapstructure:"format"      toml:"format"      validate:"omitempty,oneof=json text"`             // 日志格式（json/text）。
	File       string `mapstructure:"file"        toml:"file"`                                                         // 日志文件路径。
	Stdout     bool   `mapstructure:"stdout"      toml:"stdout"`                                                       // 写文件时是否同时输出到 stdout。
	MaxSize    int    `mapstructure:"max_size"    toml:"max_size"    validate:"min=0"`                                 // 单个文件最大大小 (MB)。
	MaxBackups int    `mapstructure:"max_backups" toml:"max_backups" validate:"min=0"`                                 // 最大备份数。
	MaxAge     int    `mapstructure:"max_age"     toml:"max_age"     validate:"min=0"`                                 // 最大保留天数。
	Compress   bool   `mapstructure:"compress"    toml:"compress"`                                                     // 是否启用压缩。
}

// MetricsConfig 普罗米修斯监控指标暴露配置.
type MetricsConfig struct {
	Port    string `mapstructure:"port"    toml:"port"`
	Path    string `mapstructure:"path"    toml:"path"`
	Enabled bool   `mapstructure:"enabled" toml:"enabled"`
}

// TracingConfig 分布式链路追踪（OpenTelemetry）配置.
type TracingConfig struct {
	ServiceName  string  `mapstructure:"service_name"  toml:"service_name"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint" toml:"otlp_endpoint" validate:"required_if=Enabled true"`
	SamplerRatio float64 `mapstructure:"sampler_ratio" toml:"sampler_ratio" validate:"min=0,max=1"`
	Enabled      bool    `mapstructure:"enabled"       toml:"enabled"`
}

// RateLimitConfig 定义本地令牌桶限流参数.
type RateLimitConfig struct {
	Rate    int  `mapstructure:"rate"    toml:"rate"    validate:"min=0"`
	Burst   int  `mapstructure:"burst"   toml:"burst"   validate:"min=0"`
	Enabled bool `mapstructure:"enabled" toml:"enabled"`
}

// TreeConfig 定义托管树的容量与数值范围限制.
type TreeConfig struct {
	MaxTrees     int   `mapstructure:"max_trees"     toml:"max_trees"     validate:"min=1"`
	MaxLength    int   `mapstructure:"max_length"    toml:"max_length"    validate:"min=1"`
	MaxMagnitude int64 `mapstructure:"max_magnitude" toml:"max_magnitude" validate:"min=0"` // 0 表示按长度自动取上限。
}

// VerifyConfig 定义差分校验的默认参数.
type VerifyConfig struct {
	Seed       uint64 `mapstructure:"seed"        toml:"seed"`
	Trials     int    `mapstructure:"trials"      toml:"trials"      validate:"min=1"`
	Ops        int    `mapstructure:"ops"         toml:"ops"         validate:"min=1"`
	MinN       int    `mapstructure:"min_n"       toml:"min_n"       validate:"min=1"`
	MaxN       int    `mapstructure:"max_n"       toml:"max_n"       validate:"gtefield=MinN"`
	ValueRange int64  `mapstructure:"value_range" toml:"value_range" validate:"min=1"`
	Parallel   int    `mapstructure:"parallel"    toml:"parallel"    validate:"min=1"`
}

// Default 返回不依赖配置文件即可运行的默认配置.
func Default() *Config {
	c := &Config{Version: "dev"}
	c.Server.Name = "beats"
	c.Server.Environment = "dev"
	c.Server.HTTP.Port = 8080
	c.Server.HTTP.ReadTimeout = 10 * time.Second
	c.Server.HTTP.ReadHeaderTimeout = 5 * time.Second
	c.Server.HTTP.WriteTimeout = 10 * time.Second
	c.Server.HTTP.IdleTimeout = 60 * time.Second
	c.Server.HTTP.ShutdownTimeout = 5 * time.Second
	c.Server.HTTP.SlowThreshold = 500 * time.Millisecond
	c.Server.HTTP.MaxBodyBytes = 64 << 20
	c.Log = LogConfig{Level: "info", Format: "json", MaxSize: 100, MaxBackups: 7, MaxAge: 30}
	c.Metrics = MetricsConfig{Port: "9090", Path: "/metrics", Enabled: true}
	c.Tracing = TracingConfig{ServiceName: "beats", SamplerRatio: 1.0}
	c.RateLimit = RateLimitConfig{Rate: 1000, Burst: 2000}
	c.Tree = TreeConfig{MaxTrees: 64, MaxLength: 1 << 20}
	c.Verify = VerifyConfig{
		Seed:       1,
		Trials:     8,
		Ops:        100000,
		MinN:       100,
		MaxN:       1000,
		ValueRange: 10000,
		Parallel:   4,
	}
	return c
}

// Addr 返回 HTTP 监听地址.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.HTTP.Addr, c.Server.HTTP.Port)
}

// LoggingConfig 转换为 logging 包的配置.
func (c *Config) LoggingConfig(module string) logging.Config {
	return logging.Config{
		Service:    c.Server.Name,
		Module:     module,
		Level:      c.Log.Level,
		Format:     c.Log.Format,
		File:       c.Log.File,
		Stdout:     c.Log.Stdout,
		MaxSize:    c.Log.MaxSize,
		MaxBackups: c.Log.MaxBackups,
		MaxAge:     c.Log.MaxAge,
		Compress:   c.Log.Compress,
	}
}

var (
	mu        sync.Mutex
	vInstance = viper.New()
	onReload  []func(*Config)
	validate  = validator.New()
)

// RegisterReloadHook 注册配置热更新回调。
func RegisterReloadHook(hook func(*Config)) {
	if hook == nil {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	onReload = append(onReload, hook)
}

// Validate 对配置执行结构体校验.
func Validate(conf *Config) error {
	if err := validate.Struct(conf); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// Load 读取 toml 配置文件并覆盖 conf 中对应的字段，未出现的键保留 conf 原值.
// path 为空时只应用环境变量覆盖.
func Load(path string, conf *Config) error {
	mu.Lock()
	defer mu.Unlock()

	v := viper.New()
	v.SetConfigType("toml")
	v.SetEnvPrefix("BEATS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvs(v, reflect.TypeOf(*conf), "")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config error: %w", err)
		}
	}

	if err := v.Unmarshal(conf); err != nil {
		return fmt.Errorf("unmarshal config error: %w", err)
	}

	vInstance = v
	return Validate(conf)
}

// bindEnvs 为 conf 中每个叶子键注册环境变量，使文件中缺失的键同样可被覆盖.
func bindEnvs(v *viper.Viper, t reflect.Type, prefix string) {
	for i := range t.NumField() {
		f := t.Field(i)
		tag := f.Tag.Get("mapstructure")
		if tag == "" || tag == "-" {
			continue
		}
		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}
		if f.Type.Kind() == reflect.Struct && f.Type != reflect.TypeOf(time.Duration(0)) {
			bindEnvs(v, f.Type, key)
			continue
		}
		_ = v.BindEnv(key)
	}
}

// Watch 监听配置文件变化并热更新 conf，自动同步日志级别并执行注册的回调.
func Watch(conf *Config) {
	mu.Lock()
	v := vInstance
	mu.Unlock()

	v.OnConfigChange(func(event fsnotify.Event) {
		slog.Info("detecting config change", "file", event.Name)
		const debounceTimeout = 500 * time.Millisecond
		time.Sleep(debounceTimeout)

		mu.Lock()
		defer mu.Unlock()

		next := *conf
		if err := v.Unmarshal(&next); err != nil {
			slog.Error("reload config unmarshal failed", "error", err)
			return
		}
		if err := Validate(&next); err != nil {
			slog.Error("reload config validation failed", "error", err)
			return
		}
		*conf = next

		logging.SetLevel(conf.Log.Level)
		slog.Info("config hot-reloaded and validated successfully")

		for _, hook := range onReload {
			hook(conf)
		}
	})
	v.WatchConfig()
}

// PrintWithMask 脱敏打印当前配置.
func PrintWithMask(conf any) {
	data, err := json.Marshal(conf)
	if err != nil {
		slog.Error("failed to marshal config for printing", "error", err)

		return
	}

	var configMap map[string]any
	if unmarshalErr := json.Unmarshal(data, &configMap); unmarshalErr != nil {
		slog.Error("failed to unmarshal config for masking", "error", unmarshalErr)

		return
	}

	mask(configMap)

	maskedJSON, marshalErr := json.MarshalIndent(configMap, "  ", "  ")
	if marshalErr != nil {
		slog.Error("failed to marshal masked config", "error", marshalErr)

		return
	}

	slog.Info("Current effective configuration", "config", string(maskedJSON))
}

func mask(configMap map[string]any) {
	sensitiveKeys := []string{"password", "secret", "dsn", "key", "token"}

	for key, val := range configMap {
		if subMap, ok := val.(map[string]any); ok {
			mask(subMap)

			continue
		}

		for _, sensitiveKey := range sensitiveKeys {
			if strings.Contains(strings.ToLower(key), sensitiveKey) {
				configMap[key] = "******"

				break
			}
		}
	}
}

// GetViper 返回最近一次 Load 使用的 Viper 实例.
func GetViper() *viper.Viper {
	mu.Lock()
	defer mu.Unlock()
	return vInstance
}
