package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// ErrCodeNotFound 表示 --config 指定的文件不存在。
	ErrCodeNotFound = "config_not_found"
	// ErrCodeInvalid 表示配置文件无法读取/解析，或字段不合法。
	ErrCodeInvalid = "config_invalid"
	// ErrCodeMissingAPIKey 表示需要访问远端但没有配置 API key。
	ErrCodeMissingAPIKey = "config_missing_api_key"
)

// 默认配置文件名，按顺序在 cwd 下查找（都不存在时只用默认值）。
var DefaultFileNames = []string{"filmfiesta.json", "filmfiesta.yaml", "filmfiesta.yml"}

const (
	EnvAPIKey = "TMDB_API_KEY"
	EnvAddr   = "FILMFIESTA_ADDR"
)

const (
	DefaultAddr          = "127.0.0.1:8080"
	DefaultStorageDriver = "file"
	DefaultDataDir       = ".filmfiesta"
	DefaultRetryMax      = 1
	DefaultTimeout       = 10 * time.Second
	DefaultRPS           = 20
	DefaultBurst         = 40
	DefaultDebounce      = 500 * time.Millisecond
	DefaultActorMinChars = 3
	DefaultRenderWait    = 3 * time.Second
	DefaultLogLevel      = "info"
)

// CLIArgs 保留“是否显式指定”的信息：只有显式给出的 flag 才覆盖环境变量与配置文件。
type CLIArgs struct {
	ConfigPath string

	Addr    string
	AddrSet bool

	APIKey    string
	APIKeySet bool

	StorageDriver    string
	StorageDriverSet bool

	DataDir    string
	DataDirSet bool

	// Verbose 等价于 log.level=debug。
	Verbose bool
}

// FileConfig 对应 filmfiesta.json / filmfiesta.yaml 的解析结构（两种格式字段名一致）。
// 时长字段使用 Go duration 字符串，例如 "500ms"、"10s"。
type FileConfig struct {
	APIKey        string           `json:"api_key" yaml:"api_key"`
	APIBaseURL    string           `json:"api_base_url" yaml:"api_base_url"`
	ImageBaseURL  string           `json:"image_base_url" yaml:"image_base_url"`
	Addr          string           `json:"addr" yaml:"addr"`
	Storage       *StorageConfig   `json:"storage" yaml:"storage"`
	Proxy         *ProxyConfig     `json:"proxy" yaml:"proxy"`
	RetryMax      *int             `json:"retry_max" yaml:"retry_max"`
	Timeout       string           `json:"timeout" yaml:"timeout"`
	RateLimit     *RateLimitConfig `json:"rate_limit" yaml:"rate_limit"`
	Debounce      string           `json:"debounce" yaml:"debounce"`
	ActorMinChars int              `json:"actor_min_chars" yaml:"actor_min_chars"`
	RenderWait    string           `json:"render_wait" yaml:"render_wait"`
	Log           *LogConfig       `json:"log" yaml:"log"`
}

type StorageConfig struct {
	Driver string `json:"driver" yaml:"driver"`
	Path   string `json:"path" yaml:"path"`
	DSN    string `json:"dsn" yaml:"dsn"`
}

type ProxyConfig struct {
	URL string `json:"url" yaml:"url"`
}

type RateLimitConfig struct {
	RPS   float64 `json:"rps" yaml:"rps"`
	Burst int     `json:"burst" yaml:"burst"`
}

type LogConfig struct {
	Level string `json:"level" yaml:"level"`
}

// EffectiveConfig 是合并并做最小规范化后的最终配置（实现层直接消费，不再做二次默认/优先级判断）。
type EffectiveConfig struct {
	// File 是实际读取的配置文件；没有配置文件时为空。
	File string

	APIKey       string
	APIBaseURL   string
	ImageBaseURL string
	Addr         string

	StorageDriver string
	DataDir       string // 绝对路径
	StorageDSN    string

	ProxyURL string
	RetryMax int
	Timeout  time.Duration
	RPS      float64
	Burst    int

	Debounce      time.Duration
	ActorMinChars int
	RenderWait    time.Duration

	LogLevel string
}

// RequireAPIKey 在需要访问远端的命令里调用。
func (c EffectiveConfig) RequireAPIKey() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return &Error{Code: ErrCodeMissingAPIKey, Path: c.File}
	}
	return nil
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeNotFound:
		return fmt.Sprintf("%s：未找到配置文件 %q", e.Code, e.Path)
	case ErrCodeMissingAPIKey:
		return fmt.Sprintf("%s：缺少 API key（设置环境变量 %s、配置 api_key 或使用 --api-key）", e.Code, EnvAPIKey)
	case ErrCodeInvalid:
		if e.Err != nil {
			return fmt.Sprintf("%s：配置 %q 无效：%v", e.Code, e.Path, e.Err)
		}
		return fmt.Sprintf("%s：配置 %q 无效", e.Code, e.Path)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return e.Code
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// LoadEffective 发现并读取配置文件、.env 与环境变量，然后与 CLI 参数合并为最终配置。
//
// 发现规则（固定）：
// 1) CLI 提供 --config：必须存在（不存在报 config_not_found）
// 2) 否则按 DefaultFileNames 顺序在 cwd 下查找第一个存在的文件（可选）
// 3) <cwd>/.env 可选；其中的值不会覆盖进程里已经设置的环境变量
//
// 覆盖优先级（固定）：
// - addr / api_key：CLI 显式指定 > 环境变量 > 配置文件 > 默认
// - storage.driver / storage.path：CLI 显式指定 > 配置文件 > 默认
// - log.level：--verbose > 配置文件 > 默认 info
// - 其他字段：仅由配置文件控制
func LoadEffective(cwd string, cli CLIArgs) (EffectiveConfig, error) {
	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cwd, Err: err}
	}

	var (
		cfgPath string
		fc      FileConfig
	)
	if strings.TrimSpace(cli.ConfigPath) != "" {
		cfgPath = absCleanFrom(cwdAbs, cli.ConfigPath)
		var exists bool
		fc, exists, err = readFileConfig(cfgPath)
		if err != nil {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
		}
		if !exists {
			return EffectiveConfig{}, &Error{Code: ErrCodeNotFound, Path: cfgPath, Err: os.ErrNotExist}
		}
	} else {
		for _, name := range DefaultFileNames {
			p := filepath.Join(cwdAbs, name)
			f, exists, err := readFileConfig(p)
			if err != nil {
				return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: p, Err: err}
			}
			if exists {
				cfgPath, fc = p, f
				break
			}
		}
	}

	env, err := loadEnv(filepath.Join(cwdAbs, ".env"))
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: filepath.Join(cwdAbs, ".env"), Err: err}
	}

	return merge(cwdAbs, cli, env, fc, cfgPath)
}

// loadEnv 返回查询函数：进程环境变量优先，其次是 .env 文件里的值。
func loadEnv(dotenvPath string) (func(string) string, error) {
	dotenv, err := godotenv.Read(dotenvPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		dotenv = map[string]string{}
	}
	return func(key string) string {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
		return strings.TrimSpace(dotenv[key])
	}, nil
}

func merge(cwdAbs string, cli CLIArgs, env func(string) string, fc FileConfig, cfgPath string) (EffectiveConfig, error) {
	invalid := func(format string, args ...any) error {
		return &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: fmt.Errorf(format, args...)}
	}

	eff := EffectiveConfig{
		File:          cfgPath,
		APIBaseURL:    strings.TrimSpace(fc.APIBaseURL),
		ImageBaseURL:  strings.TrimSpace(fc.ImageBaseURL),
		StorageDriver: DefaultStorageDriver,
		RetryMax:      DefaultRetryMax,
		Timeout:       DefaultTimeout,
		RPS:           DefaultRPS,
		Burst:         DefaultBurst,
		Debounce:      DefaultDebounce,
		ActorMinChars: DefaultActorMinChars,
		RenderWait:    DefaultRenderWait,
		LogLevel:      DefaultLogLevel,
	}

	// api_key / addr：CLI > env > config > 默认
	eff.APIKey = pick(cli.APIKeySet, cli.APIKey, env(EnvAPIKey), fc.APIKey, "")
	eff.Addr = pick(cli.AddrSet, cli.Addr, env(EnvAddr), fc.Addr, DefaultAddr)
	if eff.Addr == "" {
		return EffectiveConfig{}, invalid("addr 不能为空")
	}

	for _, u := range []struct{ name, v string }{{"api_base_url", eff.APIBaseURL}, {"image_base_url", eff.ImageBaseURL}} {
		if u.v == "" {
			continue
		}
		if err := validateHTTPURL(u.v); err != nil {
			return EffectiveConfig{}, invalid("%s %v", u.name, err)
		}
	}

	// storage：CLI > config > 默认
	var sc StorageConfig
	if fc.Storage != nil {
		sc = *fc.Storage
	}
	eff.StorageDriver = pick(cli.StorageDriverSet, cli.StorageDriver, "", sc.Driver, DefaultStorageDriver)
	dataDir := pick(cli.DataDirSet, cli.DataDir, "", sc.Path, DefaultDataDir)
	eff.DataDir = absCleanFrom(cwdAbs, dataDir)
	eff.StorageDSN = strings.TrimSpace(sc.DSN)
	if err := validateStorage(eff.StorageDriver, eff.StorageDSN); err != nil {
		return EffectiveConfig{}, invalid("%v", err)
	}

	if fc.Proxy != nil {
		eff.ProxyURL = strings.TrimSpace(fc.Proxy.URL)
	}
	if eff.ProxyURL != "" {
		if _, err := url.Parse(eff.ProxyURL); err != nil {
			return EffectiveConfig{}, invalid("proxy.url 无效：%w", err)
		}
	}

	// retry_max：允许显式写 0（不重试）；范围 [0, 5]，超出截断。
	if fc.RetryMax != nil {
		eff.RetryMax = min(max(*fc.RetryMax, 0), 5)
	}

	var err error
	if eff.Timeout, err = parseDuration("timeout", fc.Timeout, DefaultTimeout); err != nil {
		return EffectiveConfig{}, invalid("%v", err)
	}
	if eff.Debounce, err = parseDuration("debounce", fc.Debounce, DefaultDebounce); err != nil {
		return EffectiveConfig{}, invalid("%v", err)
	}
	if eff.RenderWait, err = parseDuration("render_wait", fc.RenderWait, DefaultRenderWait); err != nil {
		return EffectiveConfig{}, invalid("%v", err)
	}

	if rl := fc.RateLimit; rl != nil {
		if rl.RPS < 0 || rl.Burst < 0 {
			return EffectiveConfig{}, invalid("rate_limit 不能为负数")
		}
		if rl.RPS > 0 {
			eff.RPS = rl.RPS
		}
		if rl.Burst > 0 {
			eff.Burst = rl.Burst
		}
	}

	if fc.ActorMinChars < 0 {
		return EffectiveConfig{}, invalid("actor_min_chars 不能为负数")
	}
	if fc.ActorMinChars > 0 {
		eff.ActorMinChars = fc.ActorMinChars
	}

	if fc.Log != nil && strings.TrimSpace(fc.Log.Level) != "" {
		eff.LogLevel = strings.ToLower(strings.TrimSpace(fc.Log.Level))
	}
	if cli.Verbose {
		eff.LogLevel = "debug"
	}
	switch eff.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return EffectiveConfig{}, invalid("log.level 只能是 debug/info/warn/error，实际是 %q", eff.LogLevel)
	}

	return eff, nil
}

// pick 按 CLI（显式指定）> env > config > 默认 的顺序取第一个非空值。
func pick(cliSet bool, cliVal, envVal, fileVal, def string) string {
	if cliSet {
		return strings.TrimSpace(cliVal)
	}
	for _, v := range []string{envVal, fileVal} {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return def
}

func validateStorage(driver, dsn string) error {
	switch driver {
	case "file", "sqlite", "memory":
		return nil
	case "postgres":
		if dsn == "" {
			return fmt.Errorf("storage.driver=postgres 但 storage.dsn 为空")
		}
		return nil
	case "":
		return fmt.Errorf("storage.driver 不能为空")
	default:
		return fmt.Errorf("storage.driver 只能是 file/sqlite/postgres/memory，实际是 %q", driver)
	}
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("无效：%q", raw)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("必须是 http/https：%q", raw)
	}
	return nil
}

// parseDuration 空串返回 def；必须为正数。
func parseDuration(name, raw string, def time.Duration) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s 无效：%w", name, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s 必须大于 0，实际是 %s", name, raw)
	}
	return d, nil
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute。
// - p 若已是绝对路径：直接 Clean
// - p 若是相对路径：Join(base, p) 后 Clean
func absCleanFrom(base, p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	p = filepath.Clean(p)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}

// readFileConfig 读取并解析配置文件；按扩展名选择 JSON 或 YAML。
// 返回值 exists 表示该文件是否存在（不存在不算错误）。
func readFileConfig(path string) (fc FileConfig, exists bool, err error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, false, nil
		}
		return FileConfig{}, false, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &fc)
	default:
		err = json.Unmarshal(b, &fc)
	}
	if err != nil {
		return FileConfig{}, true, err
	}
	return fc, true, nil
}
