package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix = "HABITGRID"

	DefaultListenAddr   = "127.0.0.1:8082"
	DefaultDatabasePath = "habitgrid.db"
	DefaultGinMode      = "release"
	DefaultLogLevel     = "info"
	DefaultNoteDebounce = 500 * time.Millisecond
)

// AppConfig 汇总运行所需的基础配置。
type AppConfig struct {
	ListenAddr       string
	DatabasePath     string
	GinMode          string
	LogLevel         string
	NoteDebounce     time.Duration
	StrictInvariants bool
	// ConfigFile 为实际读取的配置文件，未读取时为空
	ConfigFile string
}

// ErrNonLoopbackAddr 表示监听地址不是本机回环地址。
var ErrNonLoopbackAddr = errors.New("listen address must be a loopback address")

// Load 依次合并默认值、配置文件与 HABITGRID_* 环境变量。
// configFile 为空时尝试 $XDG_CONFIG_HOME/habitgrid/config.yaml，文件不存在不视为错误。
func Load(configFile string) (AppConfig, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	path := strings.TrimSpace(configFile)
	explicit := path != ""
	if !explicit {
		path = defaultConfigPath()
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			missing := errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)
			if explicit || !missing {
				return AppConfig{}, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	cfg := AppConfig{
		ListenAddr:       strings.TrimSpace(v.GetString("listen_addr")),
		DatabasePath:     strings.TrimSpace(v.GetString("db_path")),
		GinMode:          strings.TrimSpace(v.GetString("gin_mode")),
		LogLevel:         strings.ToLower(strings.TrimSpace(v.GetString("log_level"))),
		NoteDebounce:     v.GetDuration("note_debounce"),
		StrictInvariants: v.GetBool("strict_invariants"),
		ConfigFile:       v.ConfigFileUsed(),
	}
	if cfg.NoteDebounce <= 0 {
		cfg.NoteDebounce = DefaultNoteDebounce
	}
	if cfg.DatabasePath == "" {
		cfg.DatabasePath = DefaultDatabasePath
	}

	if err := ValidateListenAddr(cfg.ListenAddr); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("listen_addr", DefaultListenAddr)
	v.SetDefault("db_path", DefaultDatabasePath)
	v.SetDefault("gin_mode", DefaultGinMode)
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("note_debounce", DefaultNoteDebounce)
	v.SetDefault("strict_invariants", false)
}

func defaultConfigPath() string {
	base := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME"))
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "habitgrid", "config.yaml")
}

// ValidateListenAddr 确保服务只绑定在本机回环地址上。
func ValidateListenAddr(addr string) error {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNonLoopbackAddr, err)
	}
	if strings.EqualFold(host, "localhost") {
		return nil
	}
	ip := net.ParseIP(host)
	if ip == nil || !ip.IsLoopback() {
		return fmt.Errorf("%w: %q", ErrNonLoopbackAddr, addr)
	}
	return nil
}
