package service

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/habitgrid/internal/db"
	"github.com/habitgrid/internal/grid"
	"github.com/habitgrid/internal/locale"
)

const (
	ThemeSystem = "system"
	ThemeLight  = "light"
	ThemeDark   = "dark"

	DefaultAccentColor = "#4f46e5"
	DefaultDaysToShow  = 365
	MinDaysToShow      = 7
	MaxDaysToShow      = 730
)

var hexColorPattern = regexp.MustCompile(`^#[0-9a-f]{6}$`)

// Preferences 描述界面偏好设置
type Preferences struct {
	Theme       string `json:"theme"`
	AccentColor string `json:"accent_color"`
	DaysToShow  int    `json:"days_to_show"`
	CellSize    string `json:"cell_size"`
	Language    string `json:"language"`
}

// DefaultPreferences 返回未设置时的默认偏好
func DefaultPreferences() Preferences {
	return Preferences{
		Theme:       ThemeSystem,
		AccentColor: DefaultAccentColor,
		DaysToShow:  DefaultDaysToShow,
		CellSize:    grid.PresetMedium,
		Language:    locale.DefaultLanguage,
	}
}

// SettingStore 为设置项的持久化接口，由 *db.Store 实现
type SettingStore interface {
	ListSettings(ctx context.Context) (map[string]string, error)
	PutSettings(ctx context.Context, values map[string]string) error
}

// SettingService 提供偏好设置的读取与更新能力
type SettingService struct {
	store SettingStore
}

// NewSettingService 构造 SettingService
func NewSettingService(store SettingStore) *SettingService {
	return &SettingService{store: store}
}

// GetPreferences 读取偏好设置，缺失或非法的值回退默认值
func (s *SettingService) GetPreferences(ctx context.Context) (Preferences, error) {
	result := DefaultPreferences()

	values, err := s.store.ListSettings(ctx)
	if err != nil {
		return result, fmt.Errorf("load settings: %w", err)
	}

	for key, value := range values {
		switch key {
		case db.SettingKeyTheme:
			if theme := normalizeTheme(value); theme != "" {
				result.Theme = theme
			}
		case db.SettingKeyAccentColor:
			if color := strings.ToLower(strings.TrimSpace(value)); hexColorPattern.MatchString(color) {
				result.AccentColor = color
			}
		case db.SettingKeyDaysToShow:
			if days, err := strconv.Atoi(strings.TrimSpace(value)); err == nil && days >= MinDaysToShow && days <= MaxDaysToShow {
				result.DaysToShow = days
			}
		case db.SettingKeyCellSize:
			if size := strings.ToLower(strings.TrimSpace(value)); grid.IsPreset(size) {
				result.CellSize = size
			}
		case db.SettingKeyLanguage:
			if lang := locale.NormalizeLanguage(value); lang != "" {
				result.Language = lang
			}
		}
	}

	return result, nil
}

// UpdatePreferences 校验并在同一事务中保存全部偏好设置
func (s *SettingService) UpdatePreferences(ctx context.Context, input Preferences) (Preferences, error) {
	sanitized, err := normalizePreferences(input)
	if err != nil {
		return Preferences{}, err
	}

	values := map[string]string{
		db.SettingKeyTheme:       sanitized.Theme,
		db.SettingKeyAccentColor: sanitized.AccentColor,
		db.SettingKeyDaysToShow:  strconv.Itoa(sanitized.DaysToShow),
		db.SettingKeyCellSize:    sanitized.CellSize,
		db.SettingKeyLanguage:    sanitized.Language,
	}
	if err := s.store.PutSettings(ctx, values); err != nil {
		return Preferences{}, fmt.Errorf("update settings: %w", err)
	}
	return sanitized, nil
}

func normalizePreferences(input Preferences) (Preferences, error) {
	defaults := DefaultPreferences()
	out := Preferences{
		Theme:       normalizeTheme(input.Theme),
		AccentColor: strings.ToLower(strings.TrimSpace(input.AccentColor)),
		DaysToShow:  input.DaysToShow,
		CellSize:    strings.ToLower(strings.TrimSpace(input.CellSize)),
		Language:    locale.NormalizeLanguage(input.Language),
	}

	if strings.TrimSpace(input.Theme) == "" {
		out.Theme = defaults.Theme
	} else if out.Theme == "" {
		return Preferences{}, fmt.Errorf("%w: unsupported theme %q", ErrInvalidSetting, input.Theme)
	}

	if out.AccentColor == "" {
		out.AccentColor = defaults.AccentColor
	} else if !hexColorPattern.MatchString(out.AccentColor) {
		return Preferences{}, fmt.Errorf("%w: accent color must be #rrggbb", ErrInvalidSetting)
	}

	if out.DaysToShow == 0 {
		out.DaysToShow = defaults.DaysToShow
	} else if out.DaysToShow < MinDaysToShow || out.DaysToShow > MaxDaysToShow {
		return Preferences{}, fmt.Errorf("%w: days to show must be between %d and %d", ErrInvalidSetting, MinDaysToShow, MaxDaysToShow)
	}

	if out.CellSize == "" {
		out.CellSize = defaults.CellSize
	} else if !grid.IsPreset(out.CellSize) {
		return Preferences{}, fmt.Errorf("%w: unsupported cell size %q", ErrInvalidSetting, input.CellSize)
	}

	if strings.TrimSpace(input.Language) == "" {
		out.Language = defaults.Language
	} else if out.Language == "" {
		return Preferences{}, fmt.Errorf("%w: unsupported language %q", ErrInvalidSetting, input.Language)
	}

	return out, nil
}

func normalizeTheme(raw string) string {
	switch theme := strings.ToLower(strings.TrimSpace(raw)); theme {
	case ThemeSystem, ThemeLight, ThemeDark:
		return theme
	default:
		return ""
	}
}
