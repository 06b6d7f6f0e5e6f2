package db

// Setting 存储应用偏好的键值对。
type Setting struct {
	Key   string `gorm:"primaryKey;size:100" json:"key"`
	Value string `gorm:"type:text" json:"value"`
}

// TableName 自定义表名以保持命名一致。
func (Setting) TableName() string {
	return "settings"
}

const (
	// SettingKeyTheme 表示界面主题。
	SettingKeyTheme = "theme"
	// SettingKeyAccentColor 表示强调色。
	SettingKeyAccentColor = "accent_color"
	// SettingKeyDaysToShow 表示网格可见天数。
	SettingKeyDaysToShow = "days_to_show"
	// SettingKeyCellSize 表示格子尺寸预设。
	SettingKeyCellSize = "cell_size"
	// SettingKeyLanguage 表示月份标签使用的语言。
	SettingKeyLanguage = "language"
)
