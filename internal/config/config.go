package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"
	"github.com/samber/lo"
)

// EnvPrefix 环境变量前缀
const EnvPrefix = "SPRINGSNOW"

// ConfigFileName 配置文件名
const ConfigFileName = "config.toml"

// AppConfig 应用配置
type AppConfig struct {
	Server   ServerConfig   `toml:"server"`
	Data     DataConfig     `toml:"data"`
	Sources  SourcesConfig  `toml:"sources"`
	Business BusinessConfig `toml:"business"`
	Export   ExportConfig   `toml:"export"`
	Remote   RemoteConfig   `toml:"remote"`
	Quality  QualityConfig  `toml:"quality"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port           int      `toml:"port" validate:"gte=1,lte=65535"`
	DevMode        bool     `toml:"dev_mode"`
	AllowedOrigins []string `toml:"allowed_origins" validate:"min=1"`
}

// DataConfig 数据配置
type DataConfig struct {
	DataDir string `toml:"data_dir" validate:"required"`
	DBName  string `toml:"db_name" validate:"required"`
	LogFile string `toml:"log_file"`
}

// SourcesConfig 源 Excel 文件
type SourcesConfig struct {
	ExcelDir       string            `toml:"excel_dir"`
	InventoryFile  string            `toml:"inventory_file"`
	ProductionFile string            `toml:"production_file"`
	SalesFile      string            `toml:"sales_file"`
	PriceFile      string            `toml:"price_file"`
	ComparisonFile string            `toml:"comparison_file"`
	IndustryFiles  map[string]string `toml:"industry_files"`
}

// BusinessConfig 业务口径
type BusinessConfig struct {
	RatioClip         float64 `toml:"ratio_clip" validate:"gte=100"`
	ImporterRatioClip float64 `toml:"importer_ratio_clip" validate:"gte=100"`
	AbnormalRatioLow  float64 `toml:"abnormal_ratio_low"`
	AbnormalRatioHigh float64 `toml:"abnormal_ratio_high" validate:"gtfield=AbnormalRatioLow"`
	RatioWarning      float64 `toml:"ratio_warning" validate:"gt=0"`
	TaxRate           float64 `toml:"tax_rate" validate:"gte=1"`
	TurnoverCapDays   float64 `toml:"turnover_cap_days" validate:"gt=0"`
	MinPriceDiff      float64 `toml:"min_price_diff" validate:"gte=0"`
	PriceYear         int     `toml:"price_year" validate:"gte=2000,lte=2100"`
	DropZeroRows      bool    `toml:"drop_zero_rows"`
	Department        string  `toml:"department"`
	InviteCode        string  `toml:"invite_code"`
}

// ExportConfig SQL 导出
type ExportConfig struct {
	SQLFile       string `toml:"sql_file" validate:"required"`
	BatchSize     int    `toml:"batch_size" validate:"gt=0"`
	SchemaPrefix  string `toml:"schema_prefix"`
	IncludeSchema bool   `toml:"include_schema"`
	D1Database    string `toml:"d1_database"`
	WranglerDir   string `toml:"wrangler_dir"`
}

// RemoteConfig 远程导入接口
type RemoteConfig struct {
	APIURL        string   `toml:"api_url" validate:"omitempty,url"`
	BatchSize     int      `toml:"batch_size" validate:"gt=0"`
	Timeout       Duration `toml:"timeout"`
	RatePerSecond float64  `toml:"rate_per_second" validate:"gte=0"`
}

// QualityConfig 数据质量阈值
type QualityConfig struct {
	ZScoreThreshold float64 `toml:"zscore_threshold" validate:"gt=0"`
	IQRMultiplier   float64 `toml:"iqr_multiplier" validate:"gt=0"`
	Excellent       float64 `toml:"excellent" validate:"gtfield=Good,lte=1"`
	Good            float64 `toml:"good" validate:"gtfield=Acceptable"`
	Acceptable      float64 `toml:"acceptable" validate:"gtfield=Poor"`
	Poor            float64 `toml:"poor" validate:"gte=0"`
}

// Duration 以 "30s" 形式读写的时长
type Duration struct {
	time.Duration
}

// MarshalText 实现 encoding.TextMarshaler
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText 实现 encoding.TextUnmarshaler
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// LoadConfigInfo 配置加载元信息
type LoadConfigInfo struct {
	Path          string
	FileFound     bool
	PortSpecified bool
	EnvOverrides  []string
}

// DefaultConfig 默认配置
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:           20262,
			DevMode:        false,
			AllowedOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Data: DataConfig{
			DataDir: "data",
			DBName:  "springsnow.db",
		},
		Sources: SourcesConfig{
			ExcelDir:       "Excel文件夹",
			InventoryFile:  "收发存汇总表查询.xlsx",
			ProductionFile: "产成品入库列表.xlsx",
			SalesFile:      "销售发票执行查询.xlsx",
			PriceFile:      "调价表.xlsx",
			ComparisonFile: "春雪与小明农牧价格对比.xlsx",
			IndustryFiles: map[string]string{
				"鸡苗":   "卓创资讯-鸡苗价格.xlsx",
				"毛鸡":   "卓创资讯-毛鸡价格.xlsx",
				"板冻大胸": "卓创资讯-板冻大胸价格.xlsx",
				"琵琶腿":  "卓创资讯-琵琶腿价格.xlsx",
			},
		},
		Business: BusinessConfig{
			RatioClip:         500,
			ImporterRatioClip: 1000,
			AbnormalRatioLow:  0,
			AbnormalRatioHigh: 200,
			RatioWarning:      150,
			TaxRate:           1.09,
			TurnoverCapDays:   365,
			MinPriceDiff:      200,
			PriceYear:         2025,
			DropZeroRows:      true,
			Department:        "生品部",
			InviteCode:        "SPRING2025",
		},
		Export: ExportConfig{
			SQLFile:       "import_data.sql",
			BatchSize:     1000,
			IncludeSchema: false,
			D1Database:    "chunxue-prod-db",
			WranglerDir:   "backend",
		},
		Remote: RemoteConfig{
			BatchSize:     100,
			Timeout:       Duration{30 * time.Second},
			RatePerSecond: 2,
		},
		Quality: QualityConfig{
			ZScoreThreshold: 3.0,
			IQRMultiplier:   1.5,
			Excellent:       0.95,
			Good:            0.85,
			Acceptable:      0.70,
			Poor:            0.50,
		},
	}
}

// envOverrides 可通过环境变量覆盖的配置项，未设置的保持 nil
type envOverrides struct {
	Port       *int     `envconfig:"PORT"`
	DevMode    *bool    `envconfig:"DEV_MODE"`
	Origins    []string `envconfig:"ALLOWED_ORIGINS"`
	DataDir    *string  `envconfig:"DATA_DIR"`
	DBName     *string  `envconfig:"DB_NAME"`
	ExcelDir   *string  `envconfig:"EXCEL_DIR"`
	RemoteAPI  *string  `envconfig:"REMOTE_API"`
	D1Database *string  `envconfig:"D1_DATABASE"`
	PriceYear  *int     `envconfig:"PRICE_YEAR"`
}

func isPortSpecifiedInToml(data []byte) bool {
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return false
	}

	serverAny, ok := raw["server"]
	if !ok {
		return false
	}

	serverMap, ok := serverAny.(map[string]any)
	if !ok {
		return false
	}

	_, ok = serverMap["port"]
	return ok
}

// GetExeDir 获取可执行文件所在目录
func GetExeDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.Dir(exe), nil
}

// DefaultConfigPath 可执行文件同目录下的 config.toml
func DefaultConfigPath() string {
	exeDir, err := GetExeDir()
	if err != nil {
		// 无法获取可执行文件目录，使用当前目录
		exeDir = "."
	}
	return filepath.Join(exeDir, ConfigFileName)
}

// LoadConfigWithInfo 加载配置：config.toml -> .env -> SPRINGSNOW_* 环境变量，最后校验
// path 为空时使用可执行文件同目录下的 config.toml
func LoadConfigWithInfo(path string) (*AppConfig, LoadConfigInfo, error) {
	if path == "" {
		path = DefaultConfigPath()
	}
	info := LoadConfigInfo{Path: path}
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		info.FileFound = true
		info.PortSpecified = isPortSpecifiedInToml(data)
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, info, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
		// 配置文件不存在，使用默认配置
	default:
		return nil, info, err
	}

	// .env 不存在时忽略
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, info, fmt.Errorf("failed to load .env: %w", err)
	}

	overridden, err := applyEnv(config)
	if err != nil {
		return nil, info, err
	}
	info.EnvOverrides = overridden
	if lo.Contains(overridden, "PORT") {
		info.PortSpecified = true
	}

	if err := Validate(config); err != nil {
		return nil, info, err
	}
	return config, info, nil
}

// applyEnv 使用 SPRINGSNOW_* 环境变量覆盖配置，返回被覆盖的键
func applyEnv(config *AppConfig) ([]string, error) {
	var env envOverrides
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	var keys []string
	if env.Port != nil {
		config.Server.Port = *env.Port
		keys = append(keys, "PORT")
	}
	if env.DevMode != nil {
		config.Server.DevMode = *env.DevMode
		keys = append(keys, "DEV_MODE")
	}
	if len(env.Origins) > 0 {
		config.Server.AllowedOrigins = env.Origins
		keys = append(keys, "ALLOWED_ORIGINS")
	}
	if env.DataDir != nil {
		config.Data.DataDir = *env.DataDir
		keys = append(keys, "DATA_DIR")
	}
	if env.DBName != nil {
		config.Data.DBName = *env.DBName
		keys = append(keys, "DB_NAME")
	}
	if env.ExcelDir != nil {
		config.Sources.ExcelDir = *env.ExcelDir
		keys = append(keys, "EXCEL_DIR")
	}
	if env.RemoteAPI != nil {
		config.Remote.APIURL = *env.RemoteAPI
		keys = append(keys, "REMOTE_API")
	}
	if env.D1Database != nil {
		config.Export.D1Database = *env.D1Database
		keys = append(keys, "D1_DATABASE")
	}
	if env.PriceYear != nil {
		config.Business.PriceYear = *env.PriceYear
		keys = append(keys, "PRICE_YEAR")
	}
	return keys, nil
}

var validate = validator.New()

// Validate 按结构体标签校验配置
func Validate(config *AppConfig) error {
	if err := validate.Struct(config); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			e := verrs[0]
			return fmt.Errorf("invalid config %s: %s=%s (value %v)", e.Namespace(), e.Tag(), e.Param(), e.Value())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// SaveConfig 保存配置到 path；path 为空时写入可执行文件同目录
func SaveConfig(config *AppConfig, path string) error {
	if path == "" {
		path = DefaultConfigPath()
	}

	data, err := toml.Marshal(config)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// EnsureDataDir 确保数据目录及子目录存在
// 相对路径基于可执行文件所在目录
func EnsureDataDir(config *AppConfig) (string, error) {
	dataDir := ResolveDataDir(config)

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", err
	}

	// 创建子目录
	subdirs := []string{"uploads", "exports", "reports", "backups"}
	for _, subdir := range subdirs {
		path := filepath.Join(dataDir, subdir)
		if err := os.MkdirAll(path, 0755); err != nil {
			return "", err
		}
	}

	return dataDir, nil
}

// ResolveDataDir 数据目录绝对路径
func ResolveDataDir(config *AppConfig) string {
	if filepath.IsAbs(config.Data.DataDir) {
		return config.Data.DataDir
	}
	exeDir, err := GetExeDir()
	if err != nil {
		exeDir = "."
	}
	return filepath.Join(exeDir, config.Data.DataDir)
}

// GetDataPath 获取数据文件路径
func GetDataPath(config *AppConfig, subdir, filename string) string {
	return filepath.Join(ResolveDataDir(config), subdir, filename)
}

// DBPath 数据库文件路径
func DBPath(config *AppConfig) string {
	return filepath.Join(ResolveDataDir(config), config.Data.DBName)
}

// SourcePath 源文件路径，相对路径基于 excel_dir
func SourcePath(config *AppConfig, file string) string {
	if file == "" || filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(config.Sources.ExcelDir, file)
}
