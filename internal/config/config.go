package config

import (
	"github.com/ipxlabs/rts/internal/logger"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Chain    ChainConfig    `mapstructure:"chain"`
	Oracle   OracleConfig   `mapstructure:"oracle"`
	Task     TaskConfig     `mapstructure:"task"`
	Protocol ProtocolConfig `mapstructure:"protocol"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"` // postgres, sqlite
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	Path     string `mapstructure:"path"` // sqlite文件路径，:memory:为内存库
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	TTL      int    `mapstructure:"ttl"` // 缓存过期时间（秒）
}

// ChainConfig NFT登记合约所在链配置
type ChainConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	RpcUrl       string `mapstructure:"rpc_url"`       // RPC节点URL
	ChainId      int64  `mapstructure:"chain_id"`      // 链ID
	PrivateKey   string `mapstructure:"private_key"`   // 签名私钥
	RegistryAddr string `mapstructure:"registry_addr"` // NFT登记合约地址
}

// OracleConfig 收益预言机配置
type OracleConfig struct {
	Principal        string   `mapstructure:"principal"`          // 预言机上报身份
	ExtraPrincipals  []string `mapstructure:"extra_principals"`   // 额外允许的上报身份
	TimeoutSecs      int      `mapstructure:"timeout_secs"`       // 单次HTTP拉取超时
	PoolSize         int      `mapstructure:"pool_size"`          // 并发拉取协程池大小
	ReportWindowSecs int64    `mapstructure:"report_window_secs"` // 收益上报窗口
}

type TaskConfig struct {
	Interval           int   `mapstructure:"interval"`          // 秒
	MintStaleAfterSecs int64 `mapstructure:"mint_stale_after"`  // 铸造任务标记超时（秒）
	MintMaxAttempts    int64 `mapstructure:"mint_max_attempts"` // 自动重试次数上限
}

// ProtocolConfig 协议级默认参数（比例一律用基点）
type ProtocolConfig struct {
	InsuranceFeeBps      int64  `mapstructure:"insurance_fee_bps"`
	InsuranceCoverageBps int64  `mapstructure:"insurance_coverage_bps"`
	SlashFractionBps     int64  `mapstructure:"slash_fraction_bps"`
	PayoutWindowSecs     int64  `mapstructure:"payout_window_secs"`
	ProposalTTLSecs      int64  `mapstructure:"proposal_ttl_secs"`
	GovVotesRequired     int64  `mapstructure:"gov_votes_required"`
	MissedReportsLimit   int64  `mapstructure:"missed_reports_limit"`
	MinActivePeriodDays  int64  `mapstructure:"min_active_period_days"`
	DeclineThresholdBps  int64  `mapstructure:"decline_threshold_bps"`
	BootstrapMember      string `mapstructure:"bootstrap_member"`
	BootstrapPower       int64  `mapstructure:"bootstrap_power"`
}

type AuthConfig struct {
	JwtSecret string `mapstructure:"jwt_secret"`
	// header模式直接信任X-Caller头，仅用于本地联调
	Mode string `mapstructure:"mode"` // jwt, header
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // 日志级别: debug, info, warn, error, fatal
	Output string `mapstructure:"output"` // 输出目标: stdout, file
	File   string `mapstructure:"file"`   // 日志文件路径（当output为file时使用）
}

func Load() *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/rts")

	// 设置默认值
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.mode", "debug")
	viper.SetDefault("database.driver", "postgres")
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "")
	viper.SetDefault("database.dbname", "rts")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.path", "rts.db")
	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.ttl", 30)
	viper.SetDefault("chain.enabled", false)
	viper.SetDefault("chain.chain_id", 1)
	viper.SetDefault("oracle.principal", "oracle-aggregator")
	viper.SetDefault("oracle.timeout_secs", 10)
	viper.SetDefault("oracle.pool_size", 8)
	viper.SetDefault("oracle.report_window_secs", 7*86400)
	viper.SetDefault("task.interval", 60)
	viper.SetDefault("task.mint_stale_after", 3600)
	viper.SetDefault("task.mint_max_attempts", 5)
	viper.SetDefault("protocol.insurance_fee_bps", 200)
	viper.SetDefault("protocol.insurance_coverage_bps", 8000)
	viper.SetDefault("protocol.slash_fraction_bps", 5000)
	viper.SetDefault("protocol.payout_window_secs", 30*86400)
	viper.SetDefault("protocol.proposal_ttl_secs", 30*86400)
	viper.SetDefault("protocol.gov_votes_required", 3)
	viper.SetDefault("protocol.missed_reports_limit", 3)
	viper.SetDefault("protocol.min_active_period_days", 30)
	viper.SetDefault("protocol.decline_threshold_bps", 7000)
	viper.SetDefault("protocol.bootstrap_power", 100)
	viper.SetDefault("auth.mode", "jwt")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.output", "stdout")
	viper.SetDefault("log.file", "logs/app.log")

	// 自动读取环境变量
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		logger.Warn("Warning: Could not read config file: %v", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		logger.Fatal("Unable to decode config into struct: %v", err)
	}

	return &config
}

// GetLevel 实现 logger.LogConfig 接口
func (l LogConfig) GetLevel() string {
	return l.Level
}

// GetOutput 实现 logger.LogConfig 接口
func (l LogConfig) GetOutput() string {
	return l.Output
}

// GetFile 实现 logger.LogConfig 接口
func (l LogConfig) GetFile() string {
	return l.File
}
