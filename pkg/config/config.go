package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/betbot/poolhedge/pkg/logger"
)

// 环境变量（优先级高于配置文件，用于密钥）
const (
	EnvAccessKey = "HEDGER_ACCESS_KEY"
	EnvSecretKey = "HEDGER_SECRET_KEY"
	EnvAccountID = "HEDGER_ACCOUNT_ID"
	EnvRPCURL    = "HEDGER_RPC_URL"
)

// Config 对冲程序配置
type Config struct {
	DryRun         bool          `yaml:"dry_run" json:"dry_run"`
	StartOnBoot    bool          `yaml:"start_on_boot" json:"start_on_boot"` // 默认关闭，需要通过控制面 start
	PollInterval   time.Duration `yaml:"poll_interval" json:"poll_interval"`
	SettleDelay    time.Duration `yaml:"settle_delay" json:"settle_delay"`
	PaperFillRatio string        `yaml:"paper_fill_ratio" json:"paper_fill_ratio"` // dry_run 时每笔市价单的成交比例
	RPCURL         string        `yaml:"rpc_url" json:"rpc_url"`

	Exchange ExchangeConfig `yaml:"exchange" json:"exchange"`
	Control  ControlConfig  `yaml:"control" json:"control"`
	Metrics  MetricsConfig  `yaml:"metrics" json:"metrics"`
	Journal  JournalConfig  `yaml:"journal" json:"journal"`
	Log      logger.Config  `yaml:"log" json:"log"`

	Pools []PoolConfig `yaml:"pools" json:"pools"`
}

type ExchangeConfig struct {
	BaseURL   string        `yaml:"base_url" json:"base_url"`
	AccessKey string        `yaml:"access_key" json:"-"`
	SecretKey string        `yaml:"secret_key" json:"-"`
	AccountID string        `yaml:"account_id" json:"account_id"`
	Timeout   time.Duration `yaml:"timeout" json:"timeout"`
	RateLimit float64       `yaml:"rate_limit" json:"rate_limit"` // 每秒请求数，0 不限速
}

type ControlConfig struct {
	Listen string `yaml:"listen" json:"listen"` // 为空则不启动控制面
}

type MetricsConfig struct {
	Listen string `yaml:"listen" json:"listen"` // 单独的 /metrics + pprof 端口，可选
}

type JournalConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Path    string `yaml:"path" json:"path"`
}

// PoolConfig 单个池子。阈值以最小单位表示，用字符串避免浮点精度问题。
type PoolConfig struct {
	Name           string `yaml:"name" json:"name"`
	Symbol         string `yaml:"symbol" json:"symbol"`
	BaseDecimals   *int32 `yaml:"base_decimals" json:"base_decimals"` // 缺省 18
	BaseThreshold  string `yaml:"base_threshold" json:"base_threshold"`
	QuoteThreshold string `yaml:"quote_threshold" json:"quote_threshold"`

	PoolAddress string `yaml:"pool_address" json:"pool_address"`
	ShareToken  string `yaml:"share_token" json:"share_token"`
	Participant string `yaml:"participant" json:"participant"`
	BaseToken   string `yaml:"base_token" json:"base_token"` // 为空表示原生币
	QuoteToken  string `yaml:"quote_token" json:"quote_token"`
}

const defaultBaseDecimals int32 = 18

// Decimals base 资产精度
func (p PoolConfig) Decimals() int32 {
	if p.BaseDecimals == nil {
		return defaultBaseDecimals
	}
	return *p.BaseDecimals
}

// Thresholds 解析阈值，空字符串视为 0
func (p PoolConfig) Thresholds() (base, quote decimal.Decimal, err error) {
	base, err = parseAmount(p.BaseThreshold)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("pool %s: base_threshold: %w", p.Name, err)
	}
	quote, err = parseAmount(p.QuoteThreshold)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("pool %s: quote_threshold: %w", p.Name, err)
	}
	return base, quote, nil
}

// FillRatio 纸面交易成交比例，缺省 1
func (c *Config) FillRatio() decimal.Decimal {
	r, err := parseAmount(c.PaperFillRatio)
	if err != nil || !r.IsPositive() {
		return decimal.NewFromInt(1)
	}
	return r
}

func parseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

// LoadFromFile 读取 YAML 配置，加载 .env（存在时），应用环境变量覆盖和默认值，然后校验
func LoadFromFile(path string, envFiles ...string) (*Config, error) {
	loadDotEnv(envFiles...)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("解析配置文件 %s 失败: %w", path, err)
	}
	return cfg, nil
}

// Parse 从 YAML 内容构造配置
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadDotEnv(files ...string) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		// 不覆盖已存在的环境变量
		if err := godotenv.Load(f); err != nil {
			logger.Warnf("加载 %s 失败: %v", f, err)
		}
	}
}

func (c *Config) applyEnv() {
	c.Exchange.AccessKey = getEnv(EnvAccessKey, c.Exchange.AccessKey)
	c.Exchange.SecretKey = getEnv(EnvSecretKey, c.Exchange.SecretKey)
	c.Exchange.AccountID = getEnv(EnvAccountID, c.Exchange.AccountID)
	c.RPCURL = getEnv(EnvRPCURL, c.RPCURL)
}

func (c *Config) applyDefaults() {
	if c.PollInterval <= 0 {
		c.PollInterval = time.Minute
	}
	if c.SettleDelay <= 0 {
		c.SettleDelay = 2 * time.Second
	}
	if c.Exchange.Timeout <= 0 {
		c.Exchange.Timeout = 10 * time.Second
	}
	if c.Journal.Enabled && c.Journal.Path == "" {
		c.Journal.Path = "data/journal"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	for i := range c.Pools {
		p := &c.Pools[i]
		p.Name = strings.TrimSpace(p.Name)
		p.Symbol = strings.ToLower(strings.TrimSpace(p.Symbol))
	}
}

// Validate 校验配置
func (c *Config) Validate() error {
	if len(c.Pools) == 0 {
		return fmt.Errorf("至少需要配置一个池子")
	}
	if strings.TrimSpace(c.RPCURL) == "" {
		return fmt.Errorf("rpc_url 不能为空（或设置 %s）", EnvRPCURL)
	}
	if strings.TrimSpace(c.Exchange.BaseURL) == "" {
		return fmt.Errorf("exchange.base_url 不能为空")
	}
	if c.Exchange.RateLimit < 0 {
		return fmt.Errorf("exchange.rate_limit 不能为负数")
	}
	if !c.DryRun {
		if c.Exchange.AccessKey == "" || c.Exchange.SecretKey == "" {
			return fmt.Errorf("实盘模式需要 %s / %s", EnvAccessKey, EnvSecretKey)
		}
		if c.Exchange.AccountID == "" {
			return fmt.Errorf("实盘模式需要 exchange.account_id（或 %s）", EnvAccountID)
		}
	}
	if c.PaperFillRatio != "" {
		r, err := parseAmount(c.PaperFillRatio)
		if err != nil || !r.IsPositive() || r.GreaterThan(decimal.NewFromInt(1)) {
			return fmt.Errorf("paper_fill_ratio 必须在 (0, 1] 内，当前 %q", c.PaperFillRatio)
		}
	}

	seen := make(map[string]bool, len(c.Pools))
	for _, p := range c.Pools {
		if p.Name == "" {
			return fmt.Errorf("池子 name 不能为空")
		}
		if strings.Contains(p.Name, "/") {
			return fmt.Errorf("池子 name 不能包含 '/': %s", p.Name)
		}
		if seen[p.Name] {
			return fmt.Errorf("池子 name 重复: %s", p.Name)
		}
		seen[p.Name] = true
		if p.Symbol == "" {
			return fmt.Errorf("pool %s: symbol 不能为空", p.Name)
		}
		if d := p.Decimals(); d < 0 || d > 77 {
			return fmt.Errorf("pool %s: base_decimals 超出范围: %d", p.Name, d)
		}
		base, quote, err := p.Thresholds()
		if err != nil {
			return err
		}
		if base.IsNegative() || quote.IsNegative() {
			return fmt.Errorf("pool %s: 阈值不能为负数", p.Name)
		}
		addrs := map[string]string{
			"pool_address": p.PoolAddress,
			"share_token":  p.ShareToken,
			"participant":  p.Participant,
			"quote_token":  p.QuoteToken,
		}
		if p.BaseToken != "" {
			addrs["base_token"] = p.BaseToken
		}
		for field, v := range addrs {
			if !common.IsHexAddress(v) {
				return fmt.Errorf("pool %s: %s 不是合法地址: %q", p.Name, field, v)
			}
		}
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return defaultValue
}
