package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
)

const (
	defaultRPCTimeout           = 30 * time.Second
	defaultBlockIndexInterval   = 15 * time.Second
	defaultMaxBlockRangeSize    = 1000
	defaultRecentCapacity       = 5
	defaultGasLimit             = 500000
	defaultExplorerTxURL        = "https://ccip.chain.link/tx/%s"
	defaultExplorerMessageURL   = "https://ccip.chain.link/msg/%s"
	defaultMetricsHost          = ":2112"
	defaultConfigFileName       = "config.yml"
	defaultSenderChainsCapacity = 8
)

var (
	ErrUnknownChain   = errors.New("unknown chain")
	ErrMissingSection = errors.New("missing config section")
	ErrInvalidValue   = errors.New("invalid config value")
)

type RPCConfig struct {
	Host    string        `yaml:"host"`
	Timeout time.Duration `yaml:"timeout"`
	RPS     float64       `yaml:"rps"`
}

type ChainConfig struct {
	RPC                *RPCConfig    `yaml:"rpc"`
	ChainID            string        `yaml:"chain_id"`
	Label              string        `yaml:"label"`
	CCIPChainSelector  uint64        `yaml:"ccip_chain_selector"`
	BlockTime          time.Duration `yaml:"block_time"`
	BlockIndexInterval time.Duration `yaml:"block_index_interval"`
	SafeLogsRequest    bool          `yaml:"safe_logs_request"`
}

type SenderConfig struct {
	ChainName          string         `yaml:"chain"`
	Chain              *ChainConfig   `yaml:"-"`
	Address            common.Address `yaml:"address"`
	StartBlock         uint           `yaml:"start_block"`
	BlockConfirmations uint           `yaml:"required_block_confirmations"`
	MaxBlockRangeSize  uint           `yaml:"max_block_range_size"`
}

type ReceiverConfig struct {
	ChainName string         `yaml:"chain"`
	Chain     *ChainConfig   `yaml:"-"`
	Address   common.Address `yaml:"address"`
}

type WalletConfig struct {
	PrivateKey string `yaml:"private_key"`
	GasLimit   uint64 `yaml:"gas_limit"`
}

type GreetingsConfig struct {
	RecentCapacity   int    `yaml:"recent_capacity"`
	CorrelationNonce bool   `yaml:"correlation_nonce"`
	DefaultFromChain string `yaml:"default_from_chain"`
	DefaultToChain   string `yaml:"default_to_chain"`
}

type ExplorerConfig struct {
	TxURL      string `yaml:"tx_url"`
	MessageURL string `yaml:"message_url"`
}

type DBConfig struct {
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	DB       string `yaml:"database"`
}

type PresenterConfig struct {
	Host string `yaml:"host"`
}

type MetricsConfig struct {
	Host string `yaml:"host"`
}

type AlertConfig struct {
	OlderThan time.Duration `yaml:"older_than"`
}

type Config struct {
	Chains    map[string]*ChainConfig `yaml:"chains"`
	Sender    *SenderConfig           `yaml:"sender"`
	Receiver  *ReceiverConfig         `yaml:"receiver"`
	Wallet    *WalletConfig           `yaml:"wallet"`
	Greetings *GreetingsConfig        `yaml:"greetings"`
	Explorer  *ExplorerConfig         `yaml:"explorer"`
	DBConfig  *DBConfig               `yaml:"postgres"`
	LogLevel  logrus.Level            `yaml:"log_level"`
	Presenter *PresenterConfig        `yaml:"presenter"`
	Metrics   *MetricsConfig          `yaml:"metrics"`
	Alerts    map[string]*AlertConfig `yaml:"alerts"`
}

// GetChainConfig looks a chain up by its numeric chain id.
func (cfg *Config) GetChainConfig(chainID string) *ChainConfig {
	for _, chain := range cfg.Chains {
		if chain.ChainID == chainID {
			return chain
		}
	}
	return nil
}

// SortedChains returns the configured chains ordered by chain id.
func (cfg *Config) SortedChains() []*ChainConfig {
	chains := make([]*ChainConfig, 0, defaultSenderChainsCapacity)
	for _, chain := range cfg.Chains {
		chains = append(chains, chain)
	}
	sort.Slice(chains, func(i, j int) bool {
		return chains[i].ChainID < chains[j].ChainID
	})
	return chains
}

func (cfg *Config) init() error {
	if len(cfg.Chains) == 0 {
		return fmt.Errorf("chains: %w", ErrMissingSection)
	}
	for name, chain := range cfg.Chains {
		if chain.RPC == nil || chain.RPC.Host == "" {
			return fmt.Errorf("chain %s has no rpc host: %w", name, ErrInvalidValue)
		}
		if chain.ChainID == "" {
			return fmt.Errorf("chain %s has no chain_id: %w", name, ErrInvalidValue)
		}
		if chain.RPC.Timeout == 0 {
			chain.RPC.Timeout = defaultRPCTimeout
		}
		if chain.BlockIndexInterval == 0 {
			chain.BlockIndexInterval = defaultBlockIndexInterval
		}
		if chain.Label == "" {
			chain.Label = name
		}
	}

	if cfg.Sender == nil {
		return fmt.Errorf("sender: %w", ErrMissingSection)
	}
	if cfg.Sender.Chain = cfg.Chains[cfg.Sender.ChainName]; cfg.Sender.Chain == nil {
		return fmt.Errorf("sender chain %s: %w", cfg.Sender.ChainName, ErrUnknownChain)
	}
	if cfg.Sender.MaxBlockRangeSize == 0 {
		cfg.Sender.MaxBlockRangeSize = defaultMaxBlockRangeSize
	}

	if cfg.Receiver == nil {
		return fmt.Errorf("receiver: %w", ErrMissingSection)
	}
	if cfg.Receiver.Chain = cfg.Chains[cfg.Receiver.ChainName]; cfg.Receiver.Chain == nil {
		return fmt.Errorf("receiver chain %s: %w", cfg.Receiver.ChainName, ErrUnknownChain)
	}

	if cfg.Wallet != nil && cfg.Wallet.GasLimit == 0 {
		cfg.Wallet.GasLimit = defaultGasLimit
	}

	if cfg.Greetings == nil {
		cfg.Greetings = new(GreetingsConfig)
	}
	if cfg.Greetings.RecentCapacity < 0 {
		return fmt.Errorf("greetings.recent_capacity must be positive: %w", ErrInvalidValue)
	}
	if cfg.Greetings.RecentCapacity == 0 {
		cfg.Greetings.RecentCapacity = defaultRecentCapacity
	}
	for _, chainID := range []string{cfg.Greetings.DefaultFromChain, cfg.Greetings.DefaultToChain} {
		if chainID != "" && cfg.GetChainConfig(chainID) == nil {
			return fmt.Errorf("default chain id %s: %w", chainID, ErrUnknownChain)
		}
	}

	if cfg.Explorer == nil {
		cfg.Explorer = new(ExplorerConfig)
	}
	if cfg.Explorer.TxURL == "" {
		cfg.Explorer.TxURL = defaultExplorerTxURL
	}
	if cfg.Explorer.MessageURL == "" {
		cfg.Explorer.MessageURL = defaultExplorerMessageURL
	}

	if cfg.Metrics == nil {
		cfg.Metrics = &MetricsConfig{Host: defaultMetricsHost}
	}
	// zero value is PanicLevel, which would silence the service
	if cfg.LogLevel == logrus.PanicLevel {
		cfg.LogLevel = logrus.InfoLevel
	}
	return nil
}

func ReadConfig(blob []byte) (*Config, error) {
	cfg := new(Config)
	if err := parseYaml(cfg, blob); err != nil {
		return nil, err
	}
	if err := cfg.init(); err != nil {
		return nil, fmt.Errorf("can't init config: %w", err)
	}
	return cfg, nil
}

func ReadConfigWithEnv(blob []byte) (*Config, error) {
	return ReadConfig([]byte(os.ExpandEnv(string(blob))))
}

func ReadConfigFromFile(path string) (*Config, error) {
	if path == "" {
		path = defaultConfigFileName
	}
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("can't read config file: %w", err)
	}
	return ReadConfigWithEnv(blob)
}
