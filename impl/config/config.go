package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ServerTlsConfig configures TLS for the query API server
type ServerTlsConfig struct {
	Cert       string `yaml:"cert"`
	Key        string `yaml:"key"`
	CA         string `yaml:"ca"`
	ClientAuth string `yaml:"clientAuth"`
}

// ImportConfig configures how layers are written to storage. AtomicWrites is a
// pointer so that an explicit 'false' in the config file can be told apart from
// the setting being absent.
type ImportConfig struct {
	ChunkSize    int64  `yaml:"chunkSize"`
	Compression  string `yaml:"compression"`
	AtomicWrites *bool  `yaml:"atomicWrites,omitempty"`
}

// ListConfig configures the list sub-command
type ListConfig struct {
	Header bool `yaml:"header"`
}

// Configuration represents the totality of configuration knobs and dials.
type Configuration struct {
	LogLevel        string          `yaml:"logLevel"`
	LogFile         string          `yaml:"logFile"`
	ConfigFile      string          `yaml:"configFile"`
	StoragePath     string          `yaml:"storagePath"`
	Repo            string          `yaml:"repo"`
	Archive         string          `yaml:"archive"`
	Mask            string          `yaml:"mask"`
	Images          []string        `yaml:"images"`
	FromRepo        string          `yaml:"fromRepo"`
	ToRepo          string          `yaml:"toRepo"`
	WatchPath       string          `yaml:"watchPath"`
	Port            int64           `yaml:"port"`
	Metrics         int64           `yaml:"metrics"`
	ImportConfig    ImportConfig    `yaml:"importConfig"`
	ServerTlsConfig ServerTlsConfig `yaml:"serverTlsConfig"`
	ListConfig      ListConfig      `yaml:"listConfig"`
}

// FromCmdLine has a flag for every command-line option. The parsing code
// sets the flag to true if the option was explicitly provided on the command
// line by the user.
type FromCmdLine struct {
	Command      string
	LogLevel     bool
	LogFile      bool
	ConfigFile   bool
	StoragePath  bool
	Repo         bool
	Archive      bool
	Mask         bool
	Images       bool
	FromRepo     bool
	ToRepo       bool
	WatchPath    bool
	Port         bool
	Metrics      bool
	ChunkSize    bool
	Compression  bool
	AtomicWrites bool
	ListConfig   bool
}

var config Configuration

func GetLogLevel() string {
	return config.LogLevel
}

func GetLogFile() string {
	return config.LogFile
}

func GetConfigFile() string {
	return config.ConfigFile
}

func GetStoragePath() string {
	return config.StoragePath
}

func GetRepo() string {
	return config.Repo
}

func GetArchive() string {
	return config.Archive
}

func GetMask() string {
	return config.Mask
}

func GetImages() []string {
	return config.Images
}

func GetFromRepo() string {
	return config.FromRepo
}

func GetToRepo() string {
	return config.ToRepo
}

func GetWatchPath() string {
	return config.WatchPath
}

func GetPort() int64 {
	return config.Port
}

func GetMetrics() int64 {
	return config.Metrics
}

func GetChunkSize() int64 {
	return config.ImportConfig.ChunkSize
}

func GetCompression() string {
	return config.ImportConfig.Compression
}

// GetAtomicWrites defaults to true when the setting was never provided.
func GetAtomicWrites() bool {
	if config.ImportConfig.AtomicWrites == nil {
		return true
	}
	return *config.ImportConfig.AtomicWrites
}

func GetServerTlsCfg() ServerTlsConfig {
	return config.ServerTlsConfig
}

func GetListConfig() ListConfig {
	return config.ListConfig
}

// Load loads the passed configuration file into the configuration struct
func Load(configFile string) error {
	if _, err := os.Stat(configFile); err != nil {
		return fmt.Errorf("unable to stat configuration file: %s", configFile)
	}
	if contents, err := os.ReadFile(configFile); err != nil {
		return fmt.Errorf("error reading configuration file: %s", configFile)
	} else if err := SetConfigFromStr(contents); err != nil {
		return fmt.Errorf("error parsing configuration file: %s, the error was: %s", configFile, err)
	}
	return nil
}

// Get gets the current configuration
func Get() Configuration {
	return config
}

// Set replaces the configuration with the passed configuration
func Set(cfg Configuration) {
	config = cfg
}

// SetConfigFromStr parses the yaml input and sets the configuration from it
func SetConfigFromStr(configBytes []byte) error {
	var cfg Configuration
	if err := yaml.Unmarshal(configBytes, &cfg); err != nil {
		return err
	}
	config = cfg
	return nil
}
