package lib

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/units"
)

/* This file implements the 'user controlled' configuration of each module of the tree service */

const (
	// FILE NAMES in the 'data directory'
	ConfigFilePath = "config.json" // the file path for the configuration

	// node store backends
	MemoryBackend = "memory" // a plain go map
	BadgerBackend = "badger" // an in-memory badger instance fronted by an lru cache
)

// Config is the structure of the user configuration options
type Config struct {
	MainConfig    // main options spanning over all modules
	TreeConfig    // hashing and key encoding options
	StoreConfig   // node store options
	RPCConfig     // rpc API options
	MetricsConfig // telemetry options
}

// DefaultConfig() returns a Config with developer set options
func DefaultConfig() Config {
	return Config{
		MainConfig:    DefaultMainConfig(),
		TreeConfig:    DefaultTreeConfig(),
		StoreConfig:   DefaultStoreConfig(),
		RPCConfig:     DefaultRPCConfig(),
		MetricsConfig: DefaultMetricsConfig(),
	}
}

// MAIN CONFIG BELOW

type MainConfig struct {
	LogLevel    string `json:"logLevel"`    // any level includes the levels above it: debug < info < warning < error
	DataDirPath string `json:"dataDirPath"` // path of the designated folder where the config and logs are kept
}

// DefaultMainConfig() sets log level to 'info'
func DefaultMainConfig() MainConfig {
	return MainConfig{
		LogLevel:    "info",
		DataDirPath: DefaultDataDirPath(),
	}
}

// GetLogLevel() parses the log string in the config file into a LogLevel Enum
func (m *MainConfig) GetLogLevel() int32 {
	switch {
	case strings.Contains(strings.ToLower(m.LogLevel), "deb"):
		return DebugLevel
	case strings.Contains(strings.ToLower(m.LogLevel), "inf"):
		return InfoLevel
	case strings.Contains(strings.ToLower(m.LogLevel), "war"):
		return WarnLevel
	case strings.Contains(strings.ToLower(m.LogLevel), "err"):
		return ErrorLevel
	default:
		return DebugLevel
	}
}

// DefaultDataDirPath() is $USERHOME/.smt
func DefaultDataDirPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		panic(err)
	}
	return filepath.Join(home, ".smt")
}

// TREE CONFIG BELOW

// TreeConfig selects the hash function and the textual encoding of keys and values
// NOTE: every party verifying a proof must agree on the hash function
type TreeConfig struct {
	HashFunction string `json:"hashFunction"` // sha256, keccak256, blake2b, blake3
	KeyEncoding  string `json:"keyEncoding"`  // hex or decimal
}

// DefaultTreeConfig() hashes with sha256 and encodes node values as hex
func DefaultTreeConfig() TreeConfig {
	return TreeConfig{
		HashFunction: "sha256",
		KeyEncoding:  "hex",
	}
}

// STORE CONFIG BELOW

// StoreConfig is the configuration of the node store; all backends live in memory
type StoreConfig struct {
	Backend      string `json:"backend"`      // memory or badger
	CacheSize    int    `json:"cacheSize"`    // number of node records held in the lru cache (badger only)
	MemTableSize int64  `json:"memTableSize"` // badger memtable size in bytes
}

// DefaultStoreConfig() returns the developer recommended store configuration
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		Backend:      MemoryBackend,
		CacheSize:    10_000,
		MemTableSize: int64(64 * units.MiB),
	}
}

// RPC CONFIG BELOW

type RPCConfig struct {
	RPCPort  string `json:"rpcPort"`  // the port where the rpc server is hosted
	RPCUrl   string `json:"rpcURL"`   // the url where the rpc server is hosted
	TimeoutS int    `json:"timeoutS"` // the rpc request timeout in seconds
}

// DefaultRPCConfig() serves the rpc on localhost:50002
func DefaultRPCConfig() RPCConfig {
	return RPCConfig{
		RPCPort:  "50002",
		RPCUrl:   "http://localhost:50002",
		TimeoutS: 3,
	}
}

// MetricsConfig represents the configuration for the metrics server
type MetricsConfig struct {
	Enabled           bool   `json:"enabled"`           // if the metrics server is enabled
	PrometheusAddress string `json:"prometheusAddress"` // the address of the server
}

// DefaultMetricsConfig() returns the default metrics configuration
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled:           false,
		PrometheusAddress: "0.0.0.0:9090",
	}
}

// WriteToFile() saves the Config object to a JSON file
func (c Config) WriteToFile(filepath string) error {
	jsonBytes, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath, jsonBytes, os.ModePerm)
}

// NewConfigFromFile() populates a Config object from a JSON file
func NewConfigFromFile(filepath string) (Config, error) {
	fileBytes, err := os.ReadFile(filepath)
	if err != nil {
		return Config{}, err
	}
	// define the default config to fill in any blanks in the file
	c := DefaultConfig()
	if err = json.Unmarshal(fileBytes, &c); err != nil {
		return Config{}, err
	}
	return c, nil
}
