package config

import (
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Clouded-Sabre/toytcp/lib"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	DefaultListenAddr = "127.0.0.1:7080"
	DefaultPeerAddr   = "127.0.0.1:7081"
)

// Port is a 16-bit port number that refuses anything else when decoded.
type Port uint16

// ParsePort accepts a decimal number between 0 and 65535.
func ParsePort(s string) (Port, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("destination port is empty")
	}
	v, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) && numErr.Err == strconv.ErrRange {
			return 0, errors.Errorf("destination port %q out of range, must be 0-65535", s)
		}
		return 0, errors.Errorf("destination port %q is not an unsigned decimal number", s)
	}
	return Port(v), nil
}

func (p *Port) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return errors.Errorf("line %d: destination port must be a scalar", node.Line)
	}
	v, err := ParsePort(node.Value)
	if err != nil {
		return errors.Wrapf(err, "line %d", node.Line)
	}
	*p = v
	return nil
}

type ToyTCPSection struct {
	DestinationPort *Port `yaml:"destination_port"`
	IntervalMs      int   `yaml:"interval_ms"`
	Headroom        *int  `yaml:"headroom"`
}

type PoolSection struct {
	Size                   int  `yaml:"size"`
	ChunkSize              int  `yaml:"chunk_size"`
	Debug                  bool `yaml:"debug"`
	ProcessTimeThresholdMs int  `yaml:"process_time_threshold_ms"`
}

type TransportSection struct {
	Listen string `yaml:"listen"`
	Peer   string `yaml:"peer"`
}

type Config struct {
	ToyTCP    ToyTCPSection    `yaml:"toytcp"`
	Pool      PoolSection      `yaml:"pool"`
	Transport TransportSection `yaml:"transport"`
}

// ReadConfig decodes a yaml config file. Unknown keys are rejected.
func ReadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening config")
	}
	defer f.Close()
	return Decode(f)
}

// Decode reads a config document from r.
func Decode(r io.Reader) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, errors.Wrap(err, "decoding config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.ToyTCP.DestinationPort == nil {
		return errors.New("toytcp.destination_port is required")
	}
	if c.ToyTCP.IntervalMs < 0 {
		return errors.Errorf("toytcp.interval_ms must not be negative, got %d", c.ToyTCP.IntervalMs)
	}
	if c.ToyTCP.Headroom != nil && *c.ToyTCP.Headroom < 0 {
		return errors.Errorf("toytcp.headroom must not be negative, got %d", *c.ToyTCP.Headroom)
	}
	if c.Pool.Size < 0 || c.Pool.ChunkSize < 0 || c.Pool.ProcessTimeThresholdMs < 0 {
		return errors.New("pool settings must not be negative")
	}
	return nil
}

// Engine returns the engine and pool configuration, with defaults filled
// in for everything the file leaves out.
func (c *Config) Engine() (*lib.ToyTCPConfig, *lib.PoolConfig) {
	tcpConfig := lib.DefaultToyTCPConfig()
	if c.ToyTCP.DestinationPort != nil {
		tcpConfig.DestinationPort = uint16(*c.ToyTCP.DestinationPort)
	}
	if c.ToyTCP.IntervalMs > 0 {
		tcpConfig.Interval = time.Duration(c.ToyTCP.IntervalMs) * time.Millisecond
	}
	if c.ToyTCP.Headroom != nil {
		tcpConfig.Headroom = *c.ToyTCP.Headroom
	}

	poolConfig := lib.DefaultPoolConfig()
	if c.Pool.Size > 0 {
		poolConfig.PoolSize = c.Pool.Size
	}
	if c.Pool.ChunkSize > 0 {
		poolConfig.ChunkSize = c.Pool.ChunkSize
	}
	poolConfig.Debug = c.Pool.Debug
	if c.Pool.ProcessTimeThresholdMs > 0 {
		poolConfig.ProcessTimeThreshold = c.Pool.ProcessTimeThresholdMs
	}
	return tcpConfig, poolConfig
}

// Addresses returns the UDP addresses segments are carried over.
func (c *Config) Addresses() (listen, peer string) {
	listen, peer = c.Transport.Listen, c.Transport.Peer
	if listen == "" {
		listen = DefaultListenAddr
	}
	if peer == "" {
		peer = DefaultPeerAddr
	}
	return listen, peer
}

// LoadConfig reads path and returns the engine and pool configuration.
func LoadConfig(path string) (*lib.ToyTCPConfig, *lib.PoolConfig, error) {
	cfg, err := ReadConfig(path)
	if err != nil {
		return nil, nil, err
	}
	tcpConfig, poolConfig := cfg.Engine()
	return tcpConfig, poolConfig, nil
}
