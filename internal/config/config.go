package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Addr     string `yaml:"addr"`
	Capacity int    `yaml:"capacity"`
	ReadSize int    `yaml:"readSize"`
	MaxConns int    `yaml:"maxConns"`
	Charset  string `yaml:"charset"`
	Echo     bool   `yaml:"echo"`
	LogLevel string `yaml:"logLevel"`
}

func Default() Config {
	return Config{
		Addr:     ":4001",
		Capacity: 80,
		ReadSize: 128,
		MaxConns: 400,
		Charset:  "US-ASCII",
		LogLevel: "debug",
	}
}

// Load reads a YAML file over cfg. Environment variables in the file are
// expanded before parsing.
func Load(filename string, cfg *Config) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
		return fmt.Errorf("parsing %s: %w", filename, err)
	}
	return nil
}

// Parse builds a Config from defaults, the TELNETD_* environment, an
// optional -config file and finally any flags given on the command line.
func Parse(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := Default()
	var flags Config
	configFile := fs.String("config", os.Getenv("TELNETD_CONFIG"), "path to a YAML config file")
	fs.StringVar(&flags.Addr, "addr", getEnvDefault("TELNETD_ADDR", cfg.Addr), "address on which to listen")
	fs.IntVar(&flags.Capacity, "capacity", getEnvInt("TELNETD_CAPACITY", cfg.Capacity), "subnegotiation buffer size in bytes (0 for the default)")
	fs.IntVar(&flags.ReadSize, "read-size", getEnvInt("TELNETD_READ_SIZE", cfg.ReadSize), "bytes to read from a connection at a time")
	fs.IntVar(&flags.MaxConns, "max-conns", getEnvInt("TELNETD_MAX_CONNS", cfg.MaxConns), "maximum concurrent connections")
	fs.StringVar(&flags.Charset, "charset", getEnvDefault("TELNETD_CHARSET", cfg.Charset), "IANA name of the charset used to log text")
	fs.BoolVar(&flags.Echo, "echo", getEnvBool("TELNETD_ECHO", cfg.Echo), "echo text back to the client")
	fs.StringVar(&flags.LogLevel, "log-level", getEnvDefault("TELNETD_LOG_LEVEL", cfg.LogLevel), "trace, debug, info, warn or error")
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if *configFile != "" {
		if err := Load(*configFile, &cfg); err != nil {
			return cfg, err
		}
	}

	// environment and explicit flags win over the file
	override := func(name, env string) bool {
		return set[name] || *configFile == "" || os.Getenv(env) != ""
	}
	if override("addr", "TELNETD_ADDR") {
		cfg.Addr = flags.Addr
	}
	if override("capacity", "TELNETD_CAPACITY") {
		cfg.Capacity = flags.Capacity
	}
	if override("read-size", "TELNETD_READ_SIZE") {
		cfg.ReadSize = flags.ReadSize
	}
	if override("max-conns", "TELNETD_MAX_CONNS") {
		cfg.MaxConns = flags.MaxConns
	}
	if override("charset", "TELNETD_CHARSET") {
		cfg.Charset = flags.Charset
	}
	if override("echo", "TELNETD_ECHO") {
		cfg.Echo = flags.Echo
	}
	if override("log-level", "TELNETD_LOG_LEVEL") {
		cfg.LogLevel = flags.LogLevel
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, errors.New("addr must not be empty"))
	}
	if c.Capacity < 0 {
		errs = append(errs, fmt.Errorf("capacity must not be negative, got %d", c.Capacity))
	}
	if c.ReadSize <= 0 {
		errs = append(errs, fmt.Errorf("readSize must be positive, got %d", c.ReadSize))
	}
	if c.MaxConns <= 0 {
		errs = append(errs, fmt.Errorf("maxConns must be positive, got %d", c.MaxConns))
	}
	return errors.Join(errs...)
}

func getEnvDefault(name, defaultValue string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(name string, defaultValue int) int {
	if n, err := strconv.Atoi(os.Getenv(name)); err == nil {
		return n
	}
	return defaultValue
}

func getEnvBool(name string, defaultValue bool) bool {
	if b, err := strconv.ParseBool(os.Getenv(name)); err == nil {
		return b
	}
	return defaultValue
}
