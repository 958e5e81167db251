package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/absfs/filevault"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"
)

// Config is the CLI configuration file
type Config struct {
	Dir             string         `yaml:"dir"`
	MetadataPath    string         `yaml:"metadata_path"`
	MetadataBackend string         `yaml:"metadata_backend"`
	KDF             string         `yaml:"kdf"`
	PBKDF2          PBKDF2Config   `yaml:"pbkdf2"`
	Argon2id        Argon2idConfig `yaml:"argon2id"`
	LogLevel        string         `yaml:"log_level"`
	Workers         int            `yaml:"workers"`
}

type PBKDF2Config struct {
	Iterations int    `yaml:"iterations"`
	Hash       string `yaml:"hash"`
}

type Argon2idConfig struct {
	Memory      uint32 `yaml:"memory"`
	Iterations  uint32 `yaml:"iterations"`
	Parallelism uint8  `yaml:"parallelism"`
}

// LoadConfig reads the YAML file at path (if any), fills defaults and applies environment
// overrides. An empty path means defaults plus environment only.
func LoadConfig(path string) (*Config, error) {
	var config Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	config.Dir = getEnv("FILEVAULT_DIR", config.Dir)
	config.LogLevel = getEnv("FILEVAULT_LOG_LEVEL", config.LogLevel)

	if config.Dir == "" {
		config.Dir = "./encrypted_files"
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	if config.MetadataBackend == "" {
		config.MetadataBackend = "json"
	}
	if config.MetadataBackend == "badger" && config.MetadataPath == "" {
		config.MetadataPath = filepath.Join(config.Dir, "meta.db")
	}

	return &config, nil
}

// VaultConfig converts the file configuration into a library configuration. The vault is
// opened on Dir, so frame and JSON metadata paths are relative to it.
func (c *Config) VaultConfig(logger *logrus.Logger) (*filevault.Config, error) {
	kdf, err := filevault.ParseKDF(c.KDF)
	if err != nil {
		return nil, err
	}
	hash, err := filevault.ParseHashFunc(c.PBKDF2.Hash)
	if err != nil {
		return nil, err
	}

	vc := filevault.DefaultConfig("/")
	vc.KDF = kdf
	vc.PBKDF2.Iterations = c.PBKDF2.Iterations
	vc.PBKDF2.HashFunc = hash
	vc.Argon2id = filevault.Argon2idParams{
		Memory:      c.Argon2id.Memory,
		Iterations:  c.Argon2id.Iterations,
		Parallelism: c.Argon2id.Parallelism,
	}
	vc.Workers = c.Workers
	vc.Logger = logger

	switch c.MetadataBackend {
	case "json":
		vc.MetadataBackend = filevault.MetadataJSON
		vc.MetadataPath = c.MetadataPath
	case "badger":
		vc.MetadataBackend = filevault.MetadataBadger
		vc.MetadataPath = c.MetadataPath
	default:
		return nil, fmt.Errorf("unknown metadata backend %q", c.MetadataBackend)
	}

	if err := vc.Validate(); err != nil {
		return nil, err
	}
	return vc, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
