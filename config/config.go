package config

import "time"

type Config struct {
	Discord  DiscordConfig  `yaml:"discord"`
	HTTP     HTTPConfig     `yaml:"http"`
	Logging  LoggingConfig  `yaml:"logging"`
	Store    StoreConfig    `yaml:"store"`
	Spaces   SpacesConfig   `yaml:"spaces"`
	Backup   BackupConfig   `yaml:"backup"`
	Commands CommandsConfig `yaml:"commands"`
}

type DiscordConfig struct {
	Token        string `yaml:"token"`
	Prefix       string `yaml:"prefix"`
	SyncCommands bool   `yaml:"syncCommands"`
	// CommandGuild publishes commands to a single guild, instantly, instead
	// of globally.
	CommandGuild string `yaml:"commandGuild"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr"` // ":8080"
}

type LoggingConfig struct {
	Level       string `yaml:"level"` // "debug", "info", "warn", "error"
	Dir         string `yaml:"dir"`
	Files       bool   `yaml:"files"`
	ArchiveCron string `yaml:"archiveCron"`
}

type StoreConfig struct {
	Driver     string      `yaml:"driver"` // "memory", "sqlite", "neo4j"
	SQLitePath string      `yaml:"sqlitePath"`
	Neo4j      Neo4jConfig `yaml:"neo4j"`
}

type Neo4jConfig struct {
	URI      string `yaml:"uri"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

type SpacesConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
	Region   string `yaml:"region"`
	Bucket   string `yaml:"bucket"`
	Key      string `yaml:"key"`
	Secret   string `yaml:"secret"`
	Prefix   string `yaml:"prefix"`
}

type BackupConfig struct {
	RestoreDelay     time.Duration `yaml:"restoreDelay"`
	MaxSnapshotBytes int64         `yaml:"maxSnapshotBytes"`
}

type CommandsConfig struct {
	Timeout        time.Duration `yaml:"timeout"`
	RestoreTimeout time.Duration `yaml:"restoreTimeout"`
}
