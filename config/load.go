package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"gopkg.in/yaml.v3"
)

// matches $(VAR_NAME)
var envPattern = regexp.MustCompile(`\$\(([A-Za-z0-9_]+)\)`)

func expandEnvVars(s string) string {
	return envPattern.ReplaceAllStringFunc(s, func(m string) string {
		return os.Getenv(envPattern.FindStringSubmatch(m)[1])
	})
}

// Load reads the YAML file at path. An empty path yields the defaults plus
// environment fallbacks.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err = yaml.Unmarshal([]byte(expandEnvVars(string(data))), &cfg); err != nil {
			return nil, fmt.Errorf("unmarshalling yaml: %w", err)
		}
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if c.Discord.Token == "" {
		c.Discord.Token = os.Getenv("DISCORD_BOT_TOKEN")
	}
	if c.HTTP.Addr == "" {
		if port := os.Getenv("PORT"); port != "" {
			c.HTTP.Addr = ":" + port
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Discord.Prefix == "" {
		c.Discord.Prefix = "+"
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Dir == "" {
		c.Logging.Dir = "logs"
	}
	if c.Logging.ArchiveCron == "" {
		c.Logging.ArchiveCron = "@midnight"
	}
	if c.Store.Driver == "" {
		c.Store.Driver = "memory"
	}
	if c.Store.SQLitePath == "" {
		c.Store.SQLitePath = "warden.db"
	}
	if c.Spaces.Region == "" {
		c.Spaces.Region = "us-east-1"
	}
	if c.Spaces.Prefix == "" {
		c.Spaces.Prefix = "backups"
	}
	if c.Backup.RestoreDelay == 0 {
		c.Backup.RestoreDelay = 500 * time.Millisecond
	}
	if c.Backup.MaxSnapshotBytes == 0 {
		c.Backup.MaxSnapshotBytes = 8 << 20
	}
	if c.Commands.Timeout == 0 {
		c.Commands.Timeout = 2 * time.Minute
	}
	if c.Commands.RestoreTimeout == 0 {
		c.Commands.RestoreTimeout = 30 * time.Minute
	}
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Discord.Token) == "" {
		errs = append(errs, errors.New("discord.token is empty (set it or DISCORD_BOT_TOKEN)"))
	}
	if c.Discord.CommandGuild != "" {
		if _, err := snowflake.Parse(c.Discord.CommandGuild); err != nil {
			errs = append(errs, fmt.Errorf("discord.commandGuild: %w", err))
		}
	}
	switch c.Store.Driver {
	case "memory", "sqlite":
	case "neo4j":
		if c.Store.Neo4j.URI == "" {
			errs = append(errs, errors.New("store.neo4j.uri is required for the neo4j driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("store.driver %q is not one of memory, sqlite, neo4j", c.Store.Driver))
	}
	if c.Spaces.Enabled && (c.Spaces.Endpoint == "" || c.Spaces.Bucket == "" || c.Spaces.Key == "" || c.Spaces.Secret == "") {
		errs = append(errs, errors.New("spaces needs endpoint, bucket, key and secret when enabled"))
	}
	if c.Backup.RestoreDelay < 0 {
		errs = append(errs, errors.New("backup.restoreDelay must not be negative"))
	}
	return errors.Join(errs...)
}

// CommandGuildID is the parsed discord.commandGuild, zero when unset.
func (c *Config) CommandGuildID() snowflake.ID {
	id, _ := snowflake.Parse(c.Discord.CommandGuild)
	return id
}
