package config

import (
	"os"
	"path"
	"time"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Public  Public
	Private Private
}

type Public struct {
	ListenAddr         string        `yaml:"listen_addr"`
	JwtTTL             time.Duration `yaml:"jwt_ttl"`
	DefaultVoteLimit   int           `yaml:"default_vote_limit"`   // 0 = unlimited
	MaxCardTextLen     int           `yaml:"max_card_text_len"`    // runes
	MaxColumnsPerBoard int           `yaml:"max_columns_per_board"`
	CompletedBoardTTL  time.Duration `yaml:"completed_board_ttl"`  // sweeper purges after this
	SweepSchedule      string        `yaml:"sweep_schedule"`       // cron expression
	SnapshotBuffer     int           `yaml:"snapshot_buffer"`      // per-subscriber channel depth
	SecureCookies      bool          `yaml:"secure_cookies"`
	AllowedOrigins     []string      `yaml:"allowed_origins"`
	LogLevel           string        `yaml:"log_level"`
	LogJSON            bool          `yaml:"log_json"`
}

type Private struct {
	JwtKey string `yaml:"jwt_key"`
	Pg     Pg     `yaml:"pg"`
}

type Pg struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Dbname   string `yaml:"dbname"`
}

// implementing service interfaces

func (s *Config) JwtKey() string {
	return s.Private.JwtKey
}

func (s *Config) JwtTTL() time.Duration {
	return s.Public.JwtTTL
}

func mustLoadPath(configPath string, output interface{}) {
	// check if file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file does not exist: " + configPath)
	}
	configFile, err := os.ReadFile(configPath)
	if err != nil {
		panic("can't read config file")
	}

	err = yaml.Unmarshal(configFile, output)
	if err != nil {
		panic("can't unmarshal config file")
	}
}

func MustLoad(configFolder string) *Config {
	var public Public
	mustLoadPath(path.Join(configFolder, "public.yaml"), &public)
	public.applyDefaults()

	var private Private
	mustLoadPath(path.Join(configFolder, "private.yaml"), &private)
	if private.JwtKey == "" {
		panic("jwt_key is required in private.yaml")
	}

	return &Config{public, private}
}

func (p *Public) applyDefaults() {
	if p.ListenAddr == "" {
		p.ListenAddr = ":8080"
	}
	if p.JwtTTL == 0 {
		p.JwtTTL = 24 * time.Hour
	}
	if p.MaxCardTextLen == 0 {
		p.MaxCardTextLen = 2000
	}
	if p.MaxColumnsPerBoard == 0 {
		p.MaxColumnsPerBoard = 8
	}
	if p.CompletedBoardTTL == 0 {
		p.CompletedBoardTTL = 90 * 24 * time.Hour
	}
	if p.SweepSchedule == "" {
		p.SweepSchedule = "0 4 * * *"
	}
	if p.SnapshotBuffer == 0 {
		p.SnapshotBuffer = 16
	}
	if p.LogLevel == "" {
		p.LogLevel = "info"
	}
}
