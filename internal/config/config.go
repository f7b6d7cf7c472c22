package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	UserAddress   string `yaml:"user_address"`
	UserFirstName string `yaml:"user_first_name"`

	VIPSenders []string `yaml:"vip_senders"`
	VIPDomains []string `yaml:"vip_domains"`

	TaskLimit              int  `yaml:"task_limit"`
	UrgencyFloor           int  `yaml:"urgency_floor"`
	TimePressureThreshold  int  `yaml:"time_pressure_threshold"`
	DisableStaleEscalation bool `yaml:"disable_stale_escalation"`

	MaxItemAgeDays      int `yaml:"max_item_age_days"`
	ReclassifyAfterDays int `yaml:"reclassify_after_days"`

	AnthropicAPIKey string  `yaml:"anthropic_api_key"`
	LLMModel        string  `yaml:"llm_model"`
	LLMConfidence   float64 `yaml:"llm_confidence_threshold"`

	DBPath string `yaml:"db_path"`

	SlackBotToken   string `yaml:"slack_bot_token"`
	DigestChannelID string `yaml:"digest_channel_id"`

	TriageSchedule             string `yaml:"triage_schedule"`
	Timezone                   string `yaml:"timezone"`
	ExternalHTTPTimeoutSeconds int    `yaml:"external_http_timeout_seconds"`

	Location *time.Location `yaml:"-"` // computed from Timezone, not from YAML
}

func LoadConfig() Config {
	var cfg Config

	configPath := "config.yaml"
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		configPath = envPath
	}
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			log.Fatalf("Error parsing %s: %v", configPath, err)
		}
		log.Printf("Loaded config from %s", configPath)
	}

	envOverride(&cfg.UserAddress, "USER_ADDRESS")
	envOverride(&cfg.UserFirstName, "USER_FIRST_NAME")
	envOverrideList(&cfg.VIPSenders, "VIP_SENDERS")
	envOverrideList(&cfg.VIPDomains, "VIP_DOMAINS")
	envOverrideInt(&cfg.TaskLimit, "TASK_LIMIT")
	envOverrideInt(&cfg.UrgencyFloor, "URGENCY_FLOOR")
	envOverrideInt(&cfg.TimePressureThreshold, "TIME_PRESSURE_THRESHOLD")
	envOverrideBool(&cfg.DisableStaleEscalation, "DISABLE_STALE_ESCALATION")
	envOverrideInt(&cfg.MaxItemAgeDays, "MAX_ITEM_AGE_DAYS")
	envOverrideInt(&cfg.ReclassifyAfterDays, "RECLASSIFY_AFTER_DAYS")
	envOverride(&cfg.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	envOverride(&cfg.LLMModel, "LLM_MODEL")
	envOverrideFloat(&cfg.LLMConfidence, "LLM_CONFIDENCE_THRESHOLD")
	envOverride(&cfg.DBPath, "DB_PATH")
	envOverride(&cfg.SlackBotToken, "SLACK_BOT_TOKEN")
	envOverride(&cfg.DigestChannelID, "DIGEST_CHANNEL_ID")
	envOverride(&cfg.TriageSchedule, "TRIAGE_SCHEDULE")
	envOverride(&cfg.Timezone, "TIMEZONE")
	envOverrideInt(&cfg.ExternalHTTPTimeoutSeconds, "EXTERNAL_HTTP_TIMEOUT_SECONDS")

	if cfg.TaskLimit == 0 {
		cfg.TaskLimit = 20
	}
	if cfg.UrgencyFloor == 0 {
		cfg.UrgencyFloor = 90
	}
	if cfg.TimePressureThreshold == 0 {
		cfg.TimePressureThreshold = 15
	}
	if cfg.MaxItemAgeDays == 0 {
		cfg.MaxItemAgeDays = 45
	}
	if cfg.ReclassifyAfterDays == 0 {
		cfg.ReclassifyAfterDays = 3
	}
	if cfg.LLMConfidence == 0 {
		cfg.LLMConfidence = 0.50
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "./triagebot.db"
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "Local"
	}
	if cfg.ExternalHTTPTimeoutSeconds == 0 {
		cfg.ExternalHTTPTimeoutSeconds = 90
	}

	if cfg.UserAddress == "" {
		log.Fatalf("Required config 'user_address' is not set (via config.yaml or env var)")
	}
	if cfg.TaskLimit < 1 {
		log.Fatalf("invalid task_limit '%d': must be >= 1", cfg.TaskLimit)
	}
	if cfg.UrgencyFloor < 0 || cfg.UrgencyFloor > 100 {
		log.Fatalf("invalid urgency_floor '%d': must be between 0 and 100", cfg.UrgencyFloor)
	}
	if cfg.TimePressureThreshold < 0 || cfg.TimePressureThreshold > 100 {
		log.Fatalf("invalid time_pressure_threshold '%d': must be between 0 and 100", cfg.TimePressureThreshold)
	}
	if cfg.MaxItemAgeDays < 1 {
		log.Fatalf("invalid max_item_age_days '%d': must be >= 1", cfg.MaxItemAgeDays)
	}
	if cfg.ReclassifyAfterDays < 0 {
		log.Fatalf("invalid reclassify_after_days '%d': must be >= 0", cfg.ReclassifyAfterDays)
	}
	if cfg.LLMConfidence < 0 || cfg.LLMConfidence > 1 {
		log.Fatalf("invalid llm_confidence_threshold '%f': must be between 0 and 1", cfg.LLMConfidence)
	}
	if cfg.AnthropicAPIKey == "" {
		log.Printf("WARNING: anthropic_api_key is not set. Items the rules cannot place will stay unclassified.")
	}
	if cfg.ExternalHTTPTimeoutSeconds < 5 {
		log.Fatalf("invalid external_http_timeout_seconds '%d': must be >= 5", cfg.ExternalHTTPTimeoutSeconds)
	}
	if cfg.SlackBotToken != "" && cfg.DigestChannelID == "" {
		log.Printf("WARNING: slack_bot_token is set but digest_channel_id is not. Digest disabled.")
	}

	if strings.EqualFold(cfg.Timezone, "Local") {
		cfg.Location = time.Local
	} else {
		loc, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			log.Fatalf("invalid timezone '%s': %v", cfg.Timezone, err)
		}
		cfg.Location = loc
	}

	return cfg
}

// UserDomain returns the lowercase domain part of the configured address.
func (c Config) UserDomain() string {
	at := strings.LastIndex(c.UserAddress, "@")
	if at < 0 || at == len(c.UserAddress)-1 {
		return ""
	}
	return strings.ToLower(c.UserAddress[at+1:])
}

func (c Config) DigestConfigured() bool {
	return c.SlackBotToken != "" && c.DigestChannelID != ""
}

func envOverride(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}

func envOverrideInt(field *int, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			log.Fatalf("invalid %s '%s': %v", envKey, val, err)
		}
		*field = parsed
	}
}

func envOverrideBool(field *bool, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = strings.EqualFold(val, "true") || val == "1"
	}
}

func envOverrideFloat(field *float64, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.ParseFloat(val, 64)
		if err != nil {
			log.Fatalf("invalid %s '%s': %v", envKey, val, err)
		}
		*field = parsed
	}
}

func envOverrideList(field *[]string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = nil
		for _, v := range strings.Split(val, ",") {
			v = strings.TrimSpace(v)
			if v != "" {
				*field = append(*field, v)
			}
		}
	}
}
