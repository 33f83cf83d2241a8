package cfg

import (
	"errors"
	"flag"
	"fmt"
)

// Config adds service-specific configuration fields to the
// common cfg.Registerable and cfg.Validatable interfaces
type Config struct {
	DrainSeconds          int
	ShutdownBudgetSeconds int
	APIPort               int
	Workers               int
	StepTimeoutSeconds    int
	DataDir               string
	DatabaseURL           string
	SlackSigningSecret    string
	SlackBotToken         string
	SlackChannelID        string
	AirflowEndpoint       string
	AirflowUsername       string
	AirflowPassword       string
	ClaudeAPIKey          string
	ClaudeModel           string
	APIToken              string
}

// RegisterFlags binds Config fields to the given FlagSet with defaults inline
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.DrainSeconds, "drain-seconds", 60, "seconds to wait for in-flight requests to drain before shutdown (1..300)")
	fs.IntVar(&c.ShutdownBudgetSeconds, "shutdown-budget-seconds", 90, "total seconds for component shutdown after drain (1..300)")
	fs.IntVar(&c.APIPort, "http-port", 8080, "API listen TCP port (1..65535)")
	fs.IntVar(&c.Workers, "workers", 2, "pipeline worker count (1..32)")
	fs.IntVar(&c.StepTimeoutSeconds, "step-timeout-seconds", 120, "per-step timeout for pipeline capability calls (1..600)")
	fs.StringVar(&c.DataDir, "data-dir", "data", "directory for the file-backed dedup and audit stores")
	fs.StringVar(&c.DatabaseURL, "database-url", "", "PostgreSQL connection URL (empty = file-backed dedup store)")
	fs.StringVar(&c.SlackSigningSecret, "slack-signing-secret", "", "Slack app signing secret for webhook verification")
	fs.StringVar(&c.SlackBotToken, "slack-bot-token", "", "Slack bot token for posting notifications")
	fs.StringVar(&c.SlackChannelID, "slack-channel-id", "", "Slack channel that receives incident reports")
	fs.StringVar(&c.AirflowEndpoint, "airflow-endpoint", "", "Airflow REST API base URL")
	fs.StringVar(&c.AirflowUsername, "airflow-username", "", "Airflow API basic-auth username")
	fs.StringVar(&c.AirflowPassword, "airflow-password", "", "Airflow API basic-auth password")
	fs.StringVar(&c.ClaudeAPIKey, "claude-api-key", "", "API key for accessing the Claude LLM provider")
	fs.StringVar(&c.ClaudeModel, "claude-model", "claude-sonnet-4-20250514", "Claude model to use")
	fs.StringVar(&c.APIToken, "api-token", "", "bearer token protecting /query and /api/v1 (empty = no auth)")
}

// Validate checks all configuration fields for correctness.
// It returns an error if any field is invalid, or nil if all fields are valid.
func (c *Config) Validate() error {
	var errs []error

	// Drain and shutdown budgets
	if c.DrainSeconds <= 0 || c.DrainSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid DRAIN_SECONDS %d (must be 1..300)", c.DrainSeconds))
	}
	if c.ShutdownBudgetSeconds <= 0 || c.ShutdownBudgetSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid SHUTDOWN_BUDGET_SECONDS %d (must be 1..300)", c.ShutdownBudgetSeconds))
	}

	// Shutdown budget must be greater than drain time
	if c.ShutdownBudgetSeconds <= c.DrainSeconds {
		errs = append(errs, fmt.Errorf("SHUTDOWN_BUDGET_SECONDS %d must be greater than DRAIN_SECONDS %d", c.ShutdownBudgetSeconds, c.DrainSeconds))
	}

	// API port must be valid TCP port number
	if c.APIPort <= 0 || c.APIPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP_PORT %d (must be 1..65535)", c.APIPort))
	}

	if c.Workers <= 0 || c.Workers > 32 {
		errs = append(errs, fmt.Errorf("invalid WORKERS %d (must be 1..32)", c.Workers))
	}
	if c.StepTimeoutSeconds <= 0 || c.StepTimeoutSeconds > 600 {
		errs = append(errs, fmt.Errorf("invalid STEP_TIMEOUT_SECONDS %d (must be 1..600)", c.StepTimeoutSeconds))
	}

	if c.DataDir == "" {
		errs = append(errs, errors.New("DATA_DIR is required"))
	}

	// Webhook authentication cannot be skipped
	if c.SlackSigningSecret == "" {
		errs = append(errs, errors.New("SLACK_SIGNING_SECRET is required"))
	}

	// Notification delivery needs both token and destination
	if c.SlackBotToken == "" {
		errs = append(errs, errors.New("SLACK_BOT_TOKEN is required"))
	}
	if c.SlackChannelID == "" {
		errs = append(errs, errors.New("SLACK_CHANNEL_ID is required"))
	}

	if c.AirflowEndpoint == "" {
		errs = append(errs, errors.New("AIRFLOW_ENDPOINT is required"))
	}

	// Claude API key is required for LLM access
	if c.ClaudeAPIKey == "" {
		errs = append(errs, errors.New("CLAUDE_API_KEY is required"))
	}

	// Claude model is required for LLM access
	if c.ClaudeModel == "" {
		errs = append(errs, errors.New("CLAUDE_MODEL is required"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
