package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"
)

// ErrMissingCredentials is returned by Validate when the mail login is not
// configured.
var ErrMissingCredentials = errors.New("missing mail credentials")

const (
	EnvMailUser               = "EMAIL_USER"
	EnvMailPassword           = "EMAIL_PWD"
	EnvDataFile               = "LOAN_DATA_FILE"
	EnvSMTPHost               = "SMTP_HOST"
	EnvSMTPPort               = "SMTP_PORT"
	EnvSMTPInsecureSkipVerify = "SMTP_INSECURE_SKIP_VERIFY"
	EnvSenderName             = "MAIL_SENDER_NAME"
	EnvCheckInterval          = "CHECK_INTERVAL"
	EnvMaxAttempts            = "MAIL_MAX_ATTEMPTS"
	EnvRetryDelay             = "MAIL_RETRY_DELAY"
	EnvMetricsBindAddress     = "METRICS_BIND_ADDRESS"
)

const (
	DefaultDataFile      = "./Dataset/Fherm_Loan.csv"
	DefaultSMTPHost      = "smtp.gmail.com"
	DefaultSMTPPort      = 465
	DefaultSenderName    = "Mvlzerz App"
	DefaultCheckInterval = 48 * time.Hour
	DefaultMaxAttempts   = 2
	DefaultRetryDelay    = 5 * time.Second
)

type Data struct {
	// File is the path of the loan data CSV file.
	File string `yaml:"file"`
}

type Mail struct {
	Host               string `yaml:"host"`
	Port               int    `yaml:"port"`
	InsecureSkipVerify bool   `yaml:"insecureSkipVerify"`
	SenderName         string `yaml:"senderName"`
	// MaxAttempts is the number of delivery attempts per reminder.
	MaxAttempts int `yaml:"maxAttempts"`
	// RetryDelay is the pause between two attempts, e.g. "5s".
	RetryDelay string `yaml:"retryDelay"`

	// Credentials are only ever read from the environment.
	User     string `yaml:"-"`
	Password string `yaml:"-"`
}

type Schedule struct {
	// CheckInterval is the pause between two reminder cycles, e.g. "48h".
	CheckInterval string `yaml:"checkInterval"`
}

type Server struct {
	// MetricsBindAddress enables the metrics and health endpoints when set.
	MetricsBindAddress string `yaml:"metricsBindAddress"`
}

type Config struct {
	Data     Data
	Mail     Mail
	Schedule Schedule
	Server   Server
}

// Default returns the configuration used when neither a config file nor
// environment variables override a setting.
func Default() Config {
	return Config{
		Data: Data{File: DefaultDataFile},
		Mail: Mail{
			Host:        DefaultSMTPHost,
			Port:        DefaultSMTPPort,
			SenderName:  DefaultSenderName,
			MaxAttempts: DefaultMaxAttempts,
			RetryDelay:  DefaultRetryDelay.String(),
		},
		Schedule: Schedule{CheckInterval: DefaultCheckInterval.String()},
	}
}

// LoadDotEnv loads KEY=VALUE pairs from the given files (".env" when none is
// given) into the process environment. Variables that are already set are
// kept. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("loading env file %s: %w", p, err)
		}
	}
	return nil
}

// Load builds the configuration from the defaults, the optional YAML file at
// configPath and the environment, in that order of increasing precedence.
func Load(configPath string) (Config, error) {
	config := Default()

	if configPath != "" {
		content, err := os.ReadFile(configPath)
		if err != nil {
			return config, fmt.Errorf("trying to open config file %s: %w", configPath, err)
		}
		if err := yaml.Unmarshal(content, &config); err != nil {
			return config, fmt.Errorf("error unmarshaling YAML %s: %w", configPath, err)
		}
	}

	if err := applyEnv(&config); err != nil {
		return config, err
	}
	return config, nil
}

func applyEnv(c *Config) error {
	c.Mail.User = getEnvString(EnvMailUser, "")
	c.Mail.Password = getEnvString(EnvMailPassword, "")
	c.Data.File = getEnvString(EnvDataFile, c.Data.File)
	c.Mail.Host = getEnvString(EnvSMTPHost, c.Mail.Host)
	c.Mail.InsecureSkipVerify = getEnvBool(EnvSMTPInsecureSkipVerify, c.Mail.InsecureSkipVerify)
	c.Mail.SenderName = getEnvString(EnvSenderName, c.Mail.SenderName)
	c.Mail.RetryDelay = getEnvString(EnvRetryDelay, c.Mail.RetryDelay)
	c.Schedule.CheckInterval = getEnvString(EnvCheckInterval, c.Schedule.CheckInterval)
	c.Server.MetricsBindAddress = getEnvString(EnvMetricsBindAddress, c.Server.MetricsBindAddress)

	var err error
	if c.Mail.Port, err = getEnvInt(EnvSMTPPort, c.Mail.Port); err != nil {
		return err
	}
	if c.Mail.MaxAttempts, err = getEnvInt(EnvMaxAttempts, c.Mail.MaxAttempts); err != nil {
		return err
	}
	return nil
}

// Validate checks the whole configuration including the mail credentials.
func (c Config) Validate() error {
	var missing []string
	if strings.TrimSpace(c.Mail.User) == "" {
		missing = append(missing, EnvMailUser)
	}
	if c.Mail.Password == "" {
		missing = append(missing, EnvMailPassword)
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s must be set", ErrMissingCredentials, strings.Join(missing, ", "))
	}
	return c.ValidateSettings()
}

// ValidateSettings checks everything except the mail credentials.
func (c Config) ValidateSettings() error {
	var errs []error
	if c.Data.File == "" {
		errs = append(errs, errors.New("data file path must not be empty"))
	}
	if c.Mail.Host == "" {
		errs = append(errs, errors.New("mail host must not be empty"))
	}
	if c.Mail.Port < 1 || c.Mail.Port > 65535 {
		errs = append(errs, fmt.Errorf("mail port %d out of range", c.Mail.Port))
	}
	if c.Mail.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("mail max attempts must be at least 1, got %d", c.Mail.MaxAttempts))
	}
	if d, err := parseDuration("mail retry delay", c.Mail.RetryDelay, DefaultRetryDelay); err != nil {
		errs = append(errs, err)
	} else if d < 0 {
		errs = append(errs, fmt.Errorf("mail retry delay must not be negative, got %s", d))
	}
	if d, err := parseDuration("check interval", c.Schedule.CheckInterval, DefaultCheckInterval); err != nil {
		errs = append(errs, err)
	} else if d <= 0 {
		errs = append(errs, fmt.Errorf("check interval must be positive, got %s", d))
	}
	return errors.Join(errs...)
}

// RetryDelay returns the parsed pause between delivery attempts.
func (c Config) RetryDelay() time.Duration {
	d, _ := parseDuration("mail retry delay", c.Mail.RetryDelay, DefaultRetryDelay)
	return d
}

// CheckInterval returns the parsed pause between reminder cycles.
func (c Config) CheckInterval() time.Duration {
	d, _ := parseDuration("check interval", c.Schedule.CheckInterval, DefaultCheckInterval)
	return d
}

func (c Config) Print(log *zap.SugaredLogger) {
	log.Infow("Configuration",
		// Data
		"data_file", c.Data.File,
		// Mail
		"smtp_host", c.Mail.Host,
		"smtp_port", c.Mail.Port,
		"smtp_insecure_skip_verify", c.Mail.InsecureSkipVerify,
		"mail_user", c.Mail.User,
		"mail_password_set", c.Mail.Password != "",
		"mail_sender_name", c.Mail.SenderName,
		"mail_max_attempts", c.Mail.MaxAttempts,
		"mail_retry_delay", c.Mail.RetryDelay,
		// Schedule
		"check_interval", c.Schedule.CheckInterval,
		// Server
		"metrics_bind_address", c.Server.MetricsBindAddress,
	)
}
