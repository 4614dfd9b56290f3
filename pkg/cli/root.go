package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mvlzerz/loan-reminder/pkg/config"
	"github.com/mvlzerz/loan-reminder/pkg/loan"
	"github.com/mvlzerz/loan-reminder/pkg/mail"
	"github.com/mvlzerz/loan-reminder/pkg/reminder"
	"github.com/mvlzerz/loan-reminder/pkg/scheduler"
	"github.com/mvlzerz/loan-reminder/pkg/system"
)

// EnvConfigPath names the YAML config file when --config is not given.
const EnvConfigPath = "LOAN_REMINDER_CONFIG"

type Config struct {
	ConfigPath   string
	EnvFiles     []string
	OutputWriter io.Writer
	// Logger replaces the logger built from --debug.
	Logger *zap.Logger
	// NewTransport replaces the SMTP transport.
	NewTransport func(cfg config.Config, log *zap.SugaredLogger) mail.Transport
	// Now replaces the clock that determines today's date.
	Now func() time.Time
}

type runtimeState struct {
	configPath string
	envFiles   []string
	dataFile   string
	debug      bool
	writer     io.Writer

	logger       *zap.Logger
	newTransport func(cfg config.Config, log *zap.SugaredLogger) mail.Transport
	now          func() time.Time

	cfg config.Config
	log *zap.SugaredLogger
}

func DefaultConfig() Config {
	return Config{
		EnvFiles:     []string{".env"},
		OutputWriter: os.Stdout,
	}
}

func NewRootCommand(cfg Config) *cobra.Command {
	rt := &runtimeState{
		configPath:   cfg.ConfigPath,
		envFiles:     cfg.EnvFiles,
		writer:       cfg.OutputWriter,
		logger:       cfg.Logger,
		newTransport: cfg.NewTransport,
		now:          cfg.Now,
	}

	root := &cobra.Command{
		Use:          "loan-reminder",
		Short:        "Email reminders to loan holders whose payment is overdue",
		Long:         "Email reminders to loan holders whose payment is overdue.\nWithout a subcommand it behaves like `run`.",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "version" || cmd.Name() == "help" {
				return nil
			}
			return rt.init()
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return rt.runLoop(cmd)
		},
	}

	root.PersistentFlags().StringVar(&rt.configPath, "config", rt.configPath, "Path to an optional YAML config file")
	root.PersistentFlags().StringVar(&rt.dataFile, "data-file", "", "Loan data CSV file (overrides "+config.EnvDataFile+")")
	root.PersistentFlags().BoolVar(&rt.debug, "debug", false, "Enable debug level logging")

	root.AddCommand(
		newRunCommand(rt),
		newOnceCommand(rt),
		newPreviewCommand(rt),
		newVersionCommand(rt),
	)

	return root
}

func (rt *runtimeState) init() error {
	if rt.writer == nil {
		rt.writer = os.Stdout
	}
	if rt.now == nil {
		rt.now = time.Now
	}
	if rt.newTransport == nil {
		rt.newTransport = newSMTPTransport
	}
	if rt.configPath == "" {
		rt.configPath = os.Getenv(EnvConfigPath)
	}

	if err := config.LoadDotEnv(rt.envFiles...); err != nil {
		return err
	}
	cfg, err := config.Load(rt.configPath)
	if err != nil {
		return err
	}
	if rt.dataFile != "" {
		cfg.Data.File = rt.dataFile
	}
	rt.cfg = cfg

	zl := rt.logger
	if zl == nil {
		if zl, err = system.NewLogger(rt.debug); err != nil {
			return fmt.Errorf("failed to set up logger: %w", err)
		}
	}
	rt.log = zl.Sugar()
	return nil
}

func (rt *runtimeState) Writer() io.Writer {
	if rt.writer != nil {
		return rt.writer
	}
	return os.Stdout
}

func (rt *runtimeState) newCycle() *scheduler.Cycle {
	dispatcher := reminder.NewDispatcher(rt.newTransport(rt.cfg, rt.log), reminder.Options{
		MaxAttempts:  rt.cfg.Mail.MaxAttempts,
		RetryDelay:   rt.cfg.RetryDelay(),
		BrandingName: rt.cfg.Mail.SenderName,
	}, rt.log)
	loader := loan.NewFileLoader(rt.cfg.Data.File, rt.log)
	return scheduler.NewCycle(loader, dispatcher, rt.log, scheduler.WithClock(rt.now))
}

// SMTPConfig maps the mail settings onto the transport configuration. The
// login user is also the sender address.
func SMTPConfig(cfg config.Config) mail.SMTPConfig {
	return mail.SMTPConfig{
		Host:               cfg.Mail.Host,
		Port:               cfg.Mail.Port,
		Username:           cfg.Mail.User,
		Password:           cfg.Mail.Password,
		SenderAddress:      cfg.Mail.User,
		SenderName:         cfg.Mail.SenderName,
		InsecureSkipVerify: cfg.Mail.InsecureSkipVerify,
	}
}

func newSMTPTransport(cfg config.Config, log *zap.SugaredLogger) mail.Transport {
	return mail.NewSMTPTransport(SMTPConfig(cfg), log)
}
