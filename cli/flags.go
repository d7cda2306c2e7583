package cli

import "github.com/urfave/cli/v3"

const (
	LoggingCategory = "LOGGING AND DEBUGGING"
	AuditCategory   = "AUDIT"
	GeneralCategory = "GENERAL"
)

var flags = []cli.Flag{
	// general
	addrFlag,
	versionFlag,
	// logging
	jsonFlag,
	debugFlag,
	logLevelFlag,
	logServiceFlag,
	logNoVersionFlag,
	// audit
	auditLogFlag,
	auditDisabledFlag,
}

var (
	// General
	addrFlag = &cli.StringFlag{
		Name:     "addr",
		Sources:  cli.EnvVars("FEE_MANAGER_LISTEN_ADDR"),
		Value:    "localhost:18660",
		Usage:    "listen-address for the fee-manager server",
		Category: GeneralCategory,
	}
	versionFlag = &cli.BoolFlag{
		Name:     "version",
		Usage:    "print version",
		Category: GeneralCategory,
	}
	// Logging and debugging
	jsonFlag = &cli.BoolFlag{
		Name:     "json",
		Sources:  cli.EnvVars("LOG_JSON"),
		Usage:    "log in JSON format instead of text",
		Category: LoggingCategory,
	}
	debugFlag = &cli.BoolFlag{
		Name:     "debug",
		Sources:  cli.EnvVars("DEBUG"),
		Usage:    "shorthand for '--loglevel debug'",
		Category: LoggingCategory,
	}
	logLevelFlag = &cli.StringFlag{
		Name:     "loglevel",
		Sources:  cli.EnvVars("LOG_LEVEL"),
		Value:    "info",
		Usage:    "minimum loglevel: trace, debug, info, warn/warning, error, fatal, panic",
		Category: LoggingCategory,
	}
	logServiceFlag = &cli.StringFlag{
		Name:     "log-service",
		Sources:  cli.EnvVars("LOG_SERVICE_TAG"),
		Value:    "",
		Usage:    "add a 'service=...' tag to all log messages",
		Category: LoggingCategory,
	}
	logNoVersionFlag = &cli.BoolFlag{
		Name:     "log-no-version",
		Sources:  cli.EnvVars("DISABLE_LOG_VERSION"),
		Usage:    "disables adding the version to every log entry",
		Category: LoggingCategory,
	}
	// Audit
	auditLogFlag = &cli.StringFlag{
		Name:     "audit-log",
		Sources:  cli.EnvVars("FEE_MANAGER_AUDIT_LOG"),
		Value:    "",
		Usage:    "file to append admin audit events to (default: stdout)",
		Category: AuditCategory,
	}
	auditDisabledFlag = &cli.BoolFlag{
		Name:     "audit-disabled",
		Sources:  cli.EnvVars("FEE_MANAGER_AUDIT_DISABLED"),
		Usage:    "disable the admin audit trail",
		Category: AuditCategory,
	}
)
