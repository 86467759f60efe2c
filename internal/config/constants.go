package config

import (
	"time"

	"cdrcli/pkg/contracts"
)

// Application constants
const (
	AppName    = "cdrprocess"
	AppVersion = contracts.Version

	// EnvPrefix namespaces every environment override, e.g. CDR_PIPELINE_BATCH_SIZE
	EnvPrefix = "CDR"

	// Pipeline defaults
	DefaultBatchSize       = 1000
	DefaultWindowStart     = "09:30:00"
	DefaultWindowEnd       = "18:00:00"
	DefaultSuccessResult   = "Success"
	DefaultMinSenderLength = 10

	// Report defaults
	DefaultReportLabel    = "미통화리스트"
	DefaultMaxColumnWidth = 50

	// Table defaults
	DefaultLedgerTable = "CDR"
	DefaultMemberTable = "Member"
	DefaultStaffTable  = "Staff"

	// Settings bootstrap defaults
	DefaultSettingsCache = "DB/Config_DB.db"
	DefaultProfile       = "HD_MSSQL"
	DefaultFetchTimeout  = 60 * time.Second

	// Logging defaults
	DefaultLogLevel    = "info"
	DefaultLogFormat   = "json"
	DefaultLogOutput   = "console"
	DefaultLogFilePath = "logs/cdrprocess.log"

	// WindowLayout is the clock format of the business hours window
	WindowLayout = "15:04:05"
)
