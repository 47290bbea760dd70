package localization

// Message codes shared by the host and its modules.
const (
	CodeCommandRegisterError = "CMD_REG_ERR"
	CodePermissionDenied     = "PERM_ERR"
	CodeNoConsole            = "NO_CONSOLE"
	CodeWrongArgCount        = "NUM_ARGS_ERR"
	CodeUsage                = "USAGE"
	CodeNoCommand            = "NO_CMD"
	CodeNoCommandSuggest     = "NO_CMD_SUGGEST"
	CodeNotImplemented       = "NO_IMPLEMENT"
	CodeDatabaseInitError    = "DB_INIT_ERR"
	CodeDatabaseOffError     = "DB_OFF_ERR"
	CodeBadConfigSetting     = "BAD_CFG_SET"
	CodeDatabaseDebug        = "DB_DEBUG_ACTIVE"
	CodeRateLimited          = "RATE_LIMITED"
	CodeCommandFailed        = "CMD_FAILED"
	CodePluginDisabled       = "PLUGIN_DISABLED"
)

// RequiredCodes must be defined by the base locale.
var RequiredCodes = []string{
	CodeCommandRegisterError,
	CodePermissionDenied,
	CodeNoConsole,
	CodeWrongArgCount,
	CodeUsage,
	CodeNoCommand,
	CodeNoCommandSuggest,
	CodeNotImplemented,
	CodeDatabaseInitError,
	CodeDatabaseOffError,
	CodeBadConfigSetting,
	CodeDatabaseDebug,
	CodeRateLimited,
	CodeCommandFailed,
	CodePluginDisabled,
}
