package config

// EnvPrefix is passed to envconfig; every field carries its full name in the tag.
const EnvPrefix = "ENROLL"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	RevokePolicyAll     = "all"
	RevokePolicyMatched = "matched"
)

const (
	EnvAppEnv   = "ENROLL_APP_ENV"
	EnvPort     = "ENROLL_APP_PORT"
	EnvLogLevel = "ENROLL_LOG_LEVEL"

	EnvDBDSN  = "ENROLL_DB_DSN"
	EnvDBHost = "ENROLL_DB_HOST"
	EnvDBUser = "ENROLL_DB_USER"
	EnvDBName = "ENROLL_DB_NAME"

	EnvRedisURL = "ENROLL_REDIS_URL"

	EnvAdminPassword = "ENROLL_ADMIN_PASSWORD"

	EnvRobokassaLogin     = "ENROLL_ROBOKASSA_MERCHANT_LOGIN"
	EnvRobokassaPassword1 = "ENROLL_ROBOKASSA_PASSWORD1"
	EnvRobokassaPassword2 = "ENROLL_ROBOKASSA_PASSWORD2"
	EnvRobokassaTestMode  = "ENROLL_ROBOKASSA_TEST_MODE"

	EnvTelegramBotToken     = "ENROLL_TELEGRAM_BOT_TOKEN"
	EnvTelegramGroupID      = "ENROLL_TELEGRAM_GROUP_ID"
	EnvTelegramRevokePolicy = "ENROLL_TELEGRAM_REVOKE_POLICY"

	EnvCronInterval = "ENROLL_CRON_INTERVAL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
