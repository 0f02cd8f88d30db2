package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/flagx"
	"github.com/dmitrijs2005/gophauth/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON unmarshalling.
// It uses timex.Duration for interval fields, which allows parsing both
// string values such as "1s" and integer nanoseconds. Booleans are pointers
// so that an absent key can be told apart from false.
type JsonConfig struct {
	EndpointAddrGRPC             string         `json:"endpoint_addr_grpc"`
	EndpointAddrHTTP             string         `json:"endpoint_addr_http"`
	PublicURL                    string         `json:"public_url"`
	StorageBackend               string         `json:"storage_backend"`
	DatabaseDSN                  string         `json:"database_dsn"`
	OneTimeStore                 string         `json:"onetime_store"`
	RedisAddr                    string         `json:"redis_addr"`
	RedisPassword                string         `json:"redis_password"`
	RedisDB                      *int           `json:"redis_db"`
	SecretKey                    string         `json:"secret_key"`
	Issuer                       string         `json:"issuer"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration"`
	EmailConfirmationTTL         timex.Duration `json:"email_confirmation_ttl"`
	PasswordResetTTL             timex.Duration `json:"password_reset_ttl"`
	DefaultRole                  string         `json:"default_role"`
	RequireConfirmedEmail        *bool          `json:"require_confirmed_email"`
	MailSender                   string         `json:"mail_sender"`
	MailFrom                     string         `json:"mail_from"`
	MailQueue                    *bool          `json:"mail_queue"`
	MailTemplateDir              string         `json:"mail_template_dir"`
	MailOutboxFile               string         `json:"mail_outbox_file"`
	S3RootUser                   string         `json:"s3_root_user"`
	S3RootPassword               string         `json:"s3_root_password"`
	S3Bucket                     string         `json:"s3_bucket"`
	S3Region                     string         `json:"s3_region"`
	S3BaseEndpoint               string         `json:"s3_base_endpoint"`
	RetentionInterval            timex.Duration `json:"retention_interval"`
	SeedDefaults                 *bool          `json:"seed_defaults"`
	LogLevel                     string         `json:"log_level"`
	LogFormat                    string         `json:"log_format"`
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration != 0 {
		*dst = v.Duration
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

// parseJson loads configuration values from the JSON file named by the
// -c or -config argument into config. Keys missing from the file keep
// their current values. An unreadable file or invalid JSON panics.
func parseJson(config *Config, args []string) {
	jsonConfigFile := flagx.ConfigFileFromArgs(args)

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.PublicURL, c.PublicURL)
	setString(&config.StorageBackend, c.StorageBackend)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.OneTimeStore, c.OneTimeStore)
	setString(&config.RedisAddr, c.RedisAddr)
	setString(&config.RedisPassword, c.RedisPassword)
	if c.RedisDB != nil {
		config.RedisDB = *c.RedisDB
	}
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.Issuer, c.Issuer)
	setDuration(&config.AccessTokenValidityDuration, c.AccessTokenValidityDuration)
	setDuration(&config.RefreshTokenValidityDuration, c.RefreshTokenValidityDuration)
	setDuration(&config.EmailConfirmationTTL, c.EmailConfirmationTTL)
	setDuration(&config.PasswordResetTTL, c.PasswordResetTTL)
	setString(&config.DefaultRole, c.DefaultRole)
	setBool(&config.RequireConfirmedEmail, c.RequireConfirmedEmail)
	setString(&config.MailSender, c.MailSender)
	setString(&config.MailFrom, c.MailFrom)
	setBool(&config.MailQueue, c.MailQueue)
	setString(&config.MailTemplateDir, c.MailTemplateDir)
	setString(&config.MailOutboxFile, c.MailOutboxFile)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setDuration(&config.RetentionInterval, c.RetentionInterval)
	setBool(&config.SeedDefaults, c.SeedDefaults)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.LogFormat, c.LogFormat)
}
