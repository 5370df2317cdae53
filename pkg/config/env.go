package config

import "os"

// Environment variables overriding connection settings and secrets from the
// config file. They may also come from a .env file loaded by the CLI.
const (
	EnvRedisAddr     = "RIXCALC_REDIS_ADDR"
	EnvRedisPassword = "RIXCALC_REDIS_PASSWORD"
	EnvAMQPURL       = "RIXCALC_AMQP_URL"
	EnvS3Endpoint    = "RIXCALC_S3_ENDPOINT"
	EnvS3AccessKey   = "RIXCALC_S3_ACCESS_KEY"
	EnvS3SecretKey   = "RIXCALC_S3_SECRET_KEY"
)

func overrideFromEnv(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}
