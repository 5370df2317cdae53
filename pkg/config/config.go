package config

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pcdshub/rixcalc/pkg/beamline"
	"github.com/pcdshub/rixcalc/pkg/calib"
)

// Source kinds.
const (
	SourceRedis  = "redis"
	SourceMemory = "memory"
)

// Sink kinds. The in-memory sink backing the API is always enabled.
const (
	SinkRedis = "redis"
	SinkAMQP  = "amqp"
)

type Config interface {
	// Prefix is prepended to every output name.
	Prefix() string
	PollInterval() time.Duration
	// PollSchedule is a cron spec overriding PollInterval when not empty.
	PollSchedule() string
	Calibration() calib.Locations
	Constants() beamline.Constants
	Source() string
	Sinks() []string
	Redis() RedisConfig
	AMQP() AMQPConfig
	S3() S3Config
	AllowNonRootAccess() bool

	SetPollInterval(time.Duration)
	SetAllowNonRootAccess(bool)

	LogrusFields() logrus.Fields

	// Load reads the configuration from the source.
	Load() error
	// Save saves the configuration to the source.
	Save() error
}

type RedisConfig struct {
	Addr     string `json:"addr,omitempty"`
	Password string `json:"password,omitempty"`
	DB       int    `json:"db,omitempty"`
	// InputKeyPrefix is prepended to input names when reading.
	InputKeyPrefix string `json:"inputKeyPrefix,omitempty"`
	// OutputKeyPrefix is prepended to full output names when writing.
	OutputKeyPrefix string `json:"outputKeyPrefix,omitempty"`
	// OutputTTL is how long published outputs stay readable.
	OutputTTL Duration `json:"outputTTL,omitempty"`
}

type AMQPConfig struct {
	URL        string `json:"url,omitempty"`
	Exchange   string `json:"exchange,omitempty"`
	RoutingKey string `json:"routingKey,omitempty"`
}

type S3Config struct {
	Endpoint  string `json:"endpoint,omitempty"`
	AccessKey string `json:"accessKey,omitempty"`
	SecretKey string `json:"secretKey,omitempty"`
	Secure    bool   `json:"secure,omitempty"`
}
