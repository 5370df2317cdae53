package config

import (
	"encoding/json"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/pcdshub/rixcalc/pkg/beamline"
	"github.com/pcdshub/rixcalc/pkg/calib"
	"github.com/pcdshub/rixcalc/pkg/optics"
	"github.com/pcdshub/rixcalc/pkg/utils/ptr"
)

var (
	defaultFileConfig = &RawFileConfig{
		Prefix:       ptr.To("RIX:CALC:01:"),
		PollInterval: ptr.To(Duration(time.Second)),
		PollSchedule: ptr.To(""),
		Calibration: &calib.Locations{
			MR1K1: "/etc/rixcalc/MR1K1.txt",
			MR3K2: "/etc/rixcalc/MR3K2.txt",
			MR4K2: "/etc/rixcalc/MR4K2.txt",
		},
		Source: ptr.To(SourceRedis),
		Sinks:  []string{},
		Redis: &RedisConfig{
			Addr:      "localhost:6379",
			OutputTTL: Duration(10 * time.Second),
		},
		AMQP: &AMQPConfig{
			Exchange:   "rixcalc",
			RoutingKey: "rixcalc.cycle",
		},
		S3:                 &S3Config{},
		Mono:               ptr.To(optics.DefaultMonoConstants()),
		Dispersion:         ptr.To(optics.DefaultDispersionConstants()),
		KBOffsets:          ptr.To(optics.DefaultKBOffsets()),
		AllowNonRootAccess: ptr.To(false),
	}
)

var _ Config = &File{}

type File struct {
	c        *RawFileConfig
	mu       *sync.RWMutex
	filepath string
}

func NewFile(configPath string) (*File, error) {
	f := &File{
		filepath: configPath,
		mu:       &sync.RWMutex{},
	}
	err := f.Load()
	if err != nil {
		return nil, err
	}

	return f, nil
}

func NewFileFromConfig(c *RawFileConfig, configPath string) *File {
	if c == nil {
		c = &RawFileConfig{}
	}

	f := &File{
		c:        c,
		mu:       &sync.RWMutex{},
		filepath: configPath,
	}

	return f
}

type RawFileConfig struct {
	Prefix             *string                     `json:"prefix,omitempty"`
	PollInterval       *Duration                   `json:"pollInterval,omitempty"`
	PollSchedule       *string                     `json:"pollSchedule,omitempty"`
	Calibration        *calib.Locations            `json:"calibration,omitempty"`
	Source             *string                     `json:"source,omitempty"`
	Sinks              []string                    `json:"sinks,omitempty"`
	Redis              *RedisConfig                `json:"redis,omitempty"`
	AMQP               *AMQPConfig                 `json:"amqp,omitempty"`
	S3                 *S3Config                   `json:"s3,omitempty"`
	Mono               *optics.MonoConstants       `json:"mono,omitempty"`
	Dispersion         *optics.DispersionConstants `json:"dispersion,omitempty"`
	KBOffsets          *optics.KBOffsets           `json:"kbOffsets,omitempty"`
	AllowNonRootAccess *bool                       `json:"allowNonRootAccess,omitempty"`
}

// newSeededRawFileConfig returns a config whose nested objects are
// pre-filled with defaults, so a partial object in a file only overrides the
// fields it names.
func newSeededRawFileConfig() *RawFileConfig {
	d := defaultFileConfig
	return &RawFileConfig{
		Calibration: ptr.To(*d.Calibration),
		Redis:       ptr.To(*d.Redis),
		AMQP:        ptr.To(*d.AMQP),
		S3:          ptr.To(*d.S3),
		Mono:        ptr.To(*d.Mono),
		Dispersion:  ptr.To(*d.Dispersion),
		KBOffsets:   ptr.To(*d.KBOffsets),
	}
}

func NewRawFileConfigFromConfig(c Config) (*RawFileConfig, error) {
	if c == nil {
		return nil, pkgerrors.New("config is nil")
	}

	constants := c.Constants()
	rawConfig := &RawFileConfig{
		Prefix:             ptr.To(c.Prefix()),
		PollInterval:       ptr.To(Duration(c.PollInterval())),
		PollSchedule:       ptr.To(c.PollSchedule()),
		Calibration:        ptr.To(c.Calibration()),
		Source:             ptr.To(c.Source()),
		Sinks:              c.Sinks(),
		Redis:              ptr.To(c.Redis()),
		AMQP:               ptr.To(c.AMQP()),
		S3:                 ptr.To(c.S3()),
		Mono:               ptr.To(constants.Mono),
		Dispersion:         ptr.To(constants.Dispersion),
		KBOffsets:          ptr.To(constants.KBOffsets),
		AllowNonRootAccess: ptr.To(c.AllowNonRootAccess()),
	}

	// Secrets never leave the daemon.
	rawConfig.Redis.Password = ""
	rawConfig.AMQP.URL = redactURL(rawConfig.AMQP.URL)
	rawConfig.S3.AccessKey = ""
	rawConfig.S3.SecretKey = ""

	return rawConfig, nil
}

func redactURL(u string) string {
	at := strings.LastIndex(u, "@")
	scheme := strings.Index(u, "://")
	if at < 0 || scheme < 0 || at < scheme {
		return u
	}
	return u[:scheme+3] + "***" + u[at:]
}

func (f *File) Prefix() string {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	return ptr.Deref(f.c.Prefix, *defaultFileConfig.Prefix)
}

func (f *File) PollInterval() time.Duration {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	d := ptr.Deref(f.c.PollInterval, *defaultFileConfig.PollInterval)
	if d <= 0 {
		d = *defaultFileConfig.PollInterval
	}
	return time.Duration(d)
}

func (f *File) PollSchedule() string {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	return strings.TrimSpace(ptr.Deref(f.c.PollSchedule, *defaultFileConfig.PollSchedule))
}

func (f *File) Calibration() calib.Locations {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	return ptr.Deref(f.c.Calibration, *defaultFileConfig.Calibration)
}

func (f *File) Constants() beamline.Constants {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	return beamline.Constants{
		Mono:       ptr.Deref(f.c.Mono, *defaultFileConfig.Mono),
		Dispersion: ptr.Deref(f.c.Dispersion, *defaultFileConfig.Dispersion),
		KBOffsets:  ptr.Deref(f.c.KBOffsets, *defaultFileConfig.KBOffsets),
	}
}

func (f *File) Source() string {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	return ptr.Deref(f.c.Source, *defaultFileConfig.Source)
}

func (f *File) Sinks() []string {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.c.Sinks == nil {
		return append([]string{}, defaultFileConfig.Sinks...)
	}
	return append([]string{}, f.c.Sinks...)
}

func (f *File) Redis() RedisConfig {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	rc := ptr.Deref(f.c.Redis, *defaultFileConfig.Redis)
	overrideFromEnv(&rc.Addr, EnvRedisAddr)
	overrideFromEnv(&rc.Password, EnvRedisPassword)
	return rc
}

func (f *File) AMQP() AMQPConfig {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	ac := ptr.Deref(f.c.AMQP, *defaultFileConfig.AMQP)
	overrideFromEnv(&ac.URL, EnvAMQPURL)
	return ac
}

func (f *File) S3() S3Config {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	sc := ptr.Deref(f.c.S3, *defaultFileConfig.S3)
	overrideFromEnv(&sc.Endpoint, EnvS3Endpoint)
	overrideFromEnv(&sc.AccessKey, EnvS3AccessKey)
	overrideFromEnv(&sc.SecretKey, EnvS3SecretKey)
	return sc
}

func (f *File) AllowNonRootAccess() bool {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	return ptr.Deref(f.c.AllowNonRootAccess, *defaultFileConfig.AllowNonRootAccess)
}

func (f *File) SetPollInterval(d time.Duration) {
	if f.c == nil {
		panic("config is nil")
	}

	if d <= 0 {
		panic("poll interval must be positive")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.c.PollInterval = ptr.To(Duration(d))
	// An explicit interval replaces any cron schedule.
	f.c.PollSchedule = ptr.To("")
}

func (f *File) SetAllowNonRootAccess(b bool) {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.c.AllowNonRootAccess = &b
}

func (f *File) Load() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	fp, err := os.Open(f.filepath)
	if err != nil {
		if os.IsNotExist(err) {
			// If the file does not exist, return the empty config.
			// Do not make f.c a nil.
			f.c = &RawFileConfig{}
			return nil
		}
		return pkgerrors.Wrapf(err, "failed to open file %s", f.filepath)
	}
	defer func(fp *os.File) {
		err := fp.Close()
		if err != nil {
			logrus.Warnf("failed to close file %s", f.filepath)
		}
	}(fp)

	// Since we want to tell if the file is empty, using json.Decoder will
	// not work.
	b, err := io.ReadAll(fp)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to read file %s", f.filepath)
	}

	if strings.TrimSpace(string(b)) == "" {
		// If the file is empty, return the empty config.
		// Do not make f.c a nil.
		f.c = &RawFileConfig{}
		return nil
	}

	conf := newSeededRawFileConfig()
	err = json.Unmarshal(b, conf)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to unmarshal config from file %s", f.filepath)
	}
	f.c = conf

	return nil
}

func (f *File) Save() error {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.c == nil {
		return pkgerrors.New("config is nil")
	}

	fp, err := os.OpenFile(f.filepath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to open file %s", f.filepath)
	}
	defer func(fp *os.File) {
		err := fp.Close()
		if err != nil {
			logrus.Warnf("failed to close file %s", f.filepath)
		}
	}(fp)

	enc := json.NewEncoder(fp)
	enc.SetIndent("", "  ")
	err = enc.Encode(f.c)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to encode config to file %s", f.filepath)
	}

	return nil
}

func (f *File) LogrusFields() logrus.Fields {
	if f.c == nil {
		panic("config is nil")
	}

	loc := f.Calibration()
	return logrus.Fields{
		"prefix":             f.Prefix(),
		"pollInterval":       f.PollInterval().String(),
		"pollSchedule":       f.PollSchedule(),
		"source":             f.Source(),
		"sinks":              f.Sinks(),
		"calibrationMR1K1":   loc.MR1K1,
		"calibrationMR3K2":   loc.MR3K2,
		"calibrationMR4K2":   loc.MR4K2,
		"allowNonRootAccess": f.AllowNonRootAccess(),
	}
}
