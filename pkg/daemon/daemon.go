package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/pcdshub/rixcalc/pkg/beamline"
	"github.com/pcdshub/rixcalc/pkg/calib"
	"github.com/pcdshub/rixcalc/pkg/config"
	"github.com/pcdshub/rixcalc/pkg/events"
	"github.com/pcdshub/rixcalc/pkg/objstore"
	"github.com/pcdshub/rixcalc/pkg/publish"
	"github.com/pcdshub/rixcalc/pkg/rdb"
	"github.com/pcdshub/rixcalc/pkg/signals"
	"github.com/pcdshub/rixcalc/pkg/types"
)

var (
	conf      config.Config
	source    signals.Source
	sinks     []publish.Sink
	outputs   = publish.NewMemory()
	sseHub    = events.NewEventHub()
	scheduler *Scheduler

	// calcMu guards calc, tables and opener.
	calcMu   = &sync.RWMutex{}
	calc     *beamline.Calculator
	tables   []types.TableInfo
	opener   calib.Opener
	redisCli *redis.Client
	amqpConn *amqp.Connection

	// streamsDone is closed on shutdown to end open event streams.
	streamsDone chan struct{}
)

func setupRoutes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(ginLogger(logrus.StandardLogger()))
	router.GET("/outputs", getOutputs)
	router.GET("/outputs/:name", getOutput)
	router.GET("/inputs", getInputs)
	router.GET("/status", getStatus)
	router.GET("/config", getConfig)
	router.GET("/version", getVersion)
	router.GET("/events", getEvents)
	router.POST("/cycle", postCycle)
	router.POST("/calibration/reload", postCalibrationReload)
	router.PUT("/poll-interval", setPollInterval)

	return router
}

func currentCalculator() *beamline.Calculator {
	calcMu.RLock()
	defer calcMu.RUnlock()
	return calc
}

func currentTables() []types.TableInfo {
	calcMu.RLock()
	defer calcMu.RUnlock()
	return append([]types.TableInfo(nil), tables...)
}

func currentOpener() calib.Opener {
	calcMu.RLock()
	defer calcMu.RUnlock()
	return opener
}

func setOpener(o calib.Opener) {
	calcMu.Lock()
	defer calcMu.Unlock()
	opener = o
}

// newOpener returns an opener for the configured object storage. Local paths
// always work.
func newOpener() (calib.Opener, error) {
	s3 := conf.S3()
	return objstore.NewOpener(objstore.Config{
		Endpoint:  s3.Endpoint,
		AccessKey: s3.AccessKey,
		SecretKey: s3.SecretKey,
		Secure:    s3.Secure,
	})
}

// reloadCalibration loads the configured tables and swaps in a new
// calculator. On failure the current calculator stays in place.
func reloadCalibration(ctx context.Context) ([]types.TableInfo, error) {
	loc := conf.Calibration()
	set, err := calib.LoadSet(ctx, loc, currentOpener())
	if err != nil {
		return nil, err
	}

	c, err := beamline.New(set, conf.Constants())
	if err != nil {
		return nil, err
	}

	now := time.Now()
	infos := []types.TableInfo{
		{Name: set.MR1K1.Name, Location: loc.MR1K1, Rows: set.MR1K1.Len(), LoadedAt: now},
		{Name: set.MR3K2.Name, Location: loc.MR3K2, Rows: set.MR3K2.Len(), LoadedAt: now},
		{Name: set.MR4K2.Name, Location: loc.MR4K2, Rows: set.MR4K2.Len(), LoadedAt: now},
	}

	calcMu.Lock()
	calc = c
	tables = infos
	calcMu.Unlock()

	rows := make(map[string]int, len(infos))
	for _, t := range infos {
		rows[t.Name] = t.Rows
	}
	sseHub.Publish(events.CalibrationReloaded, events.CalibrationReloadedEvent{
		Tables: rows,
		Ts:     now.Unix(),
	})
	logrus.WithFields(logrus.Fields{
		"mr1k1": loc.MR1K1,
		"mr3k2": loc.MR3K2,
		"mr4k2": loc.MR4K2,
	}).Info("calibration loaded")

	return infos, nil
}

// pollSpec is the cron expression of the configured poll rate.
func pollSpec() string {
	if s := conf.PollSchedule(); s != "" {
		return s
	}
	return "@every " + conf.PollInterval().String()
}

func needsRedis() bool {
	if conf.Source() == config.SourceRedis {
		return true
	}
	for _, s := range conf.Sinks() {
		if s == config.SinkRedis {
			return true
		}
	}
	return false
}

// setupIO connects the input source and the output sinks.
func setupIO(ctx context.Context) error {
	if needsRedis() {
		rc := conf.Redis()
		var err error
		redisCli, err = rdb.NewClient(ctx, rdb.Config{
			Addr:     rc.Addr,
			Password: rc.Password,
			DB:       rc.DB,
		})
		if err != nil {
			return err
		}
	}

	switch conf.Source() {
	case config.SourceRedis:
		source = signals.NewRedis(redisCli, conf.Redis().InputKeyPrefix)
	case config.SourceMemory:
		source = signals.NewMemory()
	default:
		return fmt.Errorf("unknown source %q", conf.Source())
	}

	sinks = []publish.Sink{outputs, publish.NewHub(sseHub, conf.Prefix())}
	for _, name := range conf.Sinks() {
		switch name {
		case config.SinkRedis:
			rc := conf.Redis()
			sinks = append(sinks, publish.NewRedis(redisCli, rc.OutputKeyPrefix, conf.Prefix(), time.Duration(rc.OutputTTL)))
		case config.SinkAMQP:
			ac := conf.AMQP()
			if ac.URL == "" {
				return fmt.Errorf("amqp sink enabled but no url configured (set amqp.url or %s)", config.EnvAMQPURL)
			}
			var err error
			amqpConn, err = amqp.Dial(ac.URL)
			if err != nil {
				return fmt.Errorf("failed to connect to amqp broker: %w", err)
			}
			s, err := publish.NewAMQP(amqpConn, ac.Exchange, ac.RoutingKey, conf.Prefix())
			if err != nil {
				return err
			}
			sinks = append(sinks, s)
		default:
			return fmt.Errorf("unknown sink %q", name)
		}
	}

	names := make([]string, len(sinks))
	for i, s := range sinks {
		names[i] = s.Name()
	}
	logrus.WithFields(logrus.Fields{
		"source": conf.Source(),
		"sinks":  names,
	}).Info("io ready")

	return nil
}

func closeIO() {
	for _, s := range sinks {
		if err := s.Close(); err != nil {
			logrus.Errorf("failed to close sink %s: %v", s.Name(), err)
		}
	}
	if source != nil {
		if err := source.Close(); err != nil {
			logrus.Errorf("failed to close source: %v", err)
		}
	}
	if amqpConn != nil {
		if err := amqpConn.Close(); err != nil {
			logrus.Errorf("failed to close amqp connection: %v", err)
		}
	}
	if redisCli != nil {
		if err := redisCli.Close(); err != nil {
			logrus.Errorf("failed to close redis client: %v", err)
		}
	}
}

// reload re-reads the config file and the calibration tables, and applies
// the poll schedule. Source and sink changes need a restart.
func reload() {
	err := conf.Load()
	if err != nil {
		logrus.Errorf("failed to reload config: %v", err)
		return
	}
	logrus.WithFields(conf.LogrusFields()).Infof("config reloaded")

	o, err := newOpener()
	if err != nil {
		logrus.Errorf("failed to set up calibration storage: %v", err)
	} else {
		setOpener(o)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if _, err := reloadCalibration(ctx); err != nil {
		logrus.Errorf("failed to reload calibration, keeping the previous tables: %v", err)
	}

	applySchedule()
}

func applySchedule() {
	spec := pollSpec()
	if err := scheduler.Schedule(spec); err != nil {
		logrus.Errorf("failed to apply poll schedule: %v", err)
		return
	}
	setPollPeriod(spec)
	logrus.Infof("poll schedule set to %q", spec)
}

func Run(configPath string, unixSocketPath string, allowNonRoot bool) error {
	router := setupRoutes()

	var err error
	conf, err = config.NewFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to parse config during startup: %w", err)
	}
	logrus.WithFields(conf.LogrusFields()).Infof("config loaded")

	o, err := newOpener()
	if err != nil {
		return err
	}
	setOpener(o)

	startupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := reloadCalibration(startupCtx); err != nil {
		return fmt.Errorf("failed to load calibration: %w", err)
	}

	if err := setupIO(startupCtx); err != nil {
		closeIO()
		return err
	}
	defer closeIO()

	scheduler = NewScheduler(scheduledCycle, func() error {
		if currentCalculator() == nil {
			return errCalibrationNotLoaded
		}
		return nil
	}, func(data any) {
		logrus.Errorf("poll cycle: %v", data)
	})
	applySchedule()

	// Receive SIGHUP to reload config and calibration
	go func() {
		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, syscall.SIGHUP)
		for range sigc {
			reload()
		}
	}()

	srv := &http.Server{
		Handler: router,
	}
	streamsDone = make(chan struct{})
	srv.RegisterOnShutdown(func() { close(streamsDone) })

	// Create the socket to listen on:
	l, err := net.Listen("unix", unixSocketPath)
	if err != nil {
		return err
	}

	if conf.AllowNonRootAccess() || allowNonRoot {
		logrus.Infof("non-root access is allowed, changing permissions of %s to 0777", unixSocketPath)
		err = os.Chmod(unixSocketPath, 0777)
		if err != nil {
			_ = l.Close()
			return err
		}
	}

	// Serve HTTP on unix socket
	go func() {
		logrus.Infof("http server listening on %s", l.Addr().String())
		if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatal(err)
		}
	}()

	logrus.Debugln("poll loop starts")
	scheduler.Start()

	// Handle common process-killing signals, so we can gracefully shut down:
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	// Wait for a SIGINT or SIGTERM:
	sig := <-sigc
	logrus.Infof("caught signal \"%s\": shutting down.", sig)

	logrus.Info("stopping poll loop")
	scheduler.Stop()

	logrus.Info("shutting down http server")
	ctx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	err = srv.Shutdown(ctx)
	if err != nil {
		logrus.Errorf("failed to shutdown http server: %v", err)
	}
	cancelShutdown()

	// Let an in-flight cycle finish before closing its sinks.
	cycleLock.Lock()
	defer cycleLock.Unlock()

	logrus.Info("exiting")
	return nil
}
