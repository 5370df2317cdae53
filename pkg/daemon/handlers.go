package daemon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/pcdshub/rixcalc/pkg/config"
	"github.com/pcdshub/rixcalc/pkg/publish"
	"github.com/pcdshub/rixcalc/pkg/pv"
	"github.com/pcdshub/rixcalc/pkg/types"
	"github.com/pcdshub/rixcalc/pkg/version"
)

// minPollInterval is the finest rate the cron schedule can express.
const minPollInterval = time.Second

func getConfig(c *gin.Context) {
	fc, err := config.NewRawFileConfigFromConfig(conf)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, err)
		return
	}
	c.IndentedJSON(http.StatusOK, fc)
}

func getOutputs(c *gin.Context) {
	prefix := conf.Prefix()
	values := outputs.Values()
	ret := make([]publish.Value, 0, len(values))
	for _, slot := range pv.Slots {
		v, ok := values[slot.Name]
		if !ok {
			continue
		}
		ret = append(ret, publish.NewValue(prefix, slot, v))
	}
	c.IndentedJSON(http.StatusOK, ret)
}

// getOutput accepts either the output suffix or the full prefixed name.
func getOutput(c *gin.Context) {
	prefix := conf.Prefix()
	name := pv.Output(strings.TrimPrefix(c.Param("name"), prefix))

	slot, ok := pv.LookupSlot(name)
	if !ok {
		abortWithError(c, http.StatusNotFound, fmt.Errorf("unknown output %q", c.Param("name")))
		return
	}

	v, ok := outputs.Value(name)
	if !ok {
		abortWithError(c, http.StatusNotFound, fmt.Errorf("output %s has not been computed yet", name))
		return
	}

	c.IndentedJSON(http.StatusOK, publish.NewValue(prefix, slot, v))
}

func getInputs(c *gin.Context) {
	snap := getLastSnapshot()
	ret := make([]types.InputValue, 0, len(pv.Inputs))
	for _, name := range pv.Inputs {
		s := snap[name]
		ret = append(ret, types.InputValue{
			Name:     name,
			Value:    s.Value,
			Present:  s.Present,
			Received: s.Received,
		})
	}
	c.IndentedJSON(http.StatusOK, ret)
}

func getStatus(c *gin.Context) {
	st := types.Status{
		Version:     version.Version,
		Prefix:      conf.Prefix(),
		Source:      conf.Source(),
		LastCycle:   cycleRecorder.GetLastRecord(),
		Cycles:      cycleCount.Load(),
		Calibration: currentTables(),
		Subscribers: sseHub.Subscribers(),
		Dropped:     sseHub.Dropped(),
	}
	st.MissedCycles, _ = missedCycles()
	for _, s := range sinks {
		st.Sinks = append(st.Sinks, s.Name())
	}
	if scheduler != nil {
		st.Schedule = scheduler.Spec()
		st.NextCycle, st.Scheduled = scheduler.Status()
	}
	if latest := outputs.Latest(); latest != nil {
		st.Groups = latest.Reports
	}

	c.IndentedJSON(http.StatusOK, st)
}

func getVersion(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, version.Version)
}

// getEvents streams hub events as server-sent events until the client goes
// away or the daemon shuts down.
func getEvents(c *gin.Context) {
	ch := sseHub.Subscribe()
	defer sseHub.Unsubscribe(ch)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	// Send headers now so clients see the stream before the first event.
	c.Status(http.StatusOK)
	c.Writer.WriteHeaderNow()
	c.Writer.Flush()

	ctx := c.Request.Context()
	c.Stream(func(_ io.Writer) bool {
		select {
		case ev, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent(ev.Name, string(ev.Data))
			return true
		case <-ctx.Done():
			return false
		case <-streamsDone:
			return false
		}
	})
}

func postCycle(c *gin.Context) {
	res, err := forcedCycle()
	if err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, errCalibrationNotLoaded) {
			code = http.StatusServiceUnavailable
		}
		logrus.Errorf("forced cycle failed: %v", err)
		abortWithError(c, code, err)
		return
	}

	c.IndentedJSON(http.StatusOK, publish.NewMessage(conf.Prefix(), res))
}

func postCalibrationReload(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	infos, err := reloadCalibration(ctx)
	if err != nil {
		logrus.Errorf("calibration reload failed, keeping the previous tables: %v", err)
		abortWithError(c, http.StatusInternalServerError, err)
		return
	}

	c.IndentedJSON(http.StatusCreated, infos)
}

func setPollInterval(c *gin.Context) {
	var s string
	if err := c.BindJSON(&s); err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}

	if d < minPollInterval {
		abortWithError(c, http.StatusBadRequest, fmt.Errorf("poll interval must be at least %s, got %s", minPollInterval, d))
		return
	}

	conf.SetPollInterval(d)
	if err := conf.Save(); err != nil {
		logrus.Errorf("saveConfig failed: %v", err)
		abortWithError(c, http.StatusInternalServerError, err)
		return
	}

	if scheduler != nil {
		applySchedule()
	} else {
		setPollPeriod(pollSpec())
	}

	logrus.Infof("set poll interval to %s", d)

	c.IndentedJSON(http.StatusCreated, fmt.Sprintf("poll interval set to %s", d))
}
