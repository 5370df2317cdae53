package client

import (
	"encoding/json"
	"net/url"
	"strconv"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/pcdshub/rixcalc/pkg/config"
	"github.com/pcdshub/rixcalc/pkg/publish"
	"github.com/pcdshub/rixcalc/pkg/types"
)

func getJSON[T any](c *Client, path, what string) (T, error) {
	var v T
	ret, err := c.Get(path)
	if err != nil {
		return v, pkgerrors.Wrapf(err, "failed to get %s", what)
	}
	if err := json.Unmarshal([]byte(ret), &v); err != nil {
		return v, pkgerrors.Wrapf(err, "failed to unmarshal %s", what)
	}
	return v, nil
}

// GetOutputs returns every output computed so far.
func (c *Client) GetOutputs() ([]publish.Value, error) {
	return getJSON[[]publish.Value](c, "/outputs", "outputs")
}

// GetOutput returns one output by suffix or full name. It wraps ErrNotFound
// for unknown names and outputs that were never computed.
func (c *Client) GetOutput(name string) (*publish.Value, error) {
	v, err := getJSON[publish.Value](c, "/outputs/"+url.PathEscape(name), "output "+name)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (c *Client) GetInputs() ([]types.InputValue, error) {
	return getJSON[[]types.InputValue](c, "/inputs", "inputs")
}

func (c *Client) GetStatus() (*types.Status, error) {
	st, err := getJSON[types.Status](c, "/status", "status")
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func (c *Client) GetConfig() (*config.RawFileConfig, error) {
	conf, err := getJSON[config.RawFileConfig](c, "/config", "config")
	if err != nil {
		return nil, err
	}
	return &conf, nil
}

func (c *Client) GetVersion() (string, error) {
	return getJSON[string](c, "/version", "version")
}

// TriggerCycle runs a poll cycle now and returns what it produced.
func (c *Client) TriggerCycle() (*publish.Message, error) {
	ret, err := c.Post("/cycle", "")
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to run cycle")
	}
	var msg publish.Message
	if err := json.Unmarshal([]byte(ret), &msg); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal cycle")
	}
	return &msg, nil
}

// ReloadCalibration makes the daemon re-read its calibration tables.
func (c *Client) ReloadCalibration() ([]types.TableInfo, error) {
	ret, err := c.Post("/calibration/reload", "")
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to reload calibration")
	}
	var infos []types.TableInfo
	if err := json.Unmarshal([]byte(ret), &infos); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal calibration tables")
	}
	return infos, nil
}

func (c *Client) SetPollInterval(d time.Duration) (string, error) {
	ret, err := c.Put("/poll-interval", strconv.Quote(d.String()))
	if err != nil {
		return "", pkgerrors.Wrapf(err, "failed to set poll interval")
	}
	var msg string
	if err := json.Unmarshal([]byte(ret), &msg); err != nil {
		return ret, nil
	}
	return msg, nil
}
