package daemon

import (
	"strings"
)

const unitTemplate = `[Unit]
Description=rixcalc beamline calculation daemon
After=network-online.target redis.service rabbitmq-server.service
Wants=network-online.target

[Service]
Type=simple
ExecStart=/path/to/rixcalc daemon --config /path/to/config
ExecReload=/bin/kill -HUP $MAINPID
Restart=on-failure
RestartSec=5

[Install]
WantedBy=multi-user.target
`

// Unit renders the systemd unit that runs exePath with configPath.
func Unit(exePath, configPath string) string {
	return strings.NewReplacer(
		"/path/to/rixcalc", exePath,
		"/path/to/config", configPath,
	).Replace(unitTemplate)
}
