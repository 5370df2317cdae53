package daemon

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

var (
	unitPath  = "/etc/systemd/system/rixcalc.service"
	systemctl = "/bin/systemctl"
)

// Install writes the systemd unit for the current executable, then enables
// and starts it.
func Install(configPath string) error {
	// Get the path to the current executable
	exePath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get the path to the current executable: %w", err)
	}
	exePath, err = filepath.Abs(exePath)
	if err != nil {
		return fmt.Errorf("failed to get the absolute path to the current executable: %w", err)
	}

	err = os.Chmod(exePath, 0755)
	if err != nil {
		return fmt.Errorf("failed to chmod the current executable to 0755: %w", err)
	}

	logrus.Infof("current executable path: %s", exePath)

	if err := writeUnit(unitPath, Unit(exePath, configPath)); err != nil {
		return err
	}

	logrus.Infof("starting rixcalc")

	for _, args := range [][]string{
		{"daemon-reload"},
		{"enable", "--now", filepath.Base(unitPath)},
	} {
		if err := exec.Command(systemctl, args...).Run(); err != nil {
			return fmt.Errorf("failed to run systemctl %v: %w", args, err)
		}
	}

	return nil
}

func writeUnit(path, unit string) error {
	dir := filepath.Dir(path)
	logrus.Infof("writing systemd unit to %s", dir)

	// mkdir -p
	err := os.MkdirAll(dir, 0755)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	// warn if the file already exists
	_, err = os.Stat(path)
	if err == nil {
		logrus.Warnf("%s already exists, overwriting", path)
	}

	err = os.WriteFile(path, []byte(unit), 0644)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	return nil
}
