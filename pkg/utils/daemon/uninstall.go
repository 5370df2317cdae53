package daemon

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// Uninstall stops and disables the rixcalc unit and removes it.
func Uninstall() error {
	logrus.Infof("stopping rixcalc")

	err := exec.Command(systemctl, "disable", "--now", filepath.Base(unitPath)).Run()
	if err != nil {
		return fmt.Errorf("failed to disable %s: %w. Are you root?", unitPath, err)
	}

	logrus.Infof("removing systemd unit")

	if err := removeUnit(unitPath); err != nil {
		return err
	}

	return exec.Command(systemctl, "daemon-reload").Run()
}

func removeUnit(path string) error {
	// if the file doesn't exist, we don't need to remove it
	_, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}

	err = os.Remove(path)
	if err != nil {
		return fmt.Errorf("failed to remove %s: %w. Are you root?", path, err)
	}

	return nil
}
