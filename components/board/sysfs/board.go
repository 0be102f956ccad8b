// Package sysfs implements a board for Linux PWM chips exposed under /sys/class/pwm.
// Channels are named "<chip>/<line>", for example "pwmchip0/1".
package sysfs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/diffdrive/components/board"
	"go.viam.com/diffdrive/logging"
)

// Model is the name the sysfs board registers under.
const Model = "sysfs"

// DefaultRoot is where the kernel exposes PWM chips.
const DefaultRoot = "/sys/class/pwm"

// A Config describes the configuration of a sysfs board.
type Config struct {
	Root string `json:"root,omitempty"`
}

func init() {
	board.Register(Model, func(ctx context.Context, conf board.Config, logger logging.Logger) (board.Board, error) {
		attrs, err := board.NativeAttributes[Config](conf)
		if err != nil {
			return nil, err
		}
		return NewBoard(*attrs, logger)
	})
}

// A Board exports PWM lines on demand and unexports them on Close.
type Board struct {
	root   string
	logger logging.Logger

	mu      sync.Mutex
	devices map[string]*pwmDevice
}

// NewBoard returns a board rooted at conf.Root, or DefaultRoot if unset.
func NewBoard(conf Config, logger logging.Logger) (*Board, error) {
	root := conf.Root
	if root == "" {
		root = DefaultRoot
	}
	if _, err := os.Stat(root); err != nil {
		return nil, errors.Wrapf(err, "no pwm sysfs at %s", root)
	}
	return &Board{root: root, logger: logger, devices: map[string]*pwmDevice{}}, nil
}

func parseChannelName(name string) (string, int, error) {
	chip, lineStr, ok := strings.Cut(name, "/")
	if !ok || chip == "" {
		return "", 0, errors.Errorf("expected <chip>/<line>, got %q", name)
	}
	line, err := strconv.Atoi(lineStr)
	if err != nil || line < 0 {
		return "", 0, errors.Errorf("invalid pwm line in %q", name)
	}
	return chip, line, nil
}

// PWMChannelByName exports and returns the named line.
func (b *Board) PWMChannelByName(name string) (board.PWMChannel, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if dev, ok := b.devices[name]; ok {
		return dev, nil
	}
	chip, line, err := parseChannelName(name)
	if err != nil {
		return nil, board.NewChannelUnavailableError(name, err)
	}
	dev := newPwmDevice(filepath.Join(b.root, chip), line)
	if err := dev.export(); err != nil {
		return nil, board.NewChannelUnavailableError(name, err)
	}
	b.devices[name] = dev
	b.logger.Debugw("exported pwm line", "name", name, "path", dev.linePath)
	return dev, nil
}

// Close disables and unexports every line the board exported.
func (b *Board) Close(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var errs error
	for name, dev := range b.devices {
		errs = multierr.Combine(errs, errors.Wrapf(dev.close(), "closing %s", name))
	}
	b.devices = map[string]*pwmDevice{}
	return errs
}

type pwmDevice struct {
	// These values are immutable
	chipPath string
	line     int
	linePath string

	mu sync.Mutex

	// These values are mutable
	periodNs         uint64
	activeDurationNs uint64
	duty             uint16
	isExported       bool
	isEnabled        bool
}

func newPwmDevice(chipPath string, line int) *pwmDevice {
	return &pwmDevice{
		chipPath: chipPath,
		line:     line,
		linePath: filepath.Join(chipPath, fmt.Sprintf("pwm%d", line)),
	}
}

func writeValue(path string, value uint64) error {
	// The permissions only matter if the file is missing, which means the line is not exported.
	return os.WriteFile(path, []byte(strconv.FormatUint(value, 10)), 0o660)
}

func (pwm *pwmDevice) chipFile(filename string) string {
	return filepath.Join(pwm.chipPath, filename)
}

func (pwm *pwmDevice) lineFile(filename string) string {
	return filepath.Join(pwm.linePath, filename)
}

func (pwm *pwmDevice) export() error {
	pwm.mu.Lock()
	defer pwm.mu.Unlock()

	if pwm.isExported {
		return nil
	}
	// a line exported by someone else is reused as is
	if _, err := os.Stat(pwm.linePath); err != nil {
		if err := writeValue(pwm.chipFile("export"), uint64(pwm.line)); err != nil {
			return err
		}
		if _, err := os.Stat(pwm.linePath); err != nil {
			return errors.Errorf("line %d of %s did not appear after export", pwm.line, pwm.chipPath)
		}
	}
	pwm.isExported = true
	return nil
}

// expects to already have lock acquired.
func (pwm *pwmDevice) enable() error {
	if pwm.isEnabled {
		return nil
	}
	if err := writeValue(pwm.lineFile("enable"), 1); err != nil {
		return err
	}
	pwm.isEnabled = true
	return nil
}

func (pwm *pwmDevice) activeDuration(periodNs uint64) uint64 {
	return periodNs * uint64(pwm.duty) / board.MaxDuty
}

// expects to already have lock acquired.
func (pwm *pwmDevice) setPeriod(periodNs uint64) error {
	activeDurationNs := pwm.activeDuration(periodNs)

	// Sysfs refuses an active duration longer than the period, so shrink whichever must go first.
	if periodNs < pwm.activeDurationNs {
		if err := writeValue(pwm.lineFile("duty_cycle"), activeDurationNs); err != nil {
			return err
		}
		pwm.activeDurationNs = activeDurationNs
		if err := writeValue(pwm.lineFile("period"), periodNs); err != nil {
			return err
		}
		pwm.periodNs = periodNs
	} else {
		if err := writeValue(pwm.lineFile("period"), periodNs); err != nil {
			return err
		}
		pwm.periodNs = periodNs
		if err := writeValue(pwm.lineFile("duty_cycle"), activeDurationNs); err != nil {
			return err
		}
		pwm.activeDurationNs = activeDurationNs
	}
	return pwm.enable()
}

func (pwm *pwmDevice) SetPWMFreq(ctx context.Context, freqHz uint) error {
	if freqHz == 0 {
		return errors.New("pwm frequency must be positive")
	}
	pwm.mu.Lock()
	defer pwm.mu.Unlock()

	return pwm.setPeriod(uint64(1e9) / uint64(freqHz))
}

func (pwm *pwmDevice) SetDuty(ctx context.Context, duty uint16) error {
	pwm.mu.Lock()
	defer pwm.mu.Unlock()

	pwm.duty = duty
	if pwm.periodNs == 0 {
		return pwm.setPeriod(uint64(1e9) / uint64(board.DefaultPWMFreq))
	}
	activeDurationNs := pwm.activeDuration(pwm.periodNs)
	if err := writeValue(pwm.lineFile("duty_cycle"), activeDurationNs); err != nil {
		return err
	}
	pwm.activeDurationNs = activeDurationNs
	return pwm.enable()
}

func (pwm *pwmDevice) close() error {
	pwm.mu.Lock()
	defer pwm.mu.Unlock()

	if !pwm.isExported {
		return nil
	}
	var errs error
	if pwm.isEnabled {
		errs = writeValue(pwm.lineFile("enable"), 0)
		pwm.isEnabled = false
	}
	errs = multierr.Combine(errs, writeValue(pwm.chipFile("unexport"), uint64(pwm.line)))
	pwm.isExported = false
	return errs
}
