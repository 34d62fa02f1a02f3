package internal

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config carries every tunable of the relay server except the listen
// port, which is given on the command line.
type Config struct {
	LogLevel        string        `env:"LOG_LEVEL,default=INFO" validate:"oneof=DEBUG INFO WARN ERROR"`
	ReadTimeout     time.Duration `env:"READ_TIMEOUT,default=0s" validate:"min=0"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT,default=5s" validate:"min=0"`
	RestartInterval time.Duration `env:"RESTART_INTERVAL,default=1s" validate:"gt=0"`
	MonitorInterval time.Duration `env:"MONITOR_INTERVAL,default=30s" validate:"min=0"`
	CensoredWords   []string      `env:"CENSORED_WORDS"`
	CharReplacement string        `env:"CHARACTER_REPLACEMENT,default=*"`
	DebugPort       *int          `env:"DEBUG_PORT" validate:"omitempty,min=1,max=65535"`
}

func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration : %w", err)
	}
	if _, err := CharacterRune(c.CharReplacement); err != nil {
		return err
	}
	return nil
}

func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CHARACTER_REPLACEMENT must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}
