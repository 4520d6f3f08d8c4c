package internal

import (
	"c2c-client/errors"
	stdErrors "errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	ServerURL     string `env:"CHAT_SERVER_URL,default=ws://localhost:8080/ws" validate:"required,url"`
	APIURL        string `env:"CHAT_API_URL,default=http://localhost:8080" validate:"required,url"`
	InviteBaseURL string `env:"INVITE_BASE_URL,default=http://localhost:3000" validate:"required,url"`
	LogLevel      string `env:"LOG_LEVEL,default=INFO" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`
	DebugPort     int    `env:"DEBUG_PORT,default=0" validate:"min=0,max=65535"`
	Colours       bool   `env:"COLOURS,default=true"`

	MetricInterval time.Duration `env:"METRIC_INTERVAL,default=30s" validate:"gt=0"`

	HeartbeatInterval    time.Duration `env:"HEARTBEAT_INTERVAL,default=10s" validate:"gt=0"`
	ReconnectMaxAttempts int           `env:"RECONNECT_MAX_ATTEMPTS,default=5" validate:"min=0"`
	ReconnectBaseDelay   time.Duration `env:"RECONNECT_BASE_DELAY,default=1s" validate:"gt=0"`
	ReconnectMaxDelay    time.Duration `env:"RECONNECT_MAX_DELAY,default=30s" validate:"gtefield=ReconnectBaseDelay"`
	DialTimeout          time.Duration `env:"DIAL_TIMEOUT,default=30s" validate:"gt=0"`
	WriteTimeout         time.Duration `env:"WRITE_TIMEOUT,default=10s" validate:"gt=0"`
	BeaconTimeout        time.Duration `env:"BEACON_TIMEOUT,default=2s" validate:"gt=0"`

	MaxNicknameLength int    `env:"MAX_NICKNAME_LENGTH,default=20" validate:"min=1"`
	MaxMessageLength  int    `env:"MAX_MESSAGE_LENGTH,default=2048" validate:"min=1"`
	NicknameBlocklist string `env:"NICKNAME_BLOCKLIST"`

	RedirectDelay      time.Duration `env:"REDIRECT_DELAY,default=2s" validate:"gte=0"`
	LeaveRedirectDelay time.Duration `env:"LEAVE_REDIRECT_DELAY,default=500ms" validate:"gte=0"`
}

// Load reads an optional .env file then the environment.
func Load(envFiles ...string) (Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !stdErrors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("%w: %v", errors.ErrInvalidConfig, err)
	}
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return Config{}, fmt.Errorf("%w: %v", errors.ErrInvalidConfig, err)
	}
	return config, config.Validate()
}

func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidConfig, err)
	}
	return nil
}

// ExtraBlockedNames splits NICKNAME_BLOCKLIST on commas.
func (c Config) ExtraBlockedNames() []string {
	var names []string
	for _, name := range strings.Split(c.NicknameBlocklist, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}
