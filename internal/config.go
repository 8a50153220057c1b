package internal

import (
	"fmt"
	"time"
)

type Config struct {
	BadgerFilepath    string        `env:"BADGER_FILEPATH,required=true"`
	BlugeFilepath     string        `env:"BLUGE_FILEPATH,required=true"`
	LogLevel          string        `env:"LOG_LEVEL,required=true"`
	Host              string        `env:"HOST,default=localhost"`
	Port              int           `env:"PORT,default=8080"`
	AuthTokenDuration time.Duration `env:"AUTH_TOKEN_DURATION,required=true"`
	TokenSecret       string        `env:"TOKEN_SECRET"`
	AvatarDir         string        `env:"AVATAR_DIR,default=./avatars"`

	LimitMessages  *int          `env:"LIMIT_MESSAGES"`
	IndexQueueSize int           `env:"INDEX_QUEUE_SIZE,default=1024"`
	MetricInterval time.Duration `env:"METRIC_INTERVAL,default=30s"`

	ModerationWords string `env:"MODERATION_WORDS"`
	CharReplacement string `env:"CHARACTER_REPLACEMENT,default=*"`
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
