package sio

import (
	"time"

	"github.com/yaoapp/kun/log"
)

// Validate the option, fill the default values
func (option *Option) Validate() {

	if option.Path == "" {
		option.Path = "/socket.io/"
	}

	if option.Namespace == "" {
		option.Namespace = "/"
	}

	if option.Attempts < 0 {
		log.Warn("[sio] the attempts should not be negative, disable reconnecting")
		option.Attempts = 0
	}

	if option.Attempts > 100 {
		log.Warn("[sio] the maximum value of attempts is 100")
		option.Attempts = 100
	}

	if option.AttemptAfter <= 0 {
		option.AttemptAfter = 5 * time.Second
	}

	if option.AttemptMax <= 0 {
		option.AttemptMax = 25 * time.Second
	}

	if option.AttemptMax < option.AttemptAfter {
		log.Warn("[sio] the attempt_max value should not be smaller than attempt_after")
		option.AttemptMax = option.AttemptAfter
	}

	if option.Timeout <= 0 {
		option.Timeout = 20 * time.Second
	}
}

// delay the reconnect delay of the given attempt (1-based), grows by 1.5x
func (option Option) delay(attempt int) time.Duration {
	delay := float64(option.AttemptAfter)
	for i := 1; i < attempt; i++ {
		delay = delay * 1.5
		if delay >= float64(option.AttemptMax) {
			return option.AttemptMax
		}
	}
	return time.Duration(delay)
}
