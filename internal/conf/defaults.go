// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"
)

// DefaultSentinelName is the classifier label that signals bird-like sound
// in a frame without identifying a species.
const DefaultSentinelName = "generic bird sound"

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("main.name", "BirdStream")
	viper.SetDefault("main.log.enabled", false)
	viper.SetDefault("main.log.path", "birdstream.log")

	viper.SetDefault("soundid.sentinelname", DefaultSentinelName)
	viper.SetDefault("soundid.singingthreshold", 0.5)
	viper.SetDefault("soundid.initialthreshold", 0.7)
	viper.SetDefault("soundid.unlockedthreshold", 0.4)
	viper.SetDefault("soundid.mindetectionstounlock", 2)
	viper.SetDefault("soundid.lifelistpath", "")

	viper.SetDefault("stream.detectionqueuesize", 256)
	viper.SetDefault("stream.spectrogramqueuesize", 64)
	viper.SetDefault("stream.shutdowntimeout", 30*time.Second)
	viper.SetDefault("stream.heartbeatinterval", 30*time.Second)
	viper.SetDefault("stream.clientbuffersize", 100)
	viper.SetDefault("stream.sendtimeout", 3*time.Second)
	viper.SetDefault("stream.logthrottleinterval", time.Minute)

	viper.SetDefault("webserver.enabled", true)
	viper.SetDefault("webserver.port", "8090")
	viper.SetDefault("webserver.ratelimit", 10)
}

// DefaultSettings returns a Settings value populated with the same defaults
// viper would apply, for use when no configuration source is reachable.
func DefaultSettings() *Settings {
	return &Settings{
		Main: MainSettings{
			Name: "BirdStream",
			Log:  LogConfig{Enabled: false, Path: "birdstream.log"},
		},
		SoundID: SoundIDSettings{
			SentinelName:          DefaultSentinelName,
			SingingThreshold:      0.5,
			InitialThreshold:      0.7,
			UnlockedThreshold:     0.4,
			MinDetectionsToUnlock: 2,
		},
		Stream: StreamSettings{
			DetectionQueueSize:   256,
			SpectrogramQueueSize: 64,
			ShutdownTimeout:      30 * time.Second,
			HeartbeatInterval:    30 * time.Second,
			ClientBufferSize:     100,
			SendTimeout:          3 * time.Second,
			LogThrottleInterval:  time.Minute,
		},
		WebServer: WebServerSettings{
			Enabled:   true,
			Port:      "8090",
			RateLimit: 10,
		},
	}
}
