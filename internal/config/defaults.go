package config

// Default values applied before the configuration file is decoded. Anything
// the file omits keeps these values.
const (
	defaultDownloadDir = "~/Downloads/spool"
	defaultStateDir    = "~/.local/share/spool"
	defaultLogDir      = "~/.local/share/spool/logs"

	defaultQuality          = "best"
	defaultMediaKind        = "video"
	defaultContainer        = "mp4"
	defaultAudioQuality     = "192"
	defaultFilenameTemplate = "{index} - {title}"
	defaultDownloadOrder    = "playlist"
	defaultItemTimeout      = 600

	defaultRotationFrequency = 10
	defaultMinDelaySeconds   = 3.0
	defaultMaxDelaySeconds   = 10.0
	defaultValidateTimeout   = 10
	defaultValidateWorkers   = 5
	defaultValidateURL       = "https://httpbin.org/ip"

	defaultNotifyTimeout = 10

	defaultErrorRetryInterval = 30

	defaultLogFormat = "text"
	defaultLogLevel  = "info"
)

// Default returns a configuration populated with sane defaults. Paths are
// not yet expanded; Load handles that during normalization.
func Default() Config {
	return Config{
		Paths: Paths{
			DownloadDir: defaultDownloadDir,
			StateDir:    defaultStateDir,
			LogDir:      defaultLogDir,
		},
		Download: Download{
			Quality:          defaultQuality,
			MediaKind:        defaultMediaKind,
			Container:        defaultContainer,
			AudioQuality:     defaultAudioQuality,
			FilenameTemplate: defaultFilenameTemplate,
			Order:            defaultDownloadOrder,
			TimeoutSeconds:   defaultItemTimeout,
		},
		Pacing: Pacing{
			Proxies:           nil,
			RotationEnabled:   false,
			RotationFrequency: defaultRotationFrequency,
			MinDelaySeconds:   defaultMinDelaySeconds,
			MaxDelaySeconds:   defaultMaxDelaySeconds,
			ValidateTimeout:   defaultValidateTimeout,
			ValidateWorkers:   defaultValidateWorkers,
			ValidateURL:       defaultValidateURL,
		},
		Notifications: Notifications{
			RequestTimeout:    defaultNotifyTimeout,
			Queue:             true,
			Items:             false,
			Errors:            true,
			AlertThresholdsMB: []int{500, 1000, 5000},
		},
		Workflow: Workflow{
			ErrorRetryInterval: defaultErrorRetryInterval,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
