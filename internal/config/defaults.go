package config

const (
	defaultDeviceName  = "mothtrap-001"
	defaultStorageDir  = "~/.local/share/mothtrap/captures"
	defaultScratchDir  = "~/.local/share/mothtrap/scratch"
	defaultLogDir      = "~/.local/share/mothtrap/logs"
	defaultAPIBind     = "127.0.0.1:7512"
	defaultLogFormat   = "console"
	defaultLogLevel    = "info"
	defaultBeamDevice  = "/sys/class/gpio/gpio2/value"
	defaultVideoDevice = "/dev/video0"
	defaultAudioDevice = "/dev/snd/pcmC0D0c"

	// Trigger timing mirrors the deployed trap hardware: 100 ms debounce on the
	// IR receiver, 500 ms cooldown so one crossing is counted once.
	defaultDebounceMs = 100
	defaultCooldownMs = 500

	defaultPolicy          = PolicyTriggered
	defaultDurationMs      = 10000
	defaultGraceMs         = 2000
	defaultFrameRate       = 15
	defaultFrameWidth      = 640
	defaultFrameHeight     = 480
	defaultSampleRate      = 16000
	defaultAudioChunkBytes = 2048
	defaultFilePrefix      = "moth"
	defaultMinFreeSpaceMB  = 64

	defaultScheduleMode   = ScheduleAlways
	defaultLightThreshold = 30
	defaultNightStartHour = 18
	defaultNightEndHour   = 6

	defaultNtfyRequestTimeout = 10
)

// Capture policy names accepted in capture.policy.
const (
	PolicyTriggered  = "triggered"
	PolicyContinuous = "continuous"
)

// Schedule mode names accepted in schedule.mode.
const (
	ScheduleAlways = "always"
	ScheduleLight  = "light"
	ScheduleHours  = "hours"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		DeviceName: defaultDeviceName,
		Paths: Paths{
			StorageDir: defaultStorageDir,
			ScratchDir: defaultScratchDir,
			LogDir:     defaultLogDir,
			APIBind:    defaultAPIBind,
		},
		Detection: Detection{
			DebounceMs: defaultDebounceMs,
			CooldownMs: defaultCooldownMs,
			BeamDevice: defaultBeamDevice,
		},
		Capture: Capture{
			Policy:       defaultPolicy,
			DurationMs:   defaultDurationMs,
			GraceMs:      defaultGraceMs,
			FrameRate:    defaultFrameRate,
			FrameWidth:   defaultFrameWidth,
			FrameHeight:  defaultFrameHeight,
			SampleRate:   defaultSampleRate,
			VideoDevice:  defaultVideoDevice,
			AudioDevice:  defaultAudioDevice,
			AudioChunkB:  defaultAudioChunkBytes,
			FilePrefix:   defaultFilePrefix,
			MinFreeSpace: defaultMinFreeSpaceMB,
		},
		Schedule: Schedule{
			Mode:           defaultScheduleMode,
			LightThreshold: defaultLightThreshold,
			NightStartHour: defaultNightStartHour,
			NightEndHour:   defaultNightEndHour,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNtfyRequestTimeout,
			Committed:      true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
