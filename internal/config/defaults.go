package config

const (
	defaultLogDir                = "~/.local/share/proxyoda/logs"
	defaultStateDir              = "~/.local/share/proxyoda"
	defaultScriptDir             = "~/Documents/AME_Watch_Folder"
	defaultLogRetentionDays      = 30
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
	defaultEncoderVersion        = "25.0"
	defaultAppProcess            = "Adobe Media Encoder.exe"
	defaultConsoleProcess        = "ame_webservice_console.exe"
	defaultHost                  = "localhost"
	defaultPort                  = 8087
	defaultBusyRetryLimit        = 30
	defaultBusyRetryDelayMS      = 1000
	defaultRequestTimeoutMS      = 5000
	defaultCooldownMS            = 1000
	defaultStartupTimeoutColdMS  = 45000
	defaultStartupTimeoutWarmMS  = 15000
	defaultProbeInitialBackoffMS = 250
	defaultProbeMaxBackoffMS     = 4000
	defaultSocketResetPolicy     = SocketResetSuccess
	defaultProxySuffix           = "_proxy"
	defaultProxyExtension        = ".mov"
	defaultProbeConcurrency      = 4
	defaultFFprobeBinary         = "ffprobe"
	defaultMediaInfoBinary       = "mediainfo"
	defaultNotifyRequestTimeout  = 10
)

// Socket reset policies for the AME web service connection-reset quirk.
const (
	SocketResetSuccess = "success"
	SocketResetFailure = "failure"
)

// Scale values with special meaning in resolution mappings.
const (
	ScaleSkip   = "skip"
	ScaleCustom = "custom"
)

// PresetUnassigned marks a resolution without a preset.
const PresetUnassigned = "unassigned"

var defaultAppPaths = []string{
	`C:\Program Files\Adobe\Adobe Media Encoder 2025\Adobe Media Encoder.exe`,
	`C:\Program Files\Adobe\Adobe Media Encoder 2024\Adobe Media Encoder.exe`,
	`C:\Program Files\Adobe\Adobe Media Encoder 2023\Adobe Media Encoder.exe`,
	`C:\Program Files (x86)\Adobe\Adobe Media Encoder 2025\Adobe Media Encoder.exe`,
	`C:\Program Files (x86)\Adobe\Adobe Media Encoder 2024\Adobe Media Encoder.exe`,
}

var defaultConsolePaths = []string{
	`C:\Program Files\Adobe\Adobe Media Encoder 2025\ame_webservice_console.exe`,
	`C:\Program Files\Adobe\Adobe Media Encoder 2024\ame_webservice_console.exe`,
	`C:\Program Files\Adobe\Adobe Media Encoder 2023\ame_webservice_console.exe`,
	`C:\Program Files (x86)\Adobe\Adobe Media Encoder 2025\ame_webservice_console.exe`,
	`C:\Program Files (x86)\Adobe\Adobe Media Encoder 2024\ame_webservice_console.exe`,
}

var defaultExtensions = []string{".mov", ".mp4", ".notchlc", ".hap"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Version: CurrentVersion,
		Paths: Paths{
			LogDir:    defaultLogDir,
			StateDir:  defaultStateDir,
			ScriptDir: defaultScriptDir,
		},
		Encoder: Encoder{
			Version:        defaultEncoderVersion,
			AppProcess:     defaultAppProcess,
			ConsoleProcess: defaultConsoleProcess,
			AppPaths:       append([]string(nil), defaultAppPaths...),
			ConsolePaths:   append([]string(nil), defaultConsolePaths...),
			ManageService:  true,
		},
		WebService: WebService{
			Host:                  defaultHost,
			Port:                  defaultPort,
			BusyRetryLimit:        defaultBusyRetryLimit,
			BusyRetryDelayMS:      defaultBusyRetryDelayMS,
			RequestTimeoutMS:      defaultRequestTimeoutMS,
			CooldownMS:            defaultCooldownMS,
			StartupTimeoutColdMS:  defaultStartupTimeoutColdMS,
			StartupTimeoutWarmMS:  defaultStartupTimeoutWarmMS,
			ProbeInitialBackoffMS: defaultProbeInitialBackoffMS,
			ProbeMaxBackoffMS:     defaultProbeMaxBackoffMS,
			SocketResetPolicy:     defaultSocketResetPolicy,
		},
		Scan: Scan{
			Extensions:       append([]string(nil), defaultExtensions...),
			ProxySuffix:      defaultProxySuffix,
			ProxyExtension:   defaultProxyExtension,
			ProbeConcurrency: defaultProbeConcurrency,
			FFprobeBinary:    defaultFFprobeBinary,
			MediaInfoBinary:  defaultMediaInfoBinary,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Run:            true,
			Errors:         true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
