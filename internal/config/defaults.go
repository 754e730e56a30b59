package config

const (
	defaultConfigPath          = "~/.config/cherrycake/config.toml"
	defaultDataDir             = "~/.local/share/cherrycake/output"
	defaultStateDir            = "~/.local/share/cherrycake/state"
	defaultLogDir              = "~/.local/share/cherrycake/logs"
	defaultDatasetTimeout      = 15
	defaultBind                = "127.0.0.1:7490"
	defaultReadHeaderTimeout   = 5
	defaultReadTimeout         = 15
	defaultWriteTimeout        = 30
	defaultIdleTimeout         = 60
	defaultShutdownTimeout     = 5
	defaultDisplayHz           = 60
	defaultTensionSeconds      = 90
	defaultCounterpointSeconds = 60
	defaultMotifSeconds        = 60
	defaultTonnetzSeconds      = 90
	defaultFormSeconds         = 60
	defaultFullWidth           = 3840
	defaultFullHeight          = 2160
	defaultFullFPS             = 60
	defaultEmbedWidth          = 1920
	defaultEmbedHeight         = 1080
	defaultEmbedFPS            = 30
	defaultContactRate         = 6
	defaultContactBurst        = 3
	defaultRelayTimeout        = 20
	defaultSMTPPort            = 587
	defaultNotifyTimeout       = 10
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultLogRetentionDays    = 30
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:  defaultDataDir,
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		Datasets: Datasets{
			RequestTimeout: defaultDatasetTimeout,
		},
		Server: Server{
			Bind:              defaultBind,
			ReadHeaderTimeout: defaultReadHeaderTimeout,
			ReadTimeout:       defaultReadTimeout,
			WriteTimeout:      defaultWriteTimeout,
			IdleTimeout:       defaultIdleTimeout,
			ShutdownTimeout:   defaultShutdownTimeout,
		},
		Loop: Loop{
			DisplayHz:           defaultDisplayHz,
			TensionSeconds:      defaultTensionSeconds,
			CounterpointSeconds: defaultCounterpointSeconds,
			MotifSeconds:        defaultMotifSeconds,
			TonnetzSeconds:      defaultTonnetzSeconds,
			FormSeconds:         defaultFormSeconds,
		},
		Presentation: Presentation{
			FullWidth:   defaultFullWidth,
			FullHeight:  defaultFullHeight,
			FullFPS:     defaultFullFPS,
			EmbedWidth:  defaultEmbedWidth,
			EmbedHeight: defaultEmbedHeight,
			EmbedFPS:    defaultEmbedFPS,
		},
		Contact: Contact{
			RatePerMinute: defaultContactRate,
			Burst:         defaultContactBurst,
			RelayTimeout:  defaultRelayTimeout,
			SMTP: SMTP{
				Port: defaultSMTPPort,
			},
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			Contact:        true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
