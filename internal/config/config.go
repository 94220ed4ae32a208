// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

const (
	AppName    = "gocw"
	ConfigType = "yaml"

	DefaultConfig = `# gocw configuration

# Audio backend: none, console, oss, alsa, pulseaudio, soundcard
audio_system: "soundcard"
audio_device: ""        # backend-specific device name, "" for default

# Sending
send_speed: 12           # words per minute, 4-60
frequency: 800           # sidetone frequency in Hz, 0-4000
volume: 70                # percent, 0-100
gap: 0                     # additional inter-character gap, in dot units, 0-60
weighting: 50              # percent, 20-80, 50 is unweighted

# Receiving
receive_speed: 12
tolerance: 50              # percent, 0-90
adaptive_receive: true

# Line-protocol driver behaviour
do_echo: true              # echo received characters to stdout
do_errors: true            # also print an ok line per accepted line; errors are always reported
do_commands: true          # act on %-prefixed stream commands
do_combinations: true      # expand []-bracketed combinations
do_comments: true          # strip {}-bracketed comments

input_file: ""             # "" means stdin
output_file: ""            # "" means stdout
`
)

// Settings holds every tunable the engine exposes (spec §6 Configuration).
type Settings struct {
	AudioSystem string `mapstructure:"audio_system"`
	AudioDevice string `mapstructure:"audio_device"`

	SendSpeed int `mapstructure:"send_speed"`
	Frequency int `mapstructure:"frequency"`
	Volume    int `mapstructure:"volume"`
	Gap       int `mapstructure:"gap"`
	Weighting int `mapstructure:"weighting"`

	ReceiveSpeed     int  `mapstructure:"receive_speed"`
	Tolerance        int  `mapstructure:"tolerance"`
	AdaptiveReceive  bool `mapstructure:"adaptive_receive"`

	DoEcho         bool `mapstructure:"do_echo"`
	DoErrors       bool `mapstructure:"do_errors"`
	DoCommands     bool `mapstructure:"do_commands"`
	DoCombinations bool `mapstructure:"do_combinations"`
	DoComments     bool `mapstructure:"do_comments"`

	InputFile  string `mapstructure:"input_file"`
	OutputFile string `mapstructure:"output_file"`
}

// Init initializes Viper with defaults and config file. Config file search
// order: current directory, then ~/.config/gocw/.
func Init() error {
	viper.SetDefault("audio_system", "soundcard")
	viper.SetDefault("audio_device", "")
	viper.SetDefault("send_speed", 12)
	viper.SetDefault("frequency", 800)
	viper.SetDefault("volume", 70)
	viper.SetDefault("gap", 0)
	viper.SetDefault("weighting", 50)
	viper.SetDefault("receive_speed", 12)
	viper.SetDefault("tolerance", 50)
	viper.SetDefault("adaptive_receive", true)
	viper.SetDefault("do_echo", true)
	viper.SetDefault("do_errors", true)
	viper.SetDefault("do_commands", true)
	viper.SetDefault("do_combinations", true)
	viper.SetDefault("do_comments", true)
	viper.SetDefault("input_file", "")
	viper.SetDefault("output_file", "")

	viper.SetConfigType(ConfigType)
	viper.AddConfigPath(".")

	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	viper.AddConfigPath(filepath.Join(configDir, AppName))

	viper.SetConfigName(".config")
	if err = viper.ReadInConfig(); err != nil {
		viper.SetConfigName("config")
		err = viper.ReadInConfig()
	}

	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			xdgConfigPath := filepath.Join(configDir, AppName)
			if err = ensureConfigExists(xdgConfigPath); err != nil {
				return err
			}
			if err = viper.ReadInConfig(); err != nil {
				return fmt.Errorf("read config: %w", err)
			}
		} else {
			return fmt.Errorf("read config: %w", err)
		}
	}

	return nil
}

func ensureConfigExists(configPath string) error {
	configFile := filepath.Join(configPath, "config.yaml")

	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		if err = os.MkdirAll(configPath, 0755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
		if err = os.WriteFile(configFile, []byte(DefaultConfig), 0644); err != nil {
			return fmt.Errorf("write default config: %w", err)
		}
	}
	return nil
}

// Get returns the current, validated settings.
func Get() (*Settings, error) {
	var s Settings
	if err := viper.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &s, nil
}

var validAudioSystems = map[string]bool{
	"none": true, "console": true, "oss": true, "alsa": true,
	"pulseaudio": true, "soundcard": true,
}

// Validate checks that all settings are within the ranges spec §4.1 and §6
// require.
func (s *Settings) Validate() error {
	var errs []error

	if !validAudioSystems[s.AudioSystem] {
		errs = append(errs, fmt.Errorf("audio_system must be one of none, console, oss, alsa, pulseaudio, soundcard, got %q", s.AudioSystem))
	}
	if s.SendSpeed < 4 || s.SendSpeed > 60 {
		errs = append(errs, fmt.Errorf("send_speed must be between 4 and 60 WPM, got %d", s.SendSpeed))
	}
	if s.ReceiveSpeed < 4 || s.ReceiveSpeed > 60 {
		errs = append(errs, fmt.Errorf("receive_speed must be between 4 and 60 WPM, got %d", s.ReceiveSpeed))
	}
	if s.Frequency < 0 || s.Frequency > 4000 {
		errs = append(errs, fmt.Errorf("frequency must be between 0 and 4000 Hz, got %d", s.Frequency))
	}
	if s.Volume < 0 || s.Volume > 100 {
		errs = append(errs, fmt.Errorf("volume must be between 0 and 100, got %d", s.Volume))
	}
	if s.Gap < 0 || s.Gap > 60 {
		errs = append(errs, fmt.Errorf("gap must be between 0 and 60, got %d", s.Gap))
	}
	if s.Weighting < 20 || s.Weighting > 80 {
		errs = append(errs, fmt.Errorf("weighting must be between 20 and 80, got %d", s.Weighting))
	}
	if s.Tolerance < 0 || s.Tolerance > 90 {
		errs = append(errs, fmt.Errorf("tolerance must be between 0 and 90, got %d", s.Tolerance))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
