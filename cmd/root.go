// cmd/root.go
package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/ColonelBlimp/gocw/internal/config"
	"github.com/ColonelBlimp/gocw/internal/cw"
	"github.com/ColonelBlimp/gocw/internal/stream"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is overridden at build time via -ldflags.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:     "gocw",
	Short:   "Send text as CW (Morse code) through a sound device",
	Long:    `gocw reads lines of text and keys them out as CW, through a console speaker, OSS, ALSA or PulseAudio sink, following a small line-oriented protocol of comments, combinations and in-band commands.`,
	Version: version,
	RunE:    runSender,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "gocw: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	applyCWOptionsEnv()

	flags := rootCmd.PersistentFlags()
	flags.StringP("system", "s", "", "audio system: none, console, oss, alsa, pulseaudio, soundcard")
	flags.StringP("device", "d", "", "audio device name")
	flags.IntP("wpm", "w", 0, "send speed, in words per minute (4-60)")
	flags.IntP("tolerance", "t", 0, "receive tolerance percent (0-90)")
	flags.IntP("volume", "v", 0, "sidetone volume percent (0-100)")
	flags.IntP("gap", "g", 0, "extra inter-character gap, in dot units (0-60)")
	flags.IntP("weighting", "k", 0, "send weighting percent (20-80)")
	flags.IntP("frequency", "f", 0, "sidetone frequency in Hz (0-4000)")
	flags.BoolP("errors", "e", true, "also print an ok line for each accepted input line (errors are always reported)")
	flags.BoolP("comments", "m", true, "strip {}-bracketed comments")
	flags.BoolP("commands", "c", true, "act on %-prefixed in-band commands")
	flags.BoolP("combinations", "o", true, "expand []-bracketed combinations")
	flags.StringP("infile", "p", "", "read input from this file instead of stdin")
	flags.BoolP("version", "V", false, "print version and exit")

	cobra.CheckErr(viper.BindPFlag("audio_system", flags.Lookup("system")))
	cobra.CheckErr(viper.BindPFlag("audio_device", flags.Lookup("device")))
	cobra.CheckErr(viper.BindPFlag("send_speed", flags.Lookup("wpm")))
	cobra.CheckErr(viper.BindPFlag("tolerance", flags.Lookup("tolerance")))
	cobra.CheckErr(viper.BindPFlag("volume", flags.Lookup("volume")))
	cobra.CheckErr(viper.BindPFlag("gap", flags.Lookup("gap")))
	cobra.CheckErr(viper.BindPFlag("weighting", flags.Lookup("weighting")))
	cobra.CheckErr(viper.BindPFlag("frequency", flags.Lookup("frequency")))
	cobra.CheckErr(viper.BindPFlag("do_errors", flags.Lookup("errors")))
	cobra.CheckErr(viper.BindPFlag("do_comments", flags.Lookup("comments")))
	cobra.CheckErr(viper.BindPFlag("do_commands", flags.Lookup("commands")))
	cobra.CheckErr(viper.BindPFlag("do_combinations", flags.Lookup("combinations")))
	cobra.CheckErr(viper.BindPFlag("input_file", flags.Lookup("infile")))
}

func initConfig() {
	if err := config.Init(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
}

// applyCWOptionsEnv lets CW_OPTIONS carry the same flags as the command
// line, e.g. CW_OPTIONS="-w 20 -f 600" (spec §6). Flags given on the actual
// command line still take precedence, since cobra/pflag parses argv after
// this populates viper's defaults only through the config layer -- here we
// simply pre-seed os.Args-equivalent environment-sourced values into viper
// directly, each overridable by an explicit flag.
func applyCWOptionsEnv() {
	raw := os.Getenv("CW_OPTIONS")
	if raw == "" {
		return
	}
	fields := strings.Fields(raw)
	for i := 0; i < len(fields); i++ {
		tok := fields[i]
		var key string
		switch tok {
		case "-s", "--system":
			key = "audio_system"
		case "-d", "--device":
			key = "audio_device"
		case "-w", "--wpm":
			key = "send_speed"
		case "-t", "--tolerance":
			key = "tolerance"
		case "-v", "--volume":
			key = "volume"
		case "-g", "--gap":
			key = "gap"
		case "-k", "--weighting":
			key = "weighting"
		case "-f", "--frequency":
			key = "frequency"
		default:
			continue
		}
		if i+1 >= len(fields) {
			break
		}
		viper.Set(key, fields[i+1])
		i++
	}
}

// Bits of the LIBCW_DEBUG bitmask environment variable, preserved from the
// historical debug-flag convention the original sender used. libcwDebugFlags
// returns the whole mask as an integer (0 when unset or not a number).
const (
	debugBitKeying = 1 << iota
	debugBitTones
	debugBitReceive
)

func libcwDebugFlags() int {
	v := os.Getenv("LIBCW_DEBUG")
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

func runSender(cmd *cobra.Command, _ []string) error {
	if v, _ := cmd.Flags().GetBool("version"); v {
		fmt.Println(version)
		return nil
	}

	settings, err := config.Get()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	debugBits := libcwDebugFlags()
	if debugBits&debugBitKeying != 0 {
		fmt.Fprintf(os.Stderr, "gocw: debug: keying=%d send_speed=%d frequency=%d\n",
			debugBits, settings.SendSpeed, settings.Frequency)
	}

	audioSystem, err := parseAudioSystem(settings.AudioSystem)
	if err != nil {
		return err
	}

	engineCfg := cw.DefaultEngineConfig()
	engineCfg.AudioSystem = audioSystem
	engineCfg.AudioDevice = settings.AudioDevice
	engineCfg.SendSpeed = settings.SendSpeed
	engineCfg.Frequency = settings.Frequency
	engineCfg.Volume = settings.Volume
	engineCfg.Gap = settings.Gap
	engineCfg.Weighting = settings.Weighting
	engineCfg.ReceiveSpeed = settings.ReceiveSpeed
	engineCfg.Tolerance = settings.Tolerance
	engineCfg.Adaptive = settings.AdaptiveReceive

	engine, err := cw.NewEngine(engineCfg)
	if err != nil {
		return fmt.Errorf("init engine: %w", err)
	}
	if err := engine.Start(); err != nil {
		return fmt.Errorf("start engine: %w", err)
	}
	defer func() {
		if err := engine.Stop(); err != nil {
			fmt.Fprintf(os.Stderr, "gocw: error stopping engine: %v\n", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\ngocw: interrupted, draining queue...")
		_ = engine.Stop()
		os.Exit(0)
	}()

	input := os.Stdin
	if settings.InputFile != "" {
		f, err := os.Open(settings.InputFile)
		if err != nil {
			return fmt.Errorf("open input file: %w", err)
		}
		defer f.Close()
		input = f
	}

	output := os.Stdout
	if settings.OutputFile != "" {
		f, err := os.Create(settings.OutputFile)
		if err != nil {
			return fmt.Errorf("open output file: %w", err)
		}
		defer f.Close()
		output = f
	}

	driver := stream.NewDriver(engine, stream.Options{
		DoCommands:     settings.DoCommands,
		DoCombinations: settings.DoCombinations,
		DoComments:     settings.DoComments,
		DoEcho:         settings.DoEcho,
		DoErrors:       settings.DoErrors,
	}, &stream.WriterReporter{W: os.Stderr, Verbose: settings.DoErrors}, output, os.Stderr)

	return driver.Run(input)
}

func parseAudioSystem(name string) (cw.AudioSystem, error) {
	switch name {
	case "", "soundcard":
		return cw.AudioSoundcard, nil
	case "none":
		return cw.AudioNone, nil
	case "console":
		return cw.AudioConsole, nil
	case "oss":
		return cw.AudioOSS, nil
	case "alsa":
		return cw.AudioALSA, nil
	case "pulseaudio":
		return cw.AudioPulseAudio, nil
	default:
		return 0, fmt.Errorf("%w: unknown audio_system %q", cw.ErrBadArgument, name)
	}
}
