// Package cmd assembles the birdstream command line interface.
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tphakala/birdstream/cmd/realtime"
	"github.com/tphakala/birdstream/internal/conf"
)

// RootCommand creates and returns the root command
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "birdstream",
		Short: "BirdStream live detection gating and streaming",
	}

	setupFlags(rootCmd, settings)

	rootCmd.AddCommand(realtime.Command(settings))

	return rootCmd
}

// setupFlags configures the global flags for the root command and binds
// them to viper so command line arguments take precedence over the config
// file.
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) {
	rootCmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", settings.Debug, "Enable debug output")
	rootCmd.PersistentFlags().StringVarP(&settings.WebServer.Port, "port", "p", settings.WebServer.Port, "HTTP server port")
	rootCmd.PersistentFlags().Float64Var(&settings.SoundID.InitialThreshold, "initial-threshold", settings.SoundID.InitialThreshold, "Confidence required before a species unlocks")
	rootCmd.PersistentFlags().Float64Var(&settings.SoundID.UnlockedThreshold, "unlocked-threshold", settings.SoundID.UnlockedThreshold, "Confidence required once a species is unlocked")
	rootCmd.PersistentFlags().Float64Var(&settings.SoundID.SingingThreshold, "singing-threshold", settings.SoundID.SingingThreshold, "Confidence required on the activity sentinel")
	rootCmd.PersistentFlags().IntVar(&settings.SoundID.MinDetectionsToUnlock, "min-detections", settings.SoundID.MinDetectionsToUnlock, "Detections within the rolling window needed to unlock a species")

	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("webserver.port", rootCmd.PersistentFlags().Lookup("port"))
	_ = viper.BindPFlag("soundid.initialthreshold", rootCmd.PersistentFlags().Lookup("initial-threshold"))
	_ = viper.BindPFlag("soundid.unlockedthreshold", rootCmd.PersistentFlags().Lookup("unlocked-threshold"))
	_ = viper.BindPFlag("soundid.singingthreshold", rootCmd.PersistentFlags().Lookup("singing-threshold"))
	_ = viper.BindPFlag("soundid.mindetectionstounlock", rootCmd.PersistentFlags().Lookup("min-detections"))
}
