package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "tvcms",
	Short: "Media content management API for the university TV station",
	Long: `tvcms stores and catalogues the station's recorded programs,
footage, audio and graphics.

Examples:
  tvcms serve      # run the HTTP API (default)
  tvcms migrate    # apply the database schema and exit
  tvcms seed       # create the default admin and programs`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		envFile, _ := cmd.Flags().GetString("env-file")
		if envFile == "" {
			return nil
		}
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("failed to load %s: %w", envFile, err)
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd)
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := NewApplication()
		if err != nil {
			return err
		}
		return app.RunMigrations(cmd.Context(), false)
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Apply the schema and create the default admin and programs",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := NewApplication()
		if err != nil {
			return err
		}
		return app.RunMigrations(cmd.Context(), true)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)

	rootCmd.PersistentFlags().String("env-file", "", "Load environment variables from this file before reading configuration")
	serveCmd.Flags().Bool("no-seed", false, "Skip seeding defaults on startup")
	rootCmd.Flags().Bool("no-seed", false, "Skip seeding defaults on startup")
}

func runServe(cmd *cobra.Command) error {
	app, err := NewApplication()
	if err != nil {
		return err
	}
	noSeed, _ := cmd.Flags().GetBool("no-seed")
	return app.Start(cmd.Context(), !noSeed)
}
