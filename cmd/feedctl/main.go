package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mycelian/mycelian-feed/internal/model"
)

var (
	serviceURL string
	userFlag   string
	rootCmd    = &cobra.Command{
		Use:   "feedctl",
		Short: "CLI client for the feed service REST API",
	}
)

func main() {
	rootCmd.PersistentFlags().StringVarP(&serviceURL, "service-url", "s", "http://localhost:8080", "Feed service base URL")
	rootCmd.PersistentFlags().StringVarP(&userFlag, "user", "u", "", "User ID (required)")

	feedCmd := &cobra.Command{
		Use:   "feed",
		Short: "Fetch a ranked feed page",
		RunE: func(cmd *cobra.Command, args []string) error {
			page, _ := cmd.Flags().GetInt("page")
			pageSize, _ := cmd.Flags().GetInt("page-size")
			session, _ := cmd.Flags().GetString("session")
			return runFeed(newClient(serviceURL), userFlag, page, pageSize, session, os.Stdout)
		},
	}
	feedCmd.Flags().IntP("page", "p", 1, "Page number, 1-based")
	feedCmd.Flags().IntP("page-size", "n", 0, "Page size (service default when 0)")
	feedCmd.Flags().String("session", "", "Session ID sent as X-Session-Id")
	rootCmd.AddCommand(feedCmd)

	trackCmd := &cobra.Command{
		Use:   "track",
		Short: "Record an interaction",
		RunE: func(cmd *cobra.Command, args []string) error {
			contentID, _ := cmd.Flags().GetString("content")
			kind, _ := cmd.Flags().GetString("kind")
			session, _ := cmd.Flags().GetString("session")
			return runTrack(newClient(serviceURL), userFlag, contentID, kind, session, os.Stdout)
		},
	}
	trackCmd.Flags().StringP("content", "c", "", "Content ID (required)")
	trackCmd.Flags().StringP("kind", "k", string(model.KindView), "Interaction kind: "+strings.Join(model.KindNames(), ", "))
	trackCmd.Flags().String("session", "", "Session ID")
	_ = trackCmd.MarkFlagRequired("content")
	rootCmd.AddCommand(trackCmd)

	profileCmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or rebuild a preference profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			rebuild, _ := cmd.Flags().GetBool("rebuild")
			return runProfile(newClient(serviceURL), userFlag, rebuild, os.Stdout)
		},
	}
	profileCmd.Flags().Bool("rebuild", false, "Rebuild the profile before printing it")
	rootCmd.AddCommand(profileCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
