// Copyright 2025 Git LFS S3 Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Nullreff/git-lfs-s3/pkg/auth"
	"github.com/Nullreff/git-lfs-s3/pkg/logger"
	"github.com/Nullreff/git-lfs-s3/pkg/utils"
)

// authenticateResponse is the payload git-lfs expects from the
// git-lfs-authenticate SSH command: a batch endpoint plus the headers to
// present there.
type authenticateResponse struct {
	HRef      string            `json:"href"`
	Header    map[string]string `json:"header"`
	ExpiresIn int64             `json:"expires_in"`
}

var authenticateCmd = &cobra.Command{
	Use:   "authenticate <project>",
	Short: "Mint an access token for a project",
	Long: `Mint a signed token granting Git LFS access to one project and print the
JSON handshake git-lfs expects from an SSH git-lfs-authenticate command.
Wire this as the forced command for LFS-over-SSH users.`,
	Args: cobra.ExactArgs(1),
	Run:  runAuthenticate,
}

func init() {
	rootCmd.AddCommand(authenticateCmd)

	f := authenticateCmd.Flags()
	f.String("public_url", "", "Externally visible base URL of the broker. Required.")
	f.String("server_path", "/:project/lfs", "Path template the API is mounted under (must contain ':project')")
	f.String("token_secret", "", "HMAC secret for tokens. Required.")
	f.Duration("token_ttl", auth.DefaultTTL, "Lifetime of the minted token")

	viper.BindPFlags(f)
}

func runAuthenticate(cmd *cobra.Command, args []string) {
	utils.LoadConfiguration("server", false)
	f := NewFlagLoader(cmd)

	project := args[0]
	publicURL := f.String("public_url")
	if publicURL == "" {
		logger.Fatal().Msg("--public_url is required. Set via flag, config, or PUBLIC_URL env var.")
	}
	secret := f.String("token_secret")
	if secret == "" {
		logger.Fatal().Msg("--token_secret is required. Set via flag, config, or TOKEN_SECRET env var.")
	}

	tokens, err := auth.New(secret, f.Duration("token_ttl"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create token authenticator")
	}

	token, err := tokens.Issue(project)
	if err != nil {
		logger.Fatal().Err(err).Str("project", project).Msg("failed to mint token")
	}

	href := strings.TrimSuffix(publicURL, "/") +
		strings.Replace(f.String("server_path"), ":project", project, 1)

	resp := authenticateResponse{
		HRef:      href,
		Header:    map[string]string{"Authorization": auth.HeaderValue(token)},
		ExpiresIn: int64(tokens.TTL().Seconds()),
	}

	enc := json.NewEncoder(os.Stdout)
	if err := enc.Encode(resp); err != nil {
		logger.Fatal().Err(err).Msg("failed to write response")
	}
}
