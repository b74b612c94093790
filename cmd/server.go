// Copyright 2025 Git LFS S3 Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Nullreff/git-lfs-s3/pkg/auth"
	"github.com/Nullreff/git-lfs-s3/pkg/debug"
	"github.com/Nullreff/git-lfs-s3/pkg/env"
	"github.com/Nullreff/git-lfs-s3/pkg/lfsapi"
	"github.com/Nullreff/git-lfs-s3/pkg/logger"
	"github.com/Nullreff/git-lfs-s3/pkg/signature"
	"github.com/Nullreff/git-lfs-s3/pkg/store"
	"github.com/Nullreff/git-lfs-s3/pkg/utils"
)

// ServerOpts holds all configuration for the broker server.
type ServerOpts struct {
	// Network binding
	IP        string
	Port      int
	DebugPort int

	// Object store
	S3Endpoint        string
	S3Region          string
	S3Bucket          string
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3PathStyle       bool

	// Link generation
	PublicURL  string
	ServerPath string
	PresignTTL time.Duration

	// Verify token signing
	TokenSecret string
	TokenTTL    time.Duration

	// Diagnostics
	VerboseErrors bool
	LogLevel      string
}

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the Git LFS broker server",
	Long: `Start the HTTP server that answers Git LFS batch and legacy API requests
for one S3 bucket. Object bytes never pass through this process: responses
carry presigned S3 URLs and signed verify callbacks only.`,
	Run: runServer,
}

func init() {
	rootCmd.AddCommand(serverCmd)

	f := serverCmd.Flags()

	f.String("ip", "0.0.0.0", "IP address to bind the API server")
	f.Int("port", 8080, "API server port")
	f.Int("debug_port", 8090, "Debug/metrics HTTP port")

	f.String("s3_endpoint", "", "Object store endpoint URL (empty for AWS S3)")
	f.String("s3_region", "us-east-1", "Object store region")
	f.String("s3_bucket", "", "Bucket holding LFS objects. Required.")
	f.String("s3_access_key_id", "", "Object store access key ID. Required.")
	f.String("s3_secret_access_key", "", "Object store secret access key. Required.")
	f.Bool("s3_path_style", false, "Address objects as endpoint/bucket/key (MinIO, Ceph)")

	f.String("public_url", "", "Externally visible base URL of this server. Required.")
	f.String("server_path", "/:project/lfs", "Path template the API is mounted under (must contain ':project')")
	f.Duration("presign_ttl", lfsapi.DefaultPresignTTL, "Lifetime of presigned object URLs")

	f.String("token_secret", "", "HMAC secret for verify tokens. Required.")
	f.Duration("token_ttl", auth.DefaultTTL, "Lifetime of verify tokens")

	f.Bool("verbose_errors", false, "Echo authentication failure reasons to clients")
	f.String("log_level", "", "Log level override (trace, debug, info, warn, error)")

	viper.BindPFlags(f)
}

func runServer(cmd *cobra.Command, args []string) {
	utils.LoadConfiguration("server", false)
	opts := loadServerOpts(cmd)

	if opts.LogLevel != "" {
		logger.SetLevelFromString(opts.LogLevel)
	}
	if opts.VerboseErrors && env.IsProduction() {
		logger.Warn().Msg("verbose_errors is enabled in production; auth failure reasons will be sent to clients")
	}

	debug.SetNotReady()

	tokens, err := auth.New(opts.TokenSecret, opts.TokenTTL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create token authenticator")
	}

	signer, err := signature.NewPresigner(signature.Config{
		Endpoint:        opts.S3Endpoint,
		Region:          opts.S3Region,
		Bucket:          opts.S3Bucket,
		AccessKeyID:     opts.S3AccessKeyID,
		SecretAccessKey: opts.S3SecretAccessKey,
		PathStyle:       opts.S3PathStyle,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create presigner")
	}

	objects, err := store.New(cmd.Context(), store.Config{
		Endpoint:        opts.S3Endpoint,
		Region:          opts.S3Region,
		Bucket:          opts.S3Bucket,
		AccessKeyID:     opts.S3AccessKeyID,
		SecretAccessKey: opts.S3SecretAccessKey,
		PathStyle:       opts.S3PathStyle,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create object store client")
	}

	srv, err := lfsapi.NewServer(lfsapi.Config{
		PublicURL:     opts.PublicURL,
		ServerPath:    opts.ServerPath,
		PresignTTL:    opts.PresignTTL,
		VerboseErrors: opts.VerboseErrors,
	}, objects, signer, tokens)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create LFS server")
	}

	if err := lfsapi.RegisterMetrics(debug.Registry()); err != nil {
		logger.Fatal().Err(err).Msg("failed to register metrics")
	}
	debug.RegisterHandlerFunc("/version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(VersionInfo())
	})

	logger.Info().
		Str("bucket", opts.S3Bucket).
		Str("server_path", opts.ServerPath).
		Dur("presign_ttl", opts.PresignTTL).
		Msg("Broker configuration")

	httpServer := startHTTPServer(srv, opts.IP, opts.Port)
	debugServer := startHTTPServer(debug.GetMux(), opts.IP, opts.DebugPort)

	debug.SetReady()

	waitForShutdown()

	debug.SetNotReady()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	httpServer.Shutdown(shutdownCtx)
	debugServer.Shutdown(shutdownCtx)
}

func loadServerOpts(cmd *cobra.Command) ServerOpts {
	f := NewFlagLoader(cmd)

	bucket := f.String("s3_bucket")
	if bucket == "" {
		logger.Fatal().Msg("--s3_bucket is required. Set via flag, config, or S3_BUCKET env var.")
	}
	publicURL := f.String("public_url")
	if publicURL == "" {
		logger.Fatal().Msg("--public_url is required. Set via flag, config, or PUBLIC_URL env var.")
	}
	secret := f.String("token_secret")
	if secret == "" {
		logger.Fatal().Msg("--token_secret is required. Set via flag, config, or TOKEN_SECRET env var.")
	}

	return ServerOpts{
		IP:                f.String("ip"),
		Port:              f.Int("port"),
		DebugPort:         f.Int("debug_port"),
		S3Endpoint:        f.String("s3_endpoint"),
		S3Region:          f.String("s3_region"),
		S3Bucket:          bucket,
		S3AccessKeyID:     f.String("s3_access_key_id"),
		S3SecretAccessKey: f.String("s3_secret_access_key"),
		S3PathStyle:       f.Bool("s3_path_style"),
		PublicURL:         publicURL,
		ServerPath:        f.String("server_path"),
		PresignTTL:        f.Duration("presign_ttl"),
		TokenSecret:       secret,
		TokenTTL:          f.Duration("token_ttl"),
		VerboseErrors:     f.Bool("verbose_errors"),
		LogLevel:          f.String("log_level"),
	}
}

func startHTTPServer(handler http.Handler, ip string, port int) *http.Server {
	listener, err := utils.NewListener(utils.JoinHostPort(ip, port))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create HTTP listener")
	}

	httpServer := &http.Server{Handler: handler}
	go func() {
		logger.Info().Str("http_addr", utils.JoinHostPort(ip, port)).Msg("Starting HTTP server")
		if err := httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("failed to start HTTP server")
		}
	}()
	return httpServer
}

func waitForShutdown() {
	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, os.Interrupt, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)
	<-stopChan
}
