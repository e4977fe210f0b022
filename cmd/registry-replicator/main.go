// Copyright (c) 2025 Orbit Ops
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package main is the entry point for the Registry Replicator application.
// It provides a one-shot "replicate" command and a "serve" command that runs
// the HTTP API server.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/orbitops/registry-replicator/internal/cloud"
	"github.com/orbitops/registry-replicator/internal/handler"
	"github.com/orbitops/registry-replicator/internal/pkg/logger"
	"github.com/orbitops/registry-replicator/internal/registry"
	"github.com/orbitops/registry-replicator/internal/replicator"
	"github.com/orbitops/registry-replicator/internal/repository"
	"github.com/orbitops/registry-replicator/internal/router"
	"github.com/orbitops/registry-replicator/internal/service"
	"github.com/orbitops/registry-replicator/internal/types"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// rootCmd is the root command for the CLI application.
var rootCmd = &cobra.Command{
	Use:   "registry-replicator",
	Short: "Registry Replicator - Container image replication tool",
	Long:  `A tool for replicating container images between registries via the local container runtime, with AWS ECR and Azure ACR credential support.`,
}

// replicateCmd runs a single replication job and exits.
var replicateCmd = &cobra.Command{
	Use:   "replicate",
	Short: "Replicate images from a source registry to a destination registry",
	RunE:  runReplicate,
}

// serveCmd starts the HTTP API server.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the replication HTTP API server",
	Run:   runServer,
}

// init initializes command-line flags and environment variable bindings.
//
// Environment variables are supported with REPLICATOR_ prefix and underscores
// replacing hyphens. For example: REPLICATOR_DEFAULT_SOURCE_REGISTRY for
// --default-source-registry.
func init() {
	replicateCmd.Flags().String("source-registry", "", "Source registry URL (e.g., https://registry.example.com)")
	replicateCmd.Flags().String("dest-registry", "", "Destination registry address")
	replicateCmd.Flags().StringSlice("image", nil, "Image to replicate; repeat to replicate several in order")
	replicateCmd.Flags().String("cloud", "", "Destination cloud provider (aws, azure, or empty)")
	replicateCmd.Flags().String("region", "eu-central-1", "AWS region for ECR")
	replicateCmd.Flags().String("aws-credentials-file", "", "Path to the AWS shared credentials file (default: ~/.aws/credentials)")
	replicateCmd.Flags().String("source-username", "", "Username for pulling from the source registry")
	replicateCmd.Flags().String("source-password", "", "Password for pulling from the source registry")
	replicateCmd.Flags().Bool("strict-auth", false, "Fail instead of pushing unauthenticated when cloud credentials are incomplete")
	replicateCmd.Flags().BoolP("verbose", "v", false, "Log pull/push progress line by line")
	replicateCmd.Flags().IntP("timeout", "t", 600, "Replication timeout in seconds")

	serveCmd.Flags().String("host", "0.0.0.0", "Server host")
	serveCmd.Flags().IntP("port", "p", 8080, "Server port")
	serveCmd.Flags().Int("job-timeout", 600, "Replication timeout per job in seconds")
	serveCmd.Flags().String("default-source-registry", "", "Default source registry")
	serveCmd.Flags().String("default-dest-registry", "", "Default destination registry")
	serveCmd.Flags().StringSlice("cors-allowed-origins", []string{"*"}, "CORS allowed origins")
	serveCmd.Flags().String("oidc-client-id", "", "OIDC client ID")
	serveCmd.Flags().String("oidc-client-secret", "", "OIDC client secret")
	serveCmd.Flags().String("oidc-issuer", "", "OIDC issuer URL")
	serveCmd.Flags().String("oidc-redirect-url", "", "OIDC redirect URL")

	viper.BindPFlags(replicateCmd.Flags())
	viper.BindPFlags(serveCmd.Flags())

	// Set environment variable prefix to "REPLICATOR"
	viper.SetEnvPrefix("REPLICATOR")
	viper.AutomaticEnv()
	// Replace hyphens with underscores in environment variable names
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	rootCmd.AddCommand(replicateCmd)
	rootCmd.AddCommand(serveCmd)
}

// runReplicate executes one replication job: it validates the source registry,
// resolves destination credentials for the configured cloud, then pulls, tags,
// and pushes each image in order through the local container runtime.
func runReplicate(cmd *cobra.Command, args []string) error {
	verbose := viper.GetBool("verbose")
	log := logger.NewWithLevel(verbose)

	job, err := replicator.NewJob(
		viper.GetString("source-registry"),
		viper.GetString("dest-registry"),
		viper.GetStringSlice("image"),
		types.CloudKind(viper.GetString("cloud")),
	)
	if err != nil {
		return fmt.Errorf("invalid replication config: %w", err)
	}
	job.StrictAuth = viper.GetBool("strict-auth")

	if username := viper.GetString("source-username"); username != "" {
		job.SourceCreds = &types.RegistryCredentials{
			Username: username,
			Password: viper.GetString("source-password"),
			Registry: job.SourceRegistry,
		}
	}

	cloudCfg := &types.CloudConfig{
		Kind:            job.Cloud,
		Region:          viper.GetString("region"),
		CredentialsFile: viper.GetString("aws-credentials-file"),
	}
	provider, err := cloud.ForKind(cloudCfg, log)
	if err != nil {
		return err
	}

	client, err := registry.NewDockerClient(log, registry.WithVerbose(verbose))
	if err != nil {
		return fmt.Errorf("failed to connect to container runtime: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(viper.GetInt("timeout"))*time.Second)
	defer cancel()

	tagged, err := replicator.New(job, client, provider, log).Run(ctx)
	if err != nil {
		return err
	}

	log.Info("Replicated %d image(s)", len(tagged))
	for _, target := range tagged {
		fmt.Println(target.String())
	}
	return nil
}

// runServer is the main server execution function.
// It performs the following steps:
//  1. Loads configuration from command-line flags and environment variables
//  2. Initializes logger
//  3. Creates repository for task storage (in-memory)
//  4. Initializes services (replication, image inspection, session)
//  5. Sets up HTTP handlers (including auth handler if OIDC enabled)
//  6. Configures routing and middleware
//  7. Starts the HTTP server
func runServer(cmd *cobra.Command, args []string) {
	// Load configuration from viper
	oidcClientID := viper.GetString("oidc-client-id")
	oidcClientSecret := viper.GetString("oidc-client-secret")
	oidcIssuer := viper.GetString("oidc-issuer")
	oidcRedirectURL := viper.GetString("oidc-redirect-url")

	cfg := &types.Config{
		Server: types.ServerConfig{
			Host: viper.GetString("host"),
			Port: viper.GetInt("port"),
		},
		Registry: types.RegistryConfig{
			DefaultSourceRegistry: viper.GetString("default-source-registry"),
			DefaultDestRegistry:   viper.GetString("default-dest-registry"),
		},
		Job: types.JobConfig{
			Timeout:    viper.GetInt("job-timeout"),
			StrictAuth: viper.GetBool("strict-auth"),
			Verbose:    viper.GetBool("verbose"),
		},
		Cloud: types.CloudConfig{
			Kind:            types.CloudKind(viper.GetString("cloud")),
			Region:          viper.GetString("region"),
			CredentialsFile: viper.GetString("aws-credentials-file"),
		},
		CORS: types.CORSConfig{
			AllowedOrigins: viper.GetStringSlice("cors-allowed-origins"),
		},
		OIDC: types.OIDCConfig{
			ClientID:     oidcClientID,
			ClientSecret: oidcClientSecret,
			Issuer:       oidcIssuer,
			RedirectURL:  oidcRedirectURL,
			Enabled:      oidcClientID != "" && oidcClientSecret != "" && oidcIssuer != "",
		},
	}

	// Initialize logger
	log := logger.New()

	// Log OIDC configuration status
	if cfg.OIDC.Enabled {
		log.Info("OIDC authentication enabled")
		log.Info("  Issuer: %s", cfg.OIDC.Issuer)
		log.Info("  Client ID: %s", cfg.OIDC.ClientID)
		log.Info("  Redirect URL: %s", cfg.OIDC.RedirectURL)
		log.Info("  Client Secret: %s", maskSecret(cfg.OIDC.ClientSecret))
	} else {
		log.Info("OIDC authentication disabled")
	}

	// Initialize repository (in-memory task storage)
	taskRepo := repository.NewInMemoryTaskRepository()

	// Initialize services
	replicateService := service.NewReplicateService(taskRepo, log, cfg)
	imageService := service.NewImageService(log)
	sessionService := service.NewSessionService(7 * 24 * time.Hour) // 7 days session TTL

	// Initialize HTTP handlers
	replicateHandler := handler.NewReplicateHandler(replicateService, cfg, log)
	imageHandler := handler.NewImageHandler(imageService, log)

	authHandler, err := handler.NewAuthHandler(&cfg.OIDC, sessionService, log)
	if err != nil {
		log.Error("Failed to initialize auth handler: %v", err)
		return
	}

	// Set up router and middleware
	router := router.New(replicateHandler, imageHandler, authHandler, sessionService)
	engine := router.Setup(cfg)

	// Start HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Info("Server starting on %s (job timeout: %ds)", addr, cfg.Job.Timeout)
	if err := engine.Run(addr); err != nil {
		log.Error("Failed to start server: %v", err)
	}
}

// maskSecret masks a secret string for logging.
// Shows first 4 characters if length > 8, otherwise shows masked string.
func maskSecret(secret string) string {
	if secret == "" {
		return "(empty)"
	}
	if len(secret) <= 8 {
		return "***"
	}
	return secret[:4] + "***"
}

// main is the application entry point.
func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
