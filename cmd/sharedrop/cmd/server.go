package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/cobra"

	"github.com/jmcleod/sharedrop/api"
	"github.com/jmcleod/sharedrop/challenge"
	"github.com/jmcleod/sharedrop/filestore"
	localstore "github.com/jmcleod/sharedrop/filestore/local"
	s3store "github.com/jmcleod/sharedrop/filestore/s3"
	"github.com/jmcleod/sharedrop/identity"
	"github.com/jmcleod/sharedrop/internal/config"
	"github.com/jmcleod/sharedrop/token"
)

var (
	port        int
	uploadDir   string
	usersFile   string
	storageKind string
	brokerKind  string
	corsOrigins []string
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the file sharing server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		users, err := loadUsers()
		if err != nil {
			return fmt.Errorf("loading identities: %w", err)
		}

		codec, err := token.NewCodec([]byte(cfg.JWTSecret))
		if err != nil {
			return fmt.Errorf("initialising token codec: %w", err)
		}

		broker, err := buildBroker(cfg)
		if err != nil {
			return err
		}

		files, closeFiles, err := buildStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer closeFiles()

		logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
		a := api.New(users, codec, broker, files, api.WithLogger(logger))

		r := chi.NewRouter()
		r.Use(middleware.Logger)
		r.Use(middleware.Recoverer)
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   corsOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))

		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("OK"))
		})
		r.Mount("/", a.Router())

		server := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       120 * time.Second,
		}

		// Graceful shutdown on SIGINT/SIGTERM.
		done := make(chan error, 1)
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				done <- fmt.Errorf("server failed: %w", err)
				return
			}
			done <- nil
		}()

		fmt.Printf("Starting server on port %d (storage: %s, broker: %s)...\n", port, storageKind, brokerKind)

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			fmt.Printf("\nReceived %s, shutting down...\n", sig)
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(ctx); err != nil {
				return fmt.Errorf("server shutdown failed: %w", err)
			}
			return nil
		case err := <-done:
			return err
		}
	},
}

func loadUsers() (*identity.Store, error) {
	if usersFile != "" {
		return identity.LoadFile(usersFile)
	}
	return identity.DefaultStore()
}

func buildBroker(cfg *config.Config) (challenge.Broker, error) {
	switch brokerKind {
	case "twilio":
		if err := cfg.ValidateTwilio(); err != nil {
			return nil, err
		}
		return challenge.NewTwilioBroker(challenge.TwilioConfig{
			AccountSID:       cfg.TwilioAccountSID,
			AuthToken:        cfg.TwilioAuthToken,
			VerifyServiceSID: cfg.TwilioVerifyServiceSID,
		})
	case "static":
		return challenge.NewStaticBroker(cfg.StaticCode), nil
	default:
		return nil, fmt.Errorf("unknown broker %q (want twilio or static)", brokerKind)
	}
}

func buildStore(ctx context.Context, cfg *config.Config) (filestore.Store, func() error, error) {
	switch storageKind {
	case "local":
		store, err := localstore.NewStore(uploadDir)
		if err != nil {
			return nil, nil, fmt.Errorf("opening upload storage: %w", err)
		}
		return store, store.Close, nil
	case "s3":
		if err := cfg.ValidateS3(); err != nil {
			return nil, nil, err
		}
		store, err := s3store.NewStore(ctx, cfg.S3Bucket, cfg.S3KeyPrefix)
		if err != nil {
			return nil, nil, fmt.Errorf("opening s3 storage: %w", err)
		}
		return store, func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage %q (want local or s3)", storageKind)
	}
}

func init() {
	rootCmd.AddCommand(serverCmd)
	serverCmd.Flags().IntVarP(&port, "port", "p", 5000, "Port to listen on")
	serverCmd.Flags().StringVar(&uploadDir, "upload-dir", "./uploads", "Directory for uploaded files (local storage)")
	serverCmd.Flags().StringVar(&usersFile, "users-file", "", "JSON file of identities (defaults to the built-in bootstrap set)")
	serverCmd.Flags().StringVar(&storageKind, "storage", "local", "Storage backend: local or s3")
	serverCmd.Flags().StringVar(&brokerKind, "broker", "twilio", "Verification broker: twilio or static")
	serverCmd.Flags().StringSliceVar(&corsOrigins, "cors-origin", []string{"*"}, "Allowed CORS origins")
}
