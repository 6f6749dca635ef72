package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"api_presale/api"
	"api_presale/internal/config"
	"api_presale/internal/ledger"
	"api_presale/internal/presale"
)

var listenAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the presale HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if listenAddr != "" {
			cfg.ListenAddr = listenAddr
		}

		logger, err := zap.NewProduction()
		if err != nil {
			return fmt.Errorf("creating logger: %w", err)
		}
		defer logger.Sync()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		svc, err := buildService(ctx, cfg, logger)
		if err != nil {
			return err
		}

		limiter := api.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
		limiter.StartJanitor(ctx, 2*time.Minute)

		r := gin.Default()
		api.InitRoutes(r, svc, logger, limiter)

		srv := &http.Server{Addr: cfg.ListenAddr, Handler: r}
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		logger.Info("presale API listening", zap.String("addr", cfg.ListenAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("error trying to start server: %w", err)
		}
		return nil
	},
}

// buildService seeds the in-memory ledger and vault from config and grants the sale its allowance.
func buildService(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*presale.Service, error) {
	params, err := cfg.Params()
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	supply, allowance, err := cfg.Seed()
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	token := ledger.NewToken(params.TokenWallet, supply)
	if err := token.Approve(ctx, params.TokenWallet, params.SaleAddress, allowance); err != nil {
		return nil, fmt.Errorf("approving sale allowance: %w", err)
	}

	balances, err := cfg.Balances()
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	vault := ledger.NewVault()
	for addr, amount := range balances {
		if err := vault.Deposit(addr, amount); err != nil {
			return nil, fmt.Errorf("seeding native balances: %w", err)
		}
	}

	return presale.NewService(params, token, vault, presale.NewLocalStorage(), logger)
}

func init() {
	serveCmd.Flags().StringVar(&listenAddr, "addr", "", "listen address (overrides listen_addr)")
}
