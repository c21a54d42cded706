package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/bnema/zepp-steps-cli/internal/adapters/captcha"
	"github.com/bnema/zepp-steps-cli/internal/adapters/ocr/execocr"
	statusadapter "github.com/bnema/zepp-steps-cli/internal/adapters/render/status"
	tomlrepo "github.com/bnema/zepp-steps-cli/internal/adapters/repo/toml"
	chainstore "github.com/bnema/zepp-steps-cli/internal/adapters/secrets/chain"
	"github.com/bnema/zepp-steps-cli/internal/adapters/transport"
	"github.com/bnema/zepp-steps-cli/internal/adapters/zepp"
	"github.com/bnema/zepp-steps-cli/internal/application"
	"github.com/bnema/zepp-steps-cli/internal/log"
	"github.com/bnema/zepp-steps-cli/internal/pacer"
	"github.com/bnema/zepp-steps-cli/internal/ports"
)

type app struct {
	accounts    *application.AccountService
	schedules   *application.ScheduleService
	submissions *application.SubmissionService
	challenges  *application.ChallengeLedger
	resolver    *captcha.Resolver
	remote      *zepp.Client

	scheduleRepo ports.ScheduleRepository
	secretStore  ports.SecretStore

	statusRenderer func([]application.Status, statusadapter.RenderOptions) (string, error)
	pacerInterval  time.Duration
	now            func() time.Time
}

func wireApp() (*app, error) {
	log.Configure(log.Config{})

	cfg := viper.New()
	accountRepo, err := tomlrepo.NewRepository(cfg)
	if err != nil {
		return nil, fmt.Errorf("wire account repository: %w", err)
	}
	scheduleRepo, err := tomlrepo.NewScheduleRepository(cfg)
	if err != nil {
		return nil, fmt.Errorf("wire schedule repository: %w", err)
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}

	secretStore, err := chainstore.NewPassFirstWithFileFallback(filepath.Join(homeDir, ".zepp-steps", "secrets"))
	if err != nil {
		return nil, fmt.Errorf("wire secret store chain: %w", err)
	}

	httpClient := transport.New(transport.Options{
		IssuerURL:   os.Getenv("ZS_PROXY_ISSUER"),
		UserAgent:   os.Getenv("ZS_USER_AGENT"),
		SpoofIP:     envBool("ZS_SPOOF_IP"),
		MaxRPS:      envFloat("ZS_MAX_RPS"),
		MaxAttempts: envInt("ZS_MAX_ATTEMPTS"),
	})
	remote := zepp.NewClient(httpClient, endpointsFromEnv())

	var engine ports.OCREngine
	if command := strings.Fields(os.Getenv("ZS_OCR_COMMAND")); len(command) > 0 {
		engine = execocr.New(command[0], command[1:]...)
	}

	clock := ports.SystemClock{}

	return &app{
		accounts:       application.NewAccountService(accountRepo, secretStore, scheduleRepo, remote, clock),
		schedules:      application.NewScheduleService(scheduleRepo, accountRepo, clock),
		submissions:    application.NewSubmissionService(accountRepo, secretStore, remote, clock),
		challenges:     application.NewChallengeLedger(clock),
		resolver:       captcha.NewResolver(remote, engine),
		remote:         remote,
		scheduleRepo:   scheduleRepo,
		secretStore:    secretStore,
		statusRenderer: statusadapter.Render,
		pacerInterval:  envDuration("ZS_PACER_INTERVAL", pacer.DefaultInterval),
		now:            time.Now,
	}, nil
}

func endpointsFromEnv() zepp.Endpoints {
	eps := zepp.DefaultEndpoints()
	eps.Auth = envOrDefault("ZS_AUTH_URL", eps.Auth)
	eps.Account = envOrDefault("ZS_ACCOUNT_URL", eps.Account)
	eps.AccountCN = envOrDefault("ZS_ACCOUNT_CN_URL", eps.AccountCN)
	eps.User = envOrDefault("ZS_USER_URL", eps.User)
	eps.Data = envOrDefault("ZS_DATA_URL", eps.Data)
	eps.Bind = envOrDefault("ZS_BIND_URL", eps.Bind)
	return eps
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envBool(key string) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	return err == nil && v
}

func envFloat(key string) float64 {
	v, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return 0
	}
	return v
}

func envInt(key string) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return 0
	}
	return v
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
