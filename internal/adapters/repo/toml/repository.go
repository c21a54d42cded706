package toml

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"

	"github.com/bnema/zepp-steps-cli/internal/domain"
	"github.com/bnema/zepp-steps-cli/internal/ports"
)

const (
	configName         = "config"
	configType         = "toml"
	accountsPathKey    = "accounts.path"
	storeFileMode      = 0o600
	storeDirMode       = 0o700
	appConfigDir       = ".zepp-steps"
	accountsConfigFile = "accounts.toml"
	tempFilePattern    = ".store-*.toml.tmp"
)

// Repository persists accounts to a single TOML file, replaced atomically on
// every write.
type Repository struct {
	accountsPath string
	mu           *sync.RWMutex
}

var (
	lockRegistryMu sync.Mutex
	pathLockMap    = map[string]*sync.RWMutex{}
)

var _ ports.AccountRepository = (*Repository)(nil)

func NewRepository(cfg *viper.Viper) (*Repository, error) {
	if cfg == nil {
		cfg = viper.New()
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}

	defaultPath := filepath.Join(homeDir, appConfigDir, accountsConfigFile)

	cfg.SetConfigName(configName)
	cfg.SetConfigType(configType)
	cfg.AddConfigPath(filepath.Join(homeDir, appConfigDir))
	cfg.SetDefault(accountsPathKey, defaultPath)

	err = cfg.ReadInConfig()
	if err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	accountsPath := cfg.GetString(accountsPathKey)
	if accountsPath == "" {
		return nil, errors.New("accounts path is empty")
	}
	accountsPath, err = normalizeStorePath(accountsPath)
	if err != nil {
		return nil, err
	}

	return &Repository{accountsPath: accountsPath, mu: lockForPath(accountsPath)}, nil
}

func (r *Repository) Save(ctx context.Context, account domain.Account) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	file, err := r.readSchema()
	if err != nil {
		return err
	}
	file.applyDefaults()

	encoded := toSchema(account)
	updated := false
	for i := range file.Accounts {
		if file.Accounts[i].ID == encoded.ID {
			file.Accounts[i] = encoded
			updated = true
			break
		}
	}

	if !updated {
		file.Accounts = append(file.Accounts, encoded)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	return writeTOMLFile(r.accountsPath, file)
}

func (r *Repository) GetByID(ctx context.Context, id domain.AccountID) (domain.Account, error) {
	if err := ctx.Err(); err != nil {
		return domain.Account{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	file, err := r.readSchema()
	if err != nil {
		return domain.Account{}, err
	}

	for _, entry := range file.Accounts {
		if entry.ID == string(id) {
			return fromSchema(entry), nil
		}
	}

	return domain.Account{}, domain.ErrAccountNotFound
}

func (r *Repository) List(ctx context.Context) ([]domain.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	file, err := r.readSchema()
	if err != nil {
		return nil, err
	}

	accounts := make([]domain.Account, 0, len(file.Accounts))
	for _, entry := range file.Accounts {
		accounts = append(accounts, fromSchema(entry))
	}

	return accounts, nil
}

func (r *Repository) readSchema() (accountsFileSchema, error) {
	data, err := os.ReadFile(r.accountsPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return accountsFileSchema{}, nil
		}
		return accountsFileSchema{}, fmt.Errorf("read accounts file: %w", err)
	}

	var file accountsFileSchema
	if err := toml.Unmarshal(data, &file); err != nil {
		return accountsFileSchema{}, fmt.Errorf("decode accounts file: %w", err)
	}
	if err := file.validateVersion(); err != nil {
		return accountsFileSchema{}, err
	}
	file.applyDefaults()

	return file, nil
}

func normalizeStorePath(path string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve store path: %w", err)
	}

	return filepath.Clean(absPath), nil
}

func lockForPath(path string) *sync.RWMutex {
	lockRegistryMu.Lock()
	defer lockRegistryMu.Unlock()

	if mu, ok := pathLockMap[path]; ok {
		return mu
	}

	mu := &sync.RWMutex{}
	pathLockMap[path] = mu
	return mu
}

func writeTOMLFile(path string, file any) error {
	if err := os.MkdirAll(filepath.Dir(path), storeDirMode); err != nil {
		return fmt.Errorf("create store directory: %w", err)
	}

	data, err := toml.Marshal(file)
	if err != nil {
		return fmt.Errorf("encode store file: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(path), tempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp store file: %w", err)
	}

	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp store file: %w", err)
	}

	if err := tempFile.Chmod(storeFileMode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp store file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp store file: %w", err)
	}

	if err := os.Rename(tempName, path); err != nil {
		return fmt.Errorf("replace store file: %w", err)
	}

	cleanup = false

	if err := os.Chmod(path, storeFileMode); err != nil {
		return fmt.Errorf("chmod store file: %w", err)
	}

	return nil
}

func toSchema(account domain.Account) accountSchema {
	encoded := accountSchema{
		ID:   string(account.ID),
		Name: account.Name,
		Identity: identitySchema{
			Value: account.Identity.Value,
			Kind:  string(account.Identity.Kind),
		},
		Auth: authSchema{
			SecretRef: account.Auth.SecretRef,
		},
		Remote: remoteSchema{
			UserID:       account.Remote.UserID,
			DeviceID:     account.Remote.DeviceID,
			Bound:        account.Remote.Bound,
			RegisteredAt: formatTime(account.Remote.RegisteredAt),
		},
	}

	if account.Session != nil {
		encoded.Session = &sessionSchema{
			DeviceID:   account.Session.DeviceID,
			UserID:     account.Session.UserID,
			LoginToken: account.Session.LoginToken,
			AppToken:   account.Session.AppToken,
			ObtainedAt: formatTime(account.Session.ObtainedAt),
		}
	}

	if account.LastSubmission != nil {
		encoded.LastSubmission = &submissionSchema{
			Steps:   account.LastSubmission.Steps,
			Success: account.LastSubmission.Success,
			Message: account.LastSubmission.Message,
			At:      formatTime(account.LastSubmission.At),
		}
	}

	return encoded
}

func fromSchema(account accountSchema) domain.Account {
	decoded := domain.Account{
		ID:   domain.AccountID(account.ID),
		Name: account.Name,
		Identity: domain.Identity{
			Value: account.Identity.Value,
			Kind:  domain.IdentityKind(account.Identity.Kind),
		},
		Auth: domain.Auth{
			SecretRef: account.Auth.SecretRef,
		},
		Remote: domain.RemoteAccount{
			UserID:       account.Remote.UserID,
			DeviceID:     account.Remote.DeviceID,
			Bound:        account.Remote.Bound,
			RegisteredAt: parseTime(account.Remote.RegisteredAt),
		},
	}

	if account.Session != nil {
		decoded.Session = &domain.Session{
			DeviceID:   account.Session.DeviceID,
			UserID:     account.Session.UserID,
			LoginToken: account.Session.LoginToken,
			AppToken:   account.Session.AppToken,
			ObtainedAt: parseTime(account.Session.ObtainedAt),
		}
	}

	if account.LastSubmission != nil {
		decoded.LastSubmission = &domain.Submission{
			Steps:   account.LastSubmission.Steps,
			Success: account.LastSubmission.Success,
			Message: account.LastSubmission.Message,
			At:      parseTime(account.LastSubmission.At),
		}
	}

	return decoded
}

func parseTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}

	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}
	}

	return parsed
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}

	return value.Format(time.RFC3339)
}
