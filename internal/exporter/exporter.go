package exporter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/adilyoltay/obsleessless-mobile-sub000/internal/assessment"
	"github.com/adilyoltay/obsleessless-mobile-sub000/internal/config"
	"github.com/adilyoltay/obsleessless-mobile-sub000/internal/domain"
	"github.com/adilyoltay/obsleessless-mobile-sub000/internal/models"
)

// ErrInvalidBundle rejects an import document missing required keys.
var ErrInvalidBundle = errors.New("exporter: invalid bundle")

// requiredKeys are the top-level members every import must carry.
var requiredKeys = []string{"exportDate", "version", "user", "progress", "analytics"}

// Analytics groups the activity logs inside a bundle.
type Analytics struct {
	Compulsions []models.Compulsion `json:"compulsions"`
	ERPSessions []models.ERPSession `json:"erp_sessions"`
	Assessments []assessment.Result `json:"assessments"`
}

// Bundle is the single JSON document offered for download/share.
type Bundle struct {
	ExportDate time.Time            `json:"exportDate"`
	Version    string               `json:"version"`
	User       *models.UserProfile  `json:"user"`
	Progress   *models.UserProgress `json:"progress"`
	Analytics  Analytics            `json:"analytics"`
}

// Service bundles and restores the whole local dataset. Every import is
// preceded by an automatic backup snapshot so a bad file cannot destroy
// state irrecoverably.
type Service struct {
	store  domain.Store
	config config.BackupConfig
	logger *zerolog.Logger
	now    func() time.Time
}

func NewService(store domain.Store, cfg config.BackupConfig, logger *zerolog.Logger) *Service {
	return &Service{store: store, config: cfg, logger: logger, now: time.Now}
}

// Export assembles the user's full dataset into one bundle.
func (s *Service) Export(ctx context.Context, userID string) (*Bundle, error) {
	bundle := &Bundle{
		ExportDate: s.now(),
		Version:    models.ExportVersion,
		User:       &models.UserProfile{ID: userID},
		Progress:   &models.UserProgress{UserID: userID},
		Analytics: Analytics{
			Compulsions: []models.Compulsion{},
			ERPSessions: []models.ERPSession{},
			Assessments: []assessment.Result{},
		},
	}

	if err := s.loadJSON(ctx, models.KeyProfile(userID), bundle.User); err != nil {
		return nil, err
	}
	if err := s.loadJSON(ctx, models.KeyProgress(userID), bundle.Progress); err != nil {
		return nil, err
	}
	if err := s.loadJSON(ctx, models.KeyCompulsions(userID), &bundle.Analytics.Compulsions); err != nil {
		return nil, err
	}
	if err := s.loadJSON(ctx, models.KeyERPSessions(userID), &bundle.Analytics.ERPSessions); err != nil {
		return nil, err
	}
	if err := s.loadJSON(ctx, models.KeyAssessments(userID), &bundle.Analytics.Assessments); err != nil {
		return nil, err
	}

	return bundle, nil
}

// WriteFile exports to a JSON file the user can share.
func (s *Service) WriteFile(ctx context.Context, userID, path string) error {
	bundle, err := s.Export(ctx, userID)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return fmt.Errorf("encode bundle: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write bundle: %w", err)
	}
	s.logger.Info().Str("user", userID).Str("path", path).Msg("export written")
	return nil
}

// Import validates the document, snapshots current state into the backup
// directory, then overwrites local state in one atomic store write.
func (s *Service) Import(ctx context.Context, userID string, data []byte) error {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBundle, err)
	}
	for _, key := range requiredKeys {
		if _, ok := probe[key]; !ok {
			return fmt.Errorf("%w: missing %q", ErrInvalidBundle, key)
		}
	}

	var bundle Bundle
	if err := json.Unmarshal(data, &bundle); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBundle, err)
	}

	backupPath, err := s.Snapshot(ctx, userID)
	if err != nil {
		return fmt.Errorf("pre-import backup: %w", err)
	}
	s.logger.Info().Str("user", userID).Str("backup", backupPath).Msg("pre-import backup taken")

	pairs := make(map[string]string, 5)
	if err := addPair(pairs, models.KeyProfile(userID), bundle.User); err != nil {
		return err
	}
	if err := addPair(pairs, models.KeyProgress(userID), bundle.Progress); err != nil {
		return err
	}
	if err := addPair(pairs, models.KeyCompulsions(userID), bundle.Analytics.Compulsions); err != nil {
		return err
	}
	if err := addPair(pairs, models.KeyERPSessions(userID), bundle.Analytics.ERPSessions); err != nil {
		return err
	}
	if err := addPair(pairs, models.KeyAssessments(userID), bundle.Analytics.Assessments); err != nil {
		return err
	}

	if err := s.store.SetMulti(ctx, pairs); err != nil {
		return fmt.Errorf("overwrite local state: %w", err)
	}
	s.logger.Info().Str("user", userID).Msg("import applied")
	return nil
}

// Snapshot writes the current dataset to a timestamped file in the
// backup directory and prunes expired snapshots.
func (s *Service) Snapshot(ctx context.Context, userID string) (string, error) {
	if err := os.MkdirAll(s.config.StoragePath, 0o755); err != nil {
		return "", fmt.Errorf("create backup directory: %w", err)
	}

	bundle, err := s.Export(ctx, userID)
	if err != nil {
		return "", err
	}
	data, err := json.Marshal(bundle)
	if err != nil {
		return "", fmt.Errorf("encode backup: %w", err)
	}

	timestamp := s.now().Format("20060102_150405")
	path := filepath.Join(s.config.StoragePath, fmt.Sprintf("backup_%s_%s.json", userID, timestamp))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write backup: %w", err)
	}

	s.CleanupOldBackups()
	return path, nil
}

// CleanupOldBackups removes snapshots older than the retention window.
func (s *Service) CleanupOldBackups() {
	if s.config.RetentionDays <= 0 {
		return
	}

	files, err := os.ReadDir(s.config.StoragePath)
	if err != nil {
		s.logger.Error().Err(err).Msg("read backup directory for cleanup failed")
		return
	}

	cutoff := s.now().AddDate(0, 0, -s.config.RetentionDays)
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		info, err := file.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			s.logger.Info().Str("file", file.Name()).Msg("deleting old backup")
			os.Remove(filepath.Join(s.config.StoragePath, file.Name()))
		}
	}
}

func (s *Service) loadJSON(ctx context.Context, key string, target interface{}) error {
	raw, ok, err := s.store.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("get %q: %w", key, err)
	}
	if !ok {
		return nil
	}
	if err := json.Unmarshal([]byte(raw), target); err != nil {
		return fmt.Errorf("decode %q: %w", key, err)
	}
	return nil
}

func addPair(pairs map[string]string, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %q: %w", key, err)
	}
	pairs[key] = string(data)
	return nil
}
