package minio

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/DRSN-tech/cryptoshop-bot/internal/cfg"
	"github.com/DRSN-tech/cryptoshop-bot/internal/domain"
	"github.com/DRSN-tech/cryptoshop-bot/internal/infrastructure"
	"github.com/DRSN-tech/cryptoshop-bot/internal/usecase"
	"github.com/DRSN-tech/cryptoshop-bot/pkg/e"
	"github.com/DRSN-tech/cryptoshop-bot/pkg/jitter"
	"github.com/DRSN-tech/cryptoshop-bot/pkg/logger"
	"github.com/google/uuid"
)

const (
	uploadAttempts  = 3
	cleanupAttempts = 3
	baseBackoff     = 200 * time.Millisecond
	maxBackoff      = 2 * time.Second
)

// MinioInfrastructure управляет загрузкой и очисткой изображений товаров в MinIO.
type MinioInfrastructure struct {
	minioRepo   usecase.ImageRepository
	cfg         *cfg.MinIOCfg
	logger      logger.Logger
	shutdownCtx context.Context
	wg          sync.WaitGroup
	backoff     func(attempt int) time.Duration
}

func NewMinioInfrastructure(minioRepo usecase.ImageRepository, cfg *cfg.MinIOCfg, logger logger.Logger, shutdownCtx context.Context) *MinioInfrastructure {
	return &MinioInfrastructure{
		minioRepo:   minioRepo,
		cfg:         cfg,
		logger:      logger,
		shutdownCtx: shutdownCtx,
		backoff: func(attempt int) time.Duration {
			return jitter.ExponentialBackoff(baseBackoff, maxBackoff, attempt, jitter.DefaultJitter)
		},
	}
}

// UploadImage проверяет тип и размер изображения и загружает его под ключом products/<owner>/<uuid>.<ext>.
// Временные ошибки MinIO повторяются с экспоненциальной задержкой.
func (m *MinioInfrastructure) UploadImage(ctx context.Context, req *usecase.UploadImageReq) (domain.ImageRef, error) {
	const op = "MinioInfrastructure.UploadImage"

	data := req.Image.Data
	if len(data) == 0 {
		return "", e.Wrap(op, e.ErrImageExpected)
	}
	if m.cfg.MaxImageSize > 0 && int64(len(data)) > m.cfg.MaxImageSize {
		return "", e.Wrap(op, e.ErrImageTooLarge)
	}

	mime := infrastructure.DetectMIME(req.Image.MimeType, data)
	ext, err := infrastructure.GetExtensionFromMIME(mime)
	if err != nil {
		return "", e.Wrap(op, fmt.Errorf("invalid mime type %s: %w", mime, err))
	}

	objKey := fmt.Sprintf("products/%d/%s.%s", req.OwnerID, uuid.NewString(), ext)
	image := domain.NewImage(objKey, data, mime)

	var lastErr error
	for attempt := 0; attempt < uploadAttempts; attempt++ {
		key, err := m.minioRepo.Upload(ctx, image)
		if err == nil {
			return domain.ImageRef(key), nil
		}
		lastErr = err
		m.logger.Warnf("Image upload attempt %d failed. key: %s, error: %v", attempt+1, objKey, err)

		if attempt < uploadAttempts-1 {
			if err := jitter.Sleep(ctx, m.backoff(attempt)); err != nil {
				return "", e.Wrap(op, err)
			}
		}
	}

	return "", e.Wrap(op, lastErr)
}

// CleanupImages запускает фоновую очистку указанных ключей MinIO
func (m *MinioInfrastructure) CleanupImages(refs []domain.ImageRef) {
	if len(refs) == 0 {
		return
	}
	m.wg.Add(1)
	go m.cleanupUploadedKeys(refs)
}

// cleanupUploadedKeys удаляет указанные объекты из MinIO с экспоненциальной задержкой и jitter.
func (m *MinioInfrastructure) cleanupUploadedKeys(refs []domain.ImageRef) {
	defer m.wg.Done()
	const op = "MinioInfrastructure.cleanupUploadedKeys"
	m.logger.Infof("%s: Cleaning up %d uploaded keys", op, len(refs))

	ctx, cancel := context.WithTimeout(m.shutdownCtx, 30*time.Second)
	defer cancel()

	for _, ref := range refs {
		for attempt := 0; attempt < cleanupAttempts; attempt++ {
			err := m.minioRepo.Delete(ctx, string(ref))
			if err == nil {
				break
			}

			if attempt == cleanupAttempts-1 {
				m.logger.Errorf(err, "%s: giving up on key=%s", op, ref)
				break
			}

			if err := jitter.Sleep(ctx, m.backoff(attempt)); err != nil {
				m.logger.Warnf("cleanup interrupted by shutdown during backoff, key=%v", ref)
				return
			}
		}
	}
}

// WaitForCleanup ожидает завершения всех фоновых задач очистки с учётом таймаута завершения приложения.
func (m *MinioInfrastructure) WaitForCleanup(shutdownTimeoutCtx context.Context) error {
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-shutdownTimeoutCtx.Done():
		return fmt.Errorf("minio cleanup timeout during shutdown: %w", shutdownTimeoutCtx.Err())
	}
}
