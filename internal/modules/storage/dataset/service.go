package dataset

import (
	"context"
	"io"
	"mime/multipart"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/reviewinsight/server/internal/models"
	"github.com/reviewinsight/server/internal/pkg/apperr"
)

// Service turns uploaded spreadsheets into stored datasets.
type Service struct {
	store     Store
	mirror    Mirror
	uploadDir string
	maxBytes  int64
	logger    *zap.Logger
	now       func() time.Time
}

// NewService wires the dataset service. mirror may be nil.
func NewService(store Store, mirror Mirror, uploadDir string, maxBytes int64, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:     store,
		mirror:    mirror,
		uploadDir: uploadDir,
		maxBytes:  maxBytes,
		logger:    logger,
		now:       time.Now,
	}
}

// IngestFile reads a multipart upload and ingests it.
func (s *Service) IngestFile(ctx context.Context, fh *multipart.FileHeader) (*models.Dataset, error) {
	if fh == nil || strings.TrimSpace(fh.Filename) == "" {
		return nil, apperr.Upload("no file selected")
	}
	if s.maxBytes > 0 && fh.Size > s.maxBytes {
		return nil, apperr.Upload("file is larger than %d MB", s.maxBytes>>20)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, apperr.Upload("open upload: %v", err)
	}
	defer f.Close()

	payload, err := io.ReadAll(io.LimitReader(f, s.limit()))
	if err != nil {
		return nil, apperr.Upload("read upload: %v", err)
	}
	return s.Ingest(ctx, fh.Filename, payload)
}

func (s *Service) limit() int64 {
	if s.maxBytes > 0 {
		return s.maxBytes + 1
	}
	return 1 << 40
}

// Ingest validates the sheet, stores the file under its fixed name, and
// registers a new dataset.
func (s *Service) Ingest(ctx context.Context, fileName string, payload []byte) (*models.Dataset, error) {
	if s.maxBytes > 0 && int64(len(payload)) > s.maxBytes {
		return nil, apperr.Upload("file is larger than %d MB", s.maxBytes>>20)
	}
	sheet, err := ReadSheet(fileName, payload)
	if err != nil {
		return nil, err
	}
	ext := sheet.Ext

	path, err := SaveLocal(s.uploadDir, ext, payload)
	if err != nil {
		return nil, err
	}
	if s.mirror != nil {
		// The local copy is authoritative; a failed mirror only logs.
		if err := s.mirror.Put(ctx, StoredBaseName+ext, payload, ContentType(ext)); err != nil {
			s.logger.Warn("upload mirror failed", zap.String("file", fileName), zap.Error(err))
		}
	}

	ds := &models.Dataset{
		ID:         uuid.NewString(),
		FileName:   fileName,
		Reviews:    sheet.Reviews,
		Ratings:    sheet.Ratings,
		HasRating:  sheet.HasRating,
		Hash:       models.ContentHash(sheet.Reviews),
		UploadedAt: s.now(),
	}
	if err := s.store.Put(ctx, ds); err != nil {
		return nil, err
	}
	s.logger.Info("dataset ingested",
		zap.String("id", ds.ID),
		zap.String("file", fileName),
		zap.String("stored", path),
		zap.Int("reviews", len(ds.Reviews)),
		zap.Bool("has_rating", ds.HasRating),
	)
	return ds, nil
}

// Get loads a dataset by ID.
func (s *Service) Get(ctx context.Context, id string) (*models.Dataset, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperr.NotFound("no dataset selected, upload a file first")
	}
	return s.store.Get(ctx, id)
}
