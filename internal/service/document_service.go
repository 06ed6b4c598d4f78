package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/fieldwork-go-api/internal/dto"
	"github.com/noah-isme/fieldwork-go-api/internal/models"
	"github.com/noah-isme/fieldwork-go-api/internal/repository"
)

// ErrUnknownDocumentSlot indicates the requested slot is not one of the
// tracked compliance documents.
var ErrUnknownDocumentSlot = errors.New("unknown document slot")

// ErrUnsupportedDocumentType indicates the uploaded file is not an accepted format.
var ErrUnsupportedDocumentType = errors.New("unsupported document type")

// FileUploader abstracts uploading binary data and returning a URL.
type FileUploader interface {
	Upload(ctx context.Context, name string, reader io.Reader) (string, error)
}

// DocumentService attaches compliance documents to placements. Storage
// mechanics live behind the FileUploader; the workflow only tracks presence
// and a viewing URL.
type DocumentService interface {
	Attach(ctx context.Context, placementID uint, slot string, file *multipart.FileHeader) (dto.PlacementResponse, error)
}

type documentService struct {
	placements repository.PlacementRepository
	uploader   FileUploader
	logger     zerolog.Logger
}

var documentSlotColumns = map[string]string{
	models.DocumentSlotPolicy:           "policy_document_url",
	models.DocumentSlotLearningContract: "learning_contract_document_url",
	models.DocumentSlotChecklist:        "checklist_document_url",
}

// NewDocumentService constructs the document service.
func NewDocumentService(placements repository.PlacementRepository, uploader FileUploader, logger zerolog.Logger) DocumentService {
	return &documentService{
		placements: placements,
		uploader:   uploader,
		logger:     logger.With().Str("component", "document_service").Logger(),
	}
}

func (s *documentService) Attach(ctx context.Context, placementID uint, slot string, file *multipart.FileHeader) (dto.PlacementResponse, error) {
	column, ok := documentSlotColumns[slot]
	if !ok {
		return dto.PlacementResponse{}, ErrUnknownDocumentSlot
	}

	if file == nil {
		return dto.PlacementResponse{}, fmt.Errorf("document file is required")
	}

	placement, err := s.placements.GetByID(ctx, placementID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.PlacementResponse{}, ErrPlacementNotFound
		}
		return dto.PlacementResponse{}, err
	}

	if err := validateDocumentType(file); err != nil {
		return dto.PlacementResponse{}, err
	}

	reader, err := file.Open()
	if err != nil {
		return dto.PlacementResponse{}, fmt.Errorf("failed to open file: %w", err)
	}
	defer reader.Close()

	uploadURL, err := s.uploader.Upload(ctx, file.Filename, reader)
	if err != nil {
		return dto.PlacementResponse{}, fmt.Errorf("failed to upload document: %w", err)
	}

	if err := s.placements.AttachDocument(ctx, placement.ID, column, uploadURL); err != nil {
		return dto.PlacementResponse{}, err
	}

	s.logger.Info().Uint("placement_id", placement.ID).Str("slot", slot).Msg("compliance document attached")

	updated, err := s.placements.GetByID(ctx, placement.ID)
	if err != nil {
		return dto.PlacementResponse{}, err
	}

	return dto.NewPlacementResponse(updated), nil
}

func validateDocumentType(file *multipart.FileHeader) error {
	reader, err := file.Open()
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer reader.Close()

	mime, err := mimetype.DetectReader(reader)
	if err != nil {
		return fmt.Errorf("failed to detect file type: %w", err)
	}

	allowed := []string{"application/pdf", "image/png", "image/jpeg", "text/plain"}
	for _, a := range allowed {
		if mime.Is(a) {
			return nil
		}
	}

	return fmt.Errorf("%w: %s", ErrUnsupportedDocumentType, mime.String())
}
