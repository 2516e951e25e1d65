package services

import (
	"log/slog"

	"github.com/SAP-F-2025/toeic-import-service/internal/cache"
	"github.com/SAP-F-2025/toeic-import-service/internal/config"
	"github.com/SAP-F-2025/toeic-import-service/internal/events"
	"github.com/SAP-F-2025/toeic-import-service/internal/repositories"
	"github.com/SAP-F-2025/toeic-import-service/internal/validator"
)

// ServiceManager groups the services used by the HTTP layer
type ServiceManager interface {
	Import() ImportService
	Template() TemplateService
	Export() ExportService
	Passage() PassageService
	Sessions() *SessionRegistry
}

type serviceManager struct {
	importService   ImportService
	templateService TemplateService
	exportService   ExportService
	passageService  PassageService
	sessions        *SessionRegistry
}

func NewServiceManager(
	repo repositories.Repository,
	progress *cache.ProgressCache,
	publisher events.EventPublisher,
	validator *validator.Validator,
	cfg config.ImportConfig,
	logger *slog.Logger,
) ServiceManager {
	sessions := NewSessionRegistry(cfg.SessionTTL)
	importer := NewBatchImporter(repo, cfg, logger)

	return &serviceManager{
		importService:   NewImportService(repo, sessions, importer, progress, publisher, validator, cfg, logger),
		templateService: NewTemplateService(),
		exportService:   NewExportService(repo, logger),
		passageService:  NewPassageService(repo, logger, validator),
		sessions:        sessions,
	}
}

func (m *serviceManager) Import() ImportService      { return m.importService }
func (m *serviceManager) Template() TemplateService  { return m.templateService }
func (m *serviceManager) Export() ExportService      { return m.exportService }
func (m *serviceManager) Passage() PassageService    { return m.passageService }
func (m *serviceManager) Sessions() *SessionRegistry { return m.sessions }
