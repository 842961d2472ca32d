package document

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"ledgerline/internal/models"
)

// Export formats accepted by the API
const (
	FormatJSON = "json"
	FormatPDF  = "pdf"
	FormatWord = "word"
	FormatXLSX = "xlsx"
)

// downloadedGrace is how long a downloaded artifact stays on disk before the
// cleanup job removes it
const downloadedGrace = 5 * time.Minute

// Document is one generated export artifact awaiting download
type Document struct {
	ID           string     `json:"id"`
	SessionID    string     `json:"session_id"`
	Format       string     `json:"format"`
	Filename     string     `json:"filename"`
	FilePath     string     `json:"-"`
	ContentType  string     `json:"content_type"`
	Size         int64      `json:"size"`
	DownloadURL  string     `json:"download_url"`
	CreatedAt    time.Time  `json:"created_at"`
	Downloaded   bool       `json:"-"`
	DownloadedAt *time.Time `json:"-"`
}

// Service generates export artifacts and tracks them until they are
// downloaded or expire. Artifacts live on disk under outputDir; the registry
// is in memory only, a restart orphans nothing the cleanup job cannot remove.
type Service struct {
	outputDir string
	ttl       time.Duration

	mu        sync.RWMutex
	documents map[string]*Document
}

// NewService creates the export service. ttl bounds the lifetime of artifacts
// that are never downloaded.
func NewService(outputDir string, ttl time.Duration) (*Service, error) {
	if err := os.MkdirAll(outputDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create export directory: %w", err)
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Service{
		outputDir: outputDir,
		ttl:       ttl,
		documents: make(map[string]*Document),
	}, nil
}

// Export renders a session snapshot in the requested format and registers the
// artifact for download.
func (s *Service) Export(sess *models.Session, format string) (*Document, error) {
	if sess == nil {
		return nil, fmt.Errorf("session not found")
	}

	base := exportBasename(sess.ID)
	var (
		data        []byte
		ext         string
		contentType string
		err         error
	)

	switch format {
	case FormatJSON:
		data, err = json.MarshalIndent(sess, "", "  ")
		ext, contentType = "json", "application/json"
	case FormatPDF:
		data, err = renderPDF(sess)
		ext, contentType = "pdf", "application/pdf"
	case FormatWord:
		data, err = renderDOCX(sess)
		ext, contentType = "docx", "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case FormatXLSX:
		data, err = renderXLSX(sess)
		ext, contentType = "xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to render %s export: %w", format, err)
	}

	docID := uuid.New().String()
	filePath := filepath.Join(s.outputDir, docID+"."+ext)
	if err := os.WriteFile(filePath, data, 0600); err != nil {
		return nil, fmt.Errorf("failed to write export file: %w", err)
	}

	doc := &Document{
		ID:          docID,
		SessionID:   sess.ID,
		Format:      format,
		Filename:    base + "." + ext,
		FilePath:    filePath,
		ContentType: contentType,
		Size:        int64(len(data)),
		DownloadURL: "/api/download/" + docID,
		CreatedAt:   time.Now(),
	}

	s.mu.Lock()
	s.documents[docID] = doc
	s.mu.Unlock()

	log.Printf("📄 [EXPORT] Generated %s export %s (%d bytes)", format, doc.Filename, doc.Size)
	return doc, nil
}

// Get retrieves a registered artifact by id
func (s *Service) Get(docID string) (*Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[docID]
	return doc, ok
}

// MarkDownloaded stamps the artifact so the cleanup job removes it shortly
func (s *Service) MarkDownloaded(docID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if doc, ok := s.documents[docID]; ok {
		now := time.Now()
		doc.Downloaded = true
		doc.DownloadedAt = &now
		log.Printf("✅ [EXPORT] Downloaded %s", doc.Filename)
	}
}

// Cleanup deletes artifacts that were downloaded more than the grace period
// ago, or that outlived the TTL without ever being downloaded. Returns how
// many were removed.
func (s *Service) Cleanup() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	removed := 0

	for id, doc := range s.documents {
		expired := now.Sub(doc.CreatedAt) > s.ttl
		downloaded := doc.Downloaded && doc.DownloadedAt != nil && now.Sub(*doc.DownloadedAt) > downloadedGrace
		if !expired && !downloaded {
			continue
		}

		if err := os.Remove(doc.FilePath); err != nil && !os.IsNotExist(err) {
			log.Printf("⚠️  [EXPORT] Failed to delete %s: %v", doc.FilePath, err)
		}
		delete(s.documents, id)
		removed++
		log.Printf("🗑️  [EXPORT] Removed %s (created %v ago)", doc.Filename, now.Sub(doc.CreatedAt).Round(time.Second))
	}

	if removed > 0 {
		log.Printf("🧹 [EXPORT] Cleaned up %d artifacts", removed)
	}
	return removed
}

// exportBasename derives a stable, filesystem-safe filename stem from the
// session id and generation time.
func exportBasename(sessionID string) string {
	short := sessionID
	if idx := strings.LastIndex(sessionID, "-"); idx >= 0 && idx+1 < len(sessionID) {
		short = sessionID[idx+1:]
	}
	return fmt.Sprintf("advisory-%s-%s", short, time.Now().Format("20060102-150405"))
}
