package services

import (
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
)

const (
	fileCacheTTL     = 30 * time.Minute
	fileCacheCleanup = 10 * time.Minute
)

// CachedFile holds the extracted text of one uploaded document, keyed to the
// session it was uploaded for. Only the extraction survives; raw bytes are
// not retained past the request.
type CachedFile struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"session_id"`
	Filename   string    `json:"filename"`
	MimeType   string    `json:"mime_type"`
	Size       int64     `json:"size"`
	Text       string    `json:"text"`
	Truncated  bool      `json:"truncated"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// FileCache is a TTL cache of upload extractions
type FileCache struct {
	cache *gocache.Cache
}

// NewFileCache creates the upload extraction cache
func NewFileCache() *FileCache {
	c := gocache.New(fileCacheTTL, fileCacheCleanup)
	c.OnEvicted(func(key string, value interface{}) {
		if f, ok := value.(*CachedFile); ok {
			log.Printf("🧹 [FILE-CACHE] Evicted %s (%s, session %s)", key, f.Filename, f.SessionID)
		}
	})
	return &FileCache{cache: c}
}

// Store caches an extraction and returns its generated file id
func (fc *FileCache) Store(sessionID, filename, mimeType string, size int64, text string, truncated bool) *CachedFile {
	f := &CachedFile{
		ID:         uuid.New().String(),
		SessionID:  sessionID,
		Filename:   filename,
		MimeType:   mimeType,
		Size:       size,
		Text:       text,
		Truncated:  truncated,
		UploadedAt: time.Now(),
	}
	fc.cache.Set(f.ID, f, gocache.DefaultExpiration)
	log.Printf("📎 [FILE-CACHE] Stored %s (%s, %d bytes of text)", f.ID, filename, len(text))
	return f
}

// Get retrieves a cached extraction by file id
func (fc *FileCache) Get(fileID string) (*CachedFile, error) {
	value, found := fc.cache.Get(fileID)
	if !found {
		return nil, fmt.Errorf("file %s not found or expired", fileID)
	}
	f, ok := value.(*CachedFile)
	if !ok {
		return nil, fmt.Errorf("invalid cache entry for file %s", fileID)
	}
	return f, nil
}

// FilesForSession returns all live extractions uploaded for a session
func (fc *FileCache) FilesForSession(sessionID string) []*CachedFile {
	var files []*CachedFile
	for _, item := range fc.cache.Items() {
		if f, ok := item.Object.(*CachedFile); ok && f.SessionID == sessionID {
			files = append(files, f)
		}
	}
	return files
}

// Delete removes a cached extraction
func (fc *FileCache) Delete(fileID string) {
	fc.cache.Delete(fileID)
}
