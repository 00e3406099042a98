// Package storage keeps a history of calculation results.
// Supports file and in-memory backends.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"embroidery-pricing/core/determinism"
	"embroidery-pricing/core/money"
	"embroidery-pricing/internal/errors"
)

// Backend is a storage backend type
type Backend string

const (
	BackendFile   Backend = "file"
	BackendMemory Backend = "memory"
	BackendNone   Backend = "none"
)

// Store is the storage interface
type Store interface {
	// Save stores a calculation record, assigning ID and CreatedAt if unset
	Save(ctx context.Context, record *Record) error

	// Get retrieves a record by ID
	Get(ctx context.Context, id string) (*Record, error)

	// List lists records newest first
	List(ctx context.Context, filter *ListFilter) ([]*Record, error)

	// Delete removes a record
	Delete(ctx context.Context, id string) error

	// Latest returns the newest record for a tenant and kind
	Latest(ctx context.Context, tenantID, kind string) (*Record, error)

	// Compare compares the totals of two records
	Compare(ctx context.Context, oldID, newID string) (*CompareResult, error)

	// Close closes the store
	Close() error
}

// Record is a stored calculation
type Record struct {
	ID string `json:"id"`

	// Kind is the calculation kind (shipping, rates, pricing, digitizing)
	Kind string `json:"kind"`

	TenantID  string `json:"tenant_id"`
	ProfileID string `json:"profile_id,omitempty"`

	Total money.Money `json:"total"`

	// Fingerprint is a stable hash of the request; equal requests share it
	Fingerprint string `json:"fingerprint"`

	Request json.RawMessage `json:"request,omitempty"`
	Result  json.RawMessage `json:"result"`

	CreatedAt time.Time `json:"created_at"`
}

// NewRecord builds a record from a request and its result
func NewRecord(kind, tenantID, profileID string, total money.Money, request, result any) (*Record, error) {
	fp, err := determinism.Fingerprint(kind, request)
	if err != nil {
		return nil, errors.Internal("fingerprint request", err)
	}
	req, err := json.Marshal(request)
	if err != nil {
		return nil, errors.Internal("encode request", err)
	}
	res, err := json.Marshal(result)
	if err != nil {
		return nil, errors.Internal("encode result", err)
	}
	return &Record{
		Kind:        kind,
		TenantID:    tenantID,
		ProfileID:   profileID,
		Total:       total,
		Fingerprint: string(fp),
		Request:     req,
		Result:      res,
	}, nil
}

// ListFilter filters record listing
type ListFilter struct {
	TenantID    string
	Kind        string
	Fingerprint string
	Since       time.Time
	Until       time.Time
	Limit       int
	Offset      int
}

func (f *ListFilter) match(r *Record) bool {
	if f == nil {
		return true
	}
	if f.TenantID != "" && r.TenantID != f.TenantID {
		return false
	}
	if f.Kind != "" && r.Kind != f.Kind {
		return false
	}
	if f.Fingerprint != "" && r.Fingerprint != f.Fingerprint {
		return false
	}
	if !f.Since.IsZero() && r.CreatedAt.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && r.CreatedAt.After(f.Until) {
		return false
	}
	return true
}

// page sorts newest first then applies offset and limit
func (f *ListFilter) page(records []*Record) []*Record {
	determinism.SortSlice(records, func(a, b *Record) bool {
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	if f == nil {
		return records
	}
	if f.Offset > 0 {
		if f.Offset >= len(records) {
			return nil
		}
		records = records[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(records) {
		records = records[:f.Limit]
	}
	return records
}

// CompareResult is a comparison between two records
type CompareResult struct {
	OldID        string      `json:"old_id"`
	NewID        string      `json:"new_id"`
	OldTotal     money.Money `json:"old_total"`
	NewTotal     money.Money `json:"new_total"`
	Delta        money.Money `json:"delta"`
	DeltaPercent money.Money `json:"delta_percent"`
	SameRequest  bool        `json:"same_request"`
}

func compare(oldRecord, newRecord *Record) *CompareResult {
	delta := newRecord.Total.Sub(oldRecord.Total)
	pct := money.Zero()
	if oldRecord.Total.IsPositive() {
		pct = delta.MulRatio(money.FromInt(100).Decimal(), oldRecord.Total.Decimal()).Round()
	}
	return &CompareResult{
		OldID:        oldRecord.ID,
		NewID:        newRecord.ID,
		OldTotal:     oldRecord.Total,
		NewTotal:     newRecord.Total,
		Delta:        delta,
		DeltaPercent: pct,
		SameRequest:  oldRecord.Fingerprint == newRecord.Fingerprint,
	}
}

func prepare(record *Record) {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
}

// FileStore is a file-based storage backend, one JSON file per record
// under a directory per tenant
type FileStore struct {
	basePath string
	mu       sync.RWMutex
}

// NewFileStore creates a file store
func NewFileStore(basePath string) (*FileStore, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, errors.Storage("create storage directory", err)
	}
	return &FileStore{basePath: basePath}, nil
}

// tenantDir maps a tenant to its directory name
func tenantDir(tenantID string) (string, error) {
	if tenantID == "" {
		return "_", nil
	}
	if tenantID == "." || tenantID == ".." || strings.ContainsAny(tenantID, `/\`) {
		return "", errors.DomainInput(fmt.Sprintf("tenant id %q cannot be stored", tenantID))
	}
	return tenantID, nil
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func (s *FileStore) Save(ctx context.Context, record *Record) error {
	dir, err := tenantDir(record.TenantID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prepare(record)
	if !validID(record.ID) {
		return errors.DomainInput(fmt.Sprintf("record id %q is not a uuid", record.ID))
	}

	tenantPath := filepath.Join(s.basePath, dir)
	if err := os.MkdirAll(tenantPath, 0755); err != nil {
		return errors.Storage("create tenant directory", err)
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return errors.Internal("marshal record", err)
	}

	if err := os.WriteFile(filepath.Join(tenantPath, record.ID+".json"), data, 0644); err != nil {
		return errors.Storage("write record", err)
	}
	return nil
}

// find returns the file path of a record, or "" when absent
func (s *FileStore) find(id string) (string, error) {
	if !validID(id) {
		return "", nil
	}
	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		return "", errors.Storage("read storage", err)
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		path := filepath.Join(s.basePath, entry.Name(), id+".json")
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", nil
}

func readRecord(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Storage("read record", err)
	}
	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, errors.Storage("unmarshal record", err)
	}
	return &record, nil
}

func (s *FileStore) Get(ctx context.Context, id string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	path, err := s.find(id)
	if err != nil {
		return nil, err
	}
	if path == "" {
		return nil, errors.NotFound("calculation", id)
	}
	return readRecord(path)
}

func (s *FileStore) List(ctx context.Context, filter *ListFilter) ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	root := s.basePath
	if filter != nil && filter.TenantID != "" {
		dir, err := tenantDir(filter.TenantID)
		if err != nil {
			return nil, err
		}
		root = filepath.Join(s.basePath, dir)
	}

	var records []*Record
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return filepath.SkipDir
			}
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".json" {
			return nil
		}
		record, err := readRecord(path)
		if err != nil {
			return nil // Skip unreadable files
		}
		if filter.match(record) {
			records = append(records, record)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Storage("walk storage", err)
	}

	return filter.page(records), nil
}

func (s *FileStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path, err := s.find(id)
	if err != nil {
		return err
	}
	if path == "" {
		return errors.NotFound("calculation", id)
	}
	if err := os.Remove(path); err != nil {
		return errors.Storage("delete record", err)
	}
	return nil
}

func (s *FileStore) Latest(ctx context.Context, tenantID, kind string) (*Record, error) {
	records, err := s.List(ctx, &ListFilter{TenantID: tenantID, Kind: kind, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errors.NotFound("calculation", tenantID+"/"+kind)
	}
	return records[0], nil
}

func (s *FileStore) Compare(ctx context.Context, oldID, newID string) (*CompareResult, error) {
	oldRecord, err := s.Get(ctx, oldID)
	if err != nil {
		return nil, err
	}
	newRecord, err := s.Get(ctx, newID)
	if err != nil {
		return nil, err
	}
	return compare(oldRecord, newRecord), nil
}

func (s *FileStore) Close() error {
	return nil
}

// MemoryStore is an in-memory storage backend
type MemoryStore struct {
	records map[string]*Record
	mu      sync.RWMutex
}

// NewMemoryStore creates a memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]*Record),
	}
}

func (s *MemoryStore) Save(ctx context.Context, record *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prepare(record)
	stored := *record
	s.records[record.ID] = &stored
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[id]
	if !ok {
		return nil, errors.NotFound("calculation", id)
	}
	out := *record
	return &out, nil
}

func (s *MemoryStore) List(ctx context.Context, filter *ListFilter) ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var records []*Record
	for _, record := range s.records {
		if filter.match(record) {
			out := *record
			records = append(records, &out)
		}
	}
	return filter.page(records), nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[id]; !ok {
		return errors.NotFound("calculation", id)
	}
	delete(s.records, id)
	return nil
}

func (s *MemoryStore) Latest(ctx context.Context, tenantID, kind string) (*Record, error) {
	records, err := s.List(ctx, &ListFilter{TenantID: tenantID, Kind: kind, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errors.NotFound("calculation", tenantID+"/"+kind)
	}
	return records[0], nil
}

func (s *MemoryStore) Compare(ctx context.Context, oldID, newID string) (*CompareResult, error) {
	oldRecord, err := s.Get(ctx, oldID)
	if err != nil {
		return nil, err
	}
	newRecord, err := s.Get(ctx, newID)
	if err != nil {
		return nil, err
	}
	return compare(oldRecord, newRecord), nil
}

func (s *MemoryStore) Close() error {
	return nil
}

// StoreFactory creates stores by backend type. BackendNone yields a nil store.
func StoreFactory(backend Backend, path string) (Store, error) {
	switch backend {
	case BackendFile:
		if path == "" {
			path = ".embroidery-pricing/calculations"
		}
		return NewFileStore(path)
	case BackendMemory:
		return NewMemoryStore(), nil
	case BackendNone:
		return nil, nil
	default:
		return nil, errors.InvalidConfiguration(fmt.Sprintf("unsupported storage backend: %s", backend), nil)
	}
}

// Ensure interfaces are implemented
var _ io.Closer = (*FileStore)(nil)
var _ io.Closer = (*MemoryStore)(nil)
var _ Store = (*FileStore)(nil)
var _ Store = (*MemoryStore)(nil)
