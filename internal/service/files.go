package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/iliyamo/account-service/internal/model"
	"github.com/iliyamo/account-service/internal/storage"
)

const (
	defaultFolder = "uploads"

	// maxListLimit bounds a listing page; each item costs one Head call.
	maxListLimit = 100

	metaUploadedBy = "uploaded_by"
	metaFilename   = "original_filename"
)

// FileInfo is what the uploads endpoints report about a stored object.
type FileInfo struct {
	Key          string            `json:"key"`
	Size         int64             `json:"size"`
	ContentType  string            `json:"content_type,omitempty"`
	LastModified time.Time         `json:"last_modified"`
	UploadedBy   string            `json:"uploaded_by,omitempty"`
	Filename     string            `json:"original_filename,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// FilePage is one page of a folder listing.
type FilePage struct {
	Items []FileInfo `json:"items"`
	Page  int        `json:"page"`
	Limit int        `json:"limit"`
	Total int        `json:"total"`
	Pages int        `json:"pages"`
}

// FileOptions bounds uploads. An empty AllowedTypes accepts any type.
type FileOptions struct {
	MaxBytes     int64
	AllowedTypes []string
	URLExpiry    time.Duration
}

// FileService stores user uploads in an ObjectStore.
type FileService struct {
	store storage.ObjectStore
	opts  FileOptions
	log   zerolog.Logger
	now   func() time.Time
}

func NewFileService(store storage.ObjectStore, opts FileOptions, log zerolog.Logger) *FileService {
	if opts.URLExpiry <= 0 {
		opts.URLExpiry = 15 * time.Minute
	}
	return &FileService{store: store, opts: opts, log: log, now: time.Now}
}

// Ping checks that the bucket is reachable.
func (s *FileService) Ping(ctx context.Context) error { return s.store.Ping(ctx) }

// cleanFolder strips surrounding slashes and refuses parent references.
func cleanFolder(folder string) (string, error) {
	folder = strings.Trim(strings.TrimSpace(folder), "/")
	if folder == "" {
		return defaultFolder, nil
	}
	for _, part := range strings.Split(folder, "/") {
		if part == "" || part == "." || part == ".." {
			return "", fmt.Errorf("%w: invalid folder %q", ErrValidation, folder)
		}
	}
	return folder, nil
}

func cleanKey(key string) (string, error) {
	key = strings.TrimPrefix(strings.TrimSpace(key), "/")
	if key == "" || path.Clean("/"+key) != "/"+key {
		return "", fmt.Errorf("%w: invalid file key", ErrValidation)
	}
	return key, nil
}

func (s *FileService) allowed(mt *mimetype.MIME) bool {
	if len(s.opts.AllowedTypes) == 0 {
		return true
	}
	for _, t := range s.opts.AllowedTypes {
		if mt.Is(strings.TrimSpace(t)) {
			return true
		}
	}
	return false
}

// Upload reads the whole body, checks size and detected type, and stores
// it under folder/yyyy/mm/dd/<uuid><ext>.
func (s *FileService) Upload(ctx context.Context, owner model.User, folder, filename string, body io.Reader) (FileInfo, error) {
	folder, err := cleanFolder(folder)
	if err != nil {
		return FileInfo{}, err
	}

	r := body
	if s.opts.MaxBytes > 0 {
		r = io.LimitReader(body, s.opts.MaxBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return FileInfo{}, fmt.Errorf("read upload: %w", err)
	}
	if s.opts.MaxBytes > 0 && int64(len(data)) > s.opts.MaxBytes {
		return FileInfo{}, fmt.Errorf("%w: limit is %d bytes", ErrFileTooLarge, s.opts.MaxBytes)
	}
	if len(data) == 0 {
		return FileInfo{}, fmt.Errorf("%w: empty file", ErrValidation)
	}

	mt := mimetype.Detect(data)
	if !s.allowed(mt) {
		return FileInfo{}, fmt.Errorf("%w: %s", ErrFileTypeNotAllowed, mt.String())
	}
	ext := mt.Extension()
	if ext == "" {
		ext = strings.ToLower(path.Ext(filename))
	}

	now := s.now().UTC()
	key := fmt.Sprintf("%s/%s/%s%s", folder, now.Format("2006/01/02"), uuid.NewString(), ext)
	meta := map[string]string{
		metaUploadedBy: owner.ID,
		metaFilename:   path.Base(filename),
	}
	if err := s.store.Put(ctx, key, bytes.NewReader(data), int64(len(data)), mt.String(), meta); err != nil {
		return FileInfo{}, fmt.Errorf("%w: put object: %w", ErrUnavailable, err)
	}
	s.log.Info().Str("key", key).Str("user_id", owner.ID).Int("size", len(data)).Msg("file uploaded")
	return FileInfo{
		Key:          key,
		Size:         int64(len(data)),
		ContentType:  mt.String(),
		LastModified: now,
		UploadedBy:   owner.ID,
		Filename:     meta[metaFilename],
	}, nil
}

func toFileInfo(o storage.ObjectInfo) FileInfo {
	return FileInfo{
		Key:          o.Key,
		Size:         o.Size,
		ContentType:  o.ContentType,
		LastModified: o.LastModified,
		UploadedBy:   o.Metadata[metaUploadedBy],
		Filename:     o.Metadata[metaFilename],
		Metadata:     o.Metadata,
	}
}

// List pages through a folder, newest first.
func (s *FileService) List(ctx context.Context, folder string, page, limit int) (FilePage, error) {
	folder, err := cleanFolder(folder)
	if err != nil {
		return FilePage{}, err
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	if limit > maxListLimit {
		return FilePage{}, fmt.Errorf("%w: limit must be <= %d", ErrValidation, maxListLimit)
	}
	objs, err := s.store.List(ctx, folder+"/")
	if err != nil {
		return FilePage{}, fmt.Errorf("%w: list objects: %w", ErrUnavailable, err)
	}
	sort.SliceStable(objs, func(i, j int) bool { return objs[i].LastModified.After(objs[j].LastModified) })

	total := len(objs)
	out := FilePage{Items: []FileInfo{}, Page: page, Limit: limit, Total: total, Pages: (total + limit - 1) / limit}
	start := (page - 1) * limit
	if start >= total {
		return out, nil
	}
	end := min(start+limit, total)
	for _, o := range objs[start:end] {
		full, err := s.store.Head(ctx, o.Key)
		if err != nil {
			// listed objects can vanish before the head request
			s.log.Debug().Err(err).Str("key", o.Key).Msg("head after list failed")
			out.Items = append(out.Items, toFileInfo(o))
			continue
		}
		out.Items = append(out.Items, toFileInfo(full))
	}
	return out, nil
}

// Info returns ErrNotFound for a missing key.
func (s *FileService) Info(ctx context.Context, key string) (FileInfo, error) {
	key, err := cleanKey(key)
	if err != nil {
		return FileInfo{}, err
	}
	o, err := s.store.Head(ctx, key)
	if errors.Is(err, storage.ErrObjectNotFound) {
		return FileInfo{}, ErrNotFound
	}
	if err != nil {
		return FileInfo{}, fmt.Errorf("%w: head object: %w", ErrUnavailable, err)
	}
	return toFileInfo(o), nil
}

// DownloadURL returns a presigned GET URL and its expiry time.
func (s *FileService) DownloadURL(ctx context.Context, key string) (string, time.Time, error) {
	info, err := s.Info(ctx, key)
	if err != nil {
		return "", time.Time{}, err
	}
	url, err := s.store.PresignGet(ctx, info.Key, s.opts.URLExpiry)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%w: presign: %w", ErrUnavailable, err)
	}
	return url, s.now().Add(s.opts.URLExpiry), nil
}

// Delete removes a file. Only its uploader or an admin may delete it.
func (s *FileService) Delete(ctx context.Context, actor model.User, key string) error {
	info, err := s.Info(ctx, key)
	if err != nil {
		return err
	}
	if !actor.IsAdmin() && info.UploadedBy != actor.ID {
		return ErrForbidden
	}
	if err := s.store.Delete(ctx, info.Key); err != nil {
		return fmt.Errorf("%w: delete object: %w", ErrUnavailable, err)
	}
	s.log.Info().Str("key", info.Key).Str("user_id", actor.ID).Msg("file deleted")
	return nil
}
