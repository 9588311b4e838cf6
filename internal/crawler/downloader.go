package crawler

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/text/unicode/norm"

	"github.com/nao1215/aaofetch/internal/config"
	"github.com/nao1215/aaofetch/internal/model"
	"github.com/nao1215/aaofetch/internal/transport"
)

// tempPattern names in-progress downloads. It is independent of the document
// name so that any name that fits the filesystem also fits its temp file.
const tempPattern = ".aaofetch-*.part"

// DocumentFetcher stores one document and describes the result.
type DocumentFetcher interface {
	Download(ctx context.Context, rawURL string) (*model.DownloadedFile, error)
}

// Downloader stores documents in a directory, at most once per filename.
//
// Design decision: The presence of the final file is the only idempotence
// marker. Requests for the same filename are collapsed with singleflight, so
// the exists-check and the write happen as one step per filename within the
// process. Across processes, publishing with a hard link never replaces an
// existing file.
type Downloader struct {
	client      *transport.Client
	dir         string
	extension   string
	contentType string
	chunkSize   int
	pacer       *Pacer
	robots      *RobotsPolicy
	logger      *slog.Logger

	group singleflight.Group
}

// DownloaderOption configures a Downloader.
type DownloaderOption func(*Downloader)

// WithDocumentPacer sets the delay applied before each network download.
// It is not applied to files that already exist.
func WithDocumentPacer(p *Pacer) DownloaderOption {
	return func(d *Downloader) {
		d.pacer = p
	}
}

// WithDocumentContentType sets the media type a document response must declare.
func WithDocumentContentType(contentType string) DownloaderOption {
	return func(d *Downloader) {
		d.contentType = contentType
	}
}

// WithFileExtension sets the extension appended to filenames that lack it.
func WithFileExtension(ext string) DownloaderOption {
	return func(d *Downloader) {
		d.extension = ext
	}
}

// WithChunkSize sets the buffer size used when streaming to disk.
func WithChunkSize(size int) DownloaderOption {
	return func(d *Downloader) {
		if size > 0 {
			d.chunkSize = size
		}
	}
}

// WithDocumentRobots enables the robots.txt gate for documents.
func WithDocumentRobots(p *RobotsPolicy) DownloaderOption {
	return func(d *Downloader) {
		d.robots = p
	}
}

// WithDownloaderLogger sets the logger.
func WithDownloaderLogger(logger *slog.Logger) DownloaderOption {
	return func(d *Downloader) {
		d.logger = logger
	}
}

// NewDownloader creates a Downloader writing into dir.
// The directory is created on first use.
func NewDownloader(client *transport.Client, dir string, opts ...DownloaderOption) *Downloader {
	d := &Downloader{
		client:      client,
		dir:         dir,
		extension:   config.DefaultDocumentExtension,
		contentType: config.DefaultDocumentContentType,
		chunkSize:   config.DefaultChunkSize,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dir returns the download directory.
func (d *Downloader) Dir() string {
	return d.dir
}

// FilenameFromURL derives the stored filename from the final path segment of
// rawURL. The name is NFC-normalised and ext is appended unless the name
// already ends with it (case-insensitive).
func FilenameFromURL(rawURL, ext string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidFilename, err)
	}

	name := path.Base(u.Path)
	name = norm.NFC.String(strings.TrimSpace(name))
	if name == "" || name == "." || name == ".." || name == "/" || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidFilename, rawURL)
	}

	if ext != "" && !strings.HasSuffix(strings.ToLower(name), strings.ToLower(ext)) {
		name += ext
	}
	return name, nil
}

// Download stores the document at rawURL unless a file with its name already
// exists. It returns a nil error on success, including when nothing had to be
// downloaded. Errors wrapping ErrStorage are fatal for the crawl.
func (d *Downloader) Download(ctx context.Context, rawURL string) (*model.DownloadedFile, error) {
	name, err := FilenameFromURL(rawURL, d.extension)
	if err != nil {
		return nil, err
	}

	v, err, _ := d.group.Do(name, func() (any, error) {
		return d.download(ctx, rawURL, name)
	})
	if err != nil {
		return nil, err
	}

	// Callers sharing a flight get their own copy.
	f := *v.(*model.DownloadedFile) //nolint:forcetypeassert // only *model.DownloadedFile is stored
	return &f, nil
}

// download performs the exists-check, request and publish for one filename.
func (d *Downloader) download(ctx context.Context, rawURL, name string) (*model.DownloadedFile, error) {
	if err := os.MkdirAll(d.dir, 0o750); err != nil {
		return nil, fmt.Errorf("%w: create download directory: %w", ErrStorage, err)
	}

	dest := filepath.Join(d.dir, name)
	result := &model.DownloadedFile{URL: rawURL, Filename: name, Path: dest}

	exists, err := fileExists(dest)
	if err != nil {
		return nil, err
	}
	if exists {
		d.logger.Info("already downloaded, skipping", "file", name)
		result.AlreadyPresent = true
		result.FetchedAt = time.Now()
		return result, nil
	}

	if !d.robots.Allowed(ctx, rawURL) {
		return nil, fmt.Errorf("%w: %s", ErrRobotsDisallowed, rawURL)
	}

	if err := d.pacer.Wait(ctx); err != nil {
		return nil, err
	}

	d.logger.Info("downloading", "file", name, "url", rawURL)

	resp, err := d.client.Get(ctx, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", name, err)
	}
	defer resp.Body.Close()

	if err := transport.ExpectContentType(resp, d.contentType); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	size, sum, published, err := d.store(resp.Body, name, dest)
	if err != nil {
		return nil, err
	}

	result.FetchedAt = time.Now()
	if !published {
		d.logger.Info("already downloaded by another writer", "file", name)
		result.AlreadyPresent = true
		return result, nil
	}

	result.Size = size
	result.SHA256 = sum
	d.logger.Info("saved", "file", name, "bytes", size, "sha256", sum)
	return result, nil
}

// store streams body into a temporary file next to dest and publishes it
// under dest without replacing an existing file. published is false when
// dest appeared while the body was being written.
//
// Read errors are download failures; every filesystem error wraps ErrStorage.
func (d *Downloader) store(body io.Reader, name, dest string) (size int64, sum string, published bool, err error) {
	tmp, err := os.CreateTemp(d.dir, tempPattern)
	if err != nil {
		return 0, "", false, fmt.Errorf("%w: create temporary file: %w", ErrStorage, err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()        //nolint:errcheck // already closed on the success path
		_ = os.Remove(tmpPath) //nolint:errcheck // best effort cleanup
	}()

	hasher := sha256.New()
	buf := make([]byte, d.chunkSize)
	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			if _, err := tmp.Write(buf[:n]); err != nil {
				return 0, "", false, fmt.Errorf("%w: write %s: %w", ErrStorage, name, err)
			}
			hasher.Write(buf[:n])
			size += int64(n)
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return 0, "", false, fmt.Errorf("failed to read %s: %w", name, readErr)
		}
	}

	if err := tmp.Sync(); err != nil {
		return 0, "", false, fmt.Errorf("%w: sync %s: %w", ErrStorage, name, err)
	}
	if err := tmp.Close(); err != nil {
		return 0, "", false, fmt.Errorf("%w: close %s: %w", ErrStorage, name, err)
	}

	published, err = publish(tmpPath, dest)
	if err != nil {
		return 0, "", false, err
	}
	return size, hex.EncodeToString(hasher.Sum(nil)), published, nil
}

// publish makes tmpPath visible as dest without overwriting an existing file.
// It prefers a hard link, which fails if dest exists. Filesystems without
// hard links fall back to a rename after a fresh existence check.
func publish(tmpPath, dest string) (bool, error) {
	err := os.Link(tmpPath, dest)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrExist) {
		return false, nil
	}

	exists, statErr := fileExists(dest)
	if statErr != nil {
		return false, statErr
	}
	if exists {
		return false, nil
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return false, fmt.Errorf("%w: publish %s: %w", ErrStorage, filepath.Base(dest), err)
	}
	return true, nil
}

// fileExists reports whether p exists. Errors other than "not exist" wrap ErrStorage.
func fileExists(p string) (bool, error) {
	_, err := os.Lstat(p)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("%w: stat %s: %w", ErrStorage, filepath.Base(p), err)
}
