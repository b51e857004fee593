package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultConcurrency = 4

	maxImageBytes = 20 << 20
	jpegQuality   = 90
)

// ImageJob is one pending download: remote URL to a file in the content dir.
type ImageJob struct {
	URL  string
	File string
}

type ImageFetcher struct {
	Client      *http.Client
	Dir         string
	Concurrency int
	Log         zerolog.Logger

	// NewName generates a stored filename; defaults to a random UUID + ".jpg".
	NewName func() string
}

func NewImageFetcher(dir string, concurrency int, log zerolog.Logger) *ImageFetcher {
	return &ImageFetcher{
		Client:      &http.Client{Timeout: 30 * time.Second},
		Dir:         dir,
		Concurrency: concurrency,
		Log:         log,
	}
}

// Assign gives every image a fresh filename and returns the rewritten
// mapping together with the downloads still to perform.
func (f *ImageFetcher) Assign(urls map[string]string) (map[string]string, []ImageJob) {
	newName := f.NewName
	if newName == nil {
		newName = func() string { return uuid.NewString() + ".jpg" }
	}

	files := make(map[string]string, len(urls))
	jobs := make([]ImageJob, 0, len(urls))
	for size, u := range urls {
		name := newName()
		files[size] = name
		jobs = append(jobs, ImageJob{URL: u, File: name})
	}
	return files, jobs
}

// FetchAll downloads jobs concurrently. Individual failures are logged and
// counted, never returned; the only error is a cancelled context.
func (f *ImageFetcher) FetchAll(ctx context.Context, jobs []ImageJob) (ok, failed int, err error) {
	if err := os.MkdirAll(f.Dir, 0o755); err != nil {
		return 0, 0, fmt.Errorf("create content dir: %w", err)
	}

	results := make([]error, len(jobs))

	var g errgroup.Group
	g.SetLimit(max(f.Concurrency, 1))
	for i, job := range jobs {
		g.Go(func() error {
			if ctx.Err() != nil {
				results[i] = ctx.Err()
				return nil
			}
			results[i] = f.fetch(ctx, job)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return 0, 0, err
	}

	for i, e := range results {
		if e != nil {
			failed++
			imagesTotal.WithLabelValues("failed").Inc()
			f.Log.Warn().Err(e).Str("url", jobs[i].URL).Str("file", jobs[i].File).Msg("image download failed")
			continue
		}
		ok++
		imagesTotal.WithLabelValues("ok").Inc()
	}
	return ok, failed, nil
}

func (f *ImageFetcher) fetch(ctx context.Context, job ImageJob) error {
	if job.URL == "" {
		return errors.New("no source url")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, job.URL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		return fmt.Errorf("get image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("get image: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return fmt.Errorf("read image: %w", err)
	}

	if err := os.WriteFile(filepath.Join(f.Dir, job.File), toJPEG(data), 0o644); err != nil {
		return fmt.Errorf("write image: %w", err)
	}
	return nil
}

// toJPEG re-encodes non-JPEG payloads so the .jpg name holds. Data that
// does not decode as an image is kept as received.
func toJPEG(data []byte) []byte {
	if http.DetectContentType(data) == "image/jpeg" {
		return data
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return data
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return data
	}
	return buf.Bytes()
}
