package ml

import (
	"context"
	"errors"
	"fmt"
	"io"

	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"Auditorium/internal/ports"
)

// DriveAPIFetcher downloads files through the Drive v3 API with an API key.
type DriveAPIFetcher struct {
	files *drive.FilesService
}

var _ ports.BlobFetcher = (*DriveAPIFetcher)(nil)

// NewDriveAPIFetcher builds the Drive service; extra options are used by tests to change the endpoint.
func NewDriveAPIFetcher(ctx context.Context, apiKey string, opts ...option.ClientOption) (*DriveAPIFetcher, error) {
	if apiKey == "" {
		return nil, errors.New("drive api key is required")
	}

	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	svc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}

	return &DriveAPIFetcher{files: svc.Files}, nil
}

// Fetch copies the file content (alt=media) into dst.
func (f *DriveAPIFetcher) Fetch(ctx context.Context, id string, dst io.Writer) error {
	resp, err := f.files.Get(id).SupportsAllDrives(true).Context(ctx).Download()
	if err != nil {
		return fmt.Errorf("drive download %s: %w", id, err)
	}
	defer resp.Body.Close()

	if _, err := io.Copy(dst, resp.Body); err != nil {
		return fmt.Errorf("copy drive file: %w", err)
	}
	return nil
}
