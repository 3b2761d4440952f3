// Package drive stores receipt images in Google Drive and hands back a
// shareable link for the sheet row.
package drive

import (
	"context"
	"fmt"
	"os"
	"regexp"

	gdrive "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"tabkeeper/internal/logger"
)

// earningsName matches receipt names that belong in the earnings folder.
var earningsName = regexp.MustCompile(`(?i)earning|revenue|invoice|payment received`)

// FolderFor routes a receipt to the earnings or expenses folder by its
// party name.
func FolderFor(name, expensesFolderID, earningsFolderID string) string {
	if earningsName.MatchString(name) {
		return earningsFolderID
	}
	return expensesFolderID
}

// Uploader wraps the Drive API.
type Uploader struct {
	svc *gdrive.Service
}

// NewUploader creates a Drive client authenticated with service account
// JSON.
func NewUploader(ctx context.Context, credentialsJSON []byte) (*Uploader, error) {
	svc, err := gdrive.NewService(ctx,
		option.WithCredentialsJSON(credentialsJSON),
		option.WithScopes(gdrive.DriveFileScope),
	)
	if err != nil {
		return nil, fmt.Errorf("drive: create service: %w", err)
	}
	return &Uploader{svc: svc}, nil
}

// Upload stores a local file under displayName in the given folder, grants
// read access to anyone with the link, and returns the share URL.
func (u *Uploader) Upload(ctx context.Context, localPath, displayName, folderID string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("drive: open %q: %w", localPath, err)
	}
	defer f.Close()

	meta := &gdrive.File{
		Name:    displayName,
		Parents: []string{folderID},
	}
	created, err := u.svc.Files.Create(meta).
		Media(f).
		Fields("id", "webViewLink").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("drive: create file %q: %w", displayName, err)
	}

	perm := &gdrive.Permission{Type: "anyone", Role: "reader"}
	if _, err := u.svc.Permissions.Create(created.Id, perm).Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("drive: share file %q: %w", displayName, err)
	}

	log := logger.FromContext(ctx)
	log.Debug().
		Str("file", displayName).
		Str("folder", folderID).
		Msg("receipt uploaded")

	return created.WebViewLink, nil
}
