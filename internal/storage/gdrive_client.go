package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/codebuildervaibhav/transcript-console/internal/apiclient"
	"github.com/codebuildervaibhav/transcript-console/internal/types"
)

// ErrDriveNotAuthorized is returned when no Drive token has been stored yet.
var ErrDriveNotAuthorized = errors.New("google drive: not authorized, run `transcriptctl drive-auth`")

const folderMimeType = "application/vnd.google-apps.folder"

// DriveClient handles uploading exported transcripts to Google Drive
type DriveClient struct {
	service    *drive.Service
	folderName string
	folderID   string
	now        func() time.Time
}

// DriveOAuthConfig reads the OAuth client credentials for the Drive file scope.
func DriveOAuthConfig(credentialsFile string) (*oauth2.Config, error) {
	b, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %w", err)
	}
	config, err := google.ConfigFromJSON(b, drive.DriveFileScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %w", err)
	}
	return config, nil
}

// DriveAuthURL is the consent page the user visits to obtain a code.
func DriveAuthURL(config *oauth2.Config) string {
	return config.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
}

// AuthorizeDrive exchanges an authorization code and stores the token.
func AuthorizeDrive(ctx context.Context, config *oauth2.Config, code string, store apiclient.TokenStore) error {
	tok, err := config.Exchange(ctx, strings.TrimSpace(code))
	if err != nil {
		return fmt.Errorf("unable to retrieve token from web: %w", err)
	}
	return store.SetToken(tok)
}

// NewDriveClient creates a Drive client from the credentials file and the
// token stored by AuthorizeDrive. Refreshed tokens are written back to store.
func NewDriveClient(ctx context.Context, credentialsFile string, store apiclient.TokenStore, folderName string) (*DriveClient, error) {
	config, err := DriveOAuthConfig(credentialsFile)
	if err != nil {
		return nil, err
	}
	tok, err := store.Token()
	if err != nil {
		return nil, err
	}
	if tok == nil {
		return nil, ErrDriveNotAuthorized
	}

	src := &persistingTokenSource{
		base:  config.TokenSource(ctx, tok),
		store: store,
		last:  tok.AccessToken,
	}
	client := oauth2.NewClient(ctx, oauth2.ReuseTokenSource(tok, src))

	srv, err := drive.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("unable to create Drive service: %w", err)
	}
	return NewDriveClientWithService(ctx, srv, folderName)
}

// NewDriveClientWithService wraps an existing Drive service and ensures the
// root folder exists.
func NewDriveClientWithService(ctx context.Context, srv *drive.Service, folderName string) (*DriveClient, error) {
	dc := &DriveClient{
		service:    srv,
		folderName: folderName,
		now:        time.Now,
	}
	if err := dc.ensureFolder(ctx); err != nil {
		return nil, err
	}
	return dc, nil
}

// persistingTokenSource saves every newly minted token.
type persistingTokenSource struct {
	base  oauth2.TokenSource
	store apiclient.TokenStore

	mu   sync.Mutex
	last string
}

func (p *persistingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := p.base.Token()
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if tok.AccessToken != p.last {
		p.last = tok.AccessToken
		if err := p.store.SetToken(tok); err != nil {
			return nil, err
		}
	}
	return tok, nil
}

// ensureFolder finds or creates the root folder
func (dc *DriveClient) ensureFolder(ctx context.Context) error {
	query := fmt.Sprintf("name='%s' and mimeType='%s' and trashed=false",
		escapeQuery(dc.folderName), folderMimeType)

	r, err := dc.service.Files.List().Q(query).Spaces("drive").Fields("files(id, name)").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("unable to search for folder: %w", err)
	}

	if len(r.Files) > 0 {
		dc.folderID = r.Files[0].Id
		return nil
	}

	folder := &drive.File{
		Name:     dc.folderName,
		MimeType: folderMimeType,
	}
	file, err := dc.service.Files.Create(folder).Fields("id").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("unable to create folder: %w", err)
	}

	dc.folderID = file.Id
	return nil
}

// Upload uploads the transcript text and metadata under
// <folder>/yyyy/mm/dd and returns a link to the text file.
func (dc *DriveClient) Upload(ctx context.Context, tr *types.Transcript) (string, error) {
	now := dc.now()
	folderID, err := dc.ensureDateFolder(ctx, now)
	if err != nil {
		return "", err
	}

	export := newExport(tr, now)

	txtFile := &drive.File{
		Name:    export.baseName + ".txt",
		Parents: []string{folderID},
	}
	created, err := dc.service.Files.Create(txtFile).
		Media(bytes.NewReader(export.text)).
		Fields("id").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("failed to upload transcript: %w", err)
	}

	fileURL := fmt.Sprintf("https://drive.google.com/file/d/%s/view", created.Id)
	export.meta["gdrive_url"] = fileURL
	metaJSON, err := export.metaJSON()
	if err != nil {
		return "", err
	}

	metaFile := &drive.File{
		Name:    export.baseName + "_meta.json",
		Parents: []string{folderID},
	}
	if _, err := dc.service.Files.Create(metaFile).
		Media(bytes.NewReader(metaJSON)).
		Fields("id").
		Context(ctx).
		Do(); err != nil {
		return "", fmt.Errorf("failed to upload metadata: %w", err)
	}

	return fileURL, nil
}

// ensureDateFolder creates nested year/month/day folders
func (dc *DriveClient) ensureDateFolder(ctx context.Context, t time.Time) (string, error) {
	yearID, err := dc.findOrCreateFolder(ctx, fmt.Sprintf("%d", t.Year()), dc.folderID)
	if err != nil {
		return "", err
	}
	monthID, err := dc.findOrCreateFolder(ctx, fmt.Sprintf("%02d", t.Month()), yearID)
	if err != nil {
		return "", err
	}
	return dc.findOrCreateFolder(ctx, fmt.Sprintf("%02d", t.Day()), monthID)
}

// findOrCreateFolder finds or creates a folder with the given parent
func (dc *DriveClient) findOrCreateFolder(ctx context.Context, name, parentID string) (string, error) {
	query := fmt.Sprintf("name='%s' and '%s' in parents and mimeType='%s' and trashed=false",
		escapeQuery(name), escapeQuery(parentID), folderMimeType)

	r, err := dc.service.Files.List().Q(query).Spaces("drive").Fields("files(id)").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("unable to search for folder %s: %w", name, err)
	}
	if len(r.Files) > 0 {
		return r.Files[0].Id, nil
	}

	folder := &drive.File{
		Name:     name,
		MimeType: folderMimeType,
		Parents:  []string{parentID},
	}
	file, err := dc.service.Files.Create(folder).Fields("id").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("unable to create folder %s: %w", name, err)
	}
	return file.Id, nil
}

func escapeQuery(s string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s)
}
