package remote

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"vixfix-trading-bot/internal/interfaces"
	"vixfix-trading-bot/internal/types"

	"github.com/go-resty/resty/v2"
)

const DriveURL = "https://www.googleapis.com"

// Drive mirrors one file in Google Drive. The file is addressed by id when
// one is configured, otherwise looked up by name and created on first
// upload.
type Drive struct {
	client *resty.Client
	name   string

	mu     sync.Mutex
	fileID string
}

var _ interfaces.RemoteStore = (*Drive)(nil)

func NewDrive(baseURL, accessToken, fileID, name string) *Drive {
	if baseURL == "" {
		baseURL = DriveURL
	}
	return &Drive{
		client: resty.New().
			SetBaseURL(baseURL).
			SetAuthToken(accessToken).
			SetTimeout(30 * time.Second),
		name:   name,
		fileID: fileID,
	}
}

type driveFile struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type driveError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (d *Drive) id(ctx context.Context) (string, error) {
	d.mu.Lock()
	id := d.fileID
	d.mu.Unlock()
	if id != "" {
		return id, nil
	}

	var list struct {
		Files []driveFile `json:"files"`
	}
	var apiErr driveError
	q := fmt.Sprintf("name='%s' and trashed=false", strings.ReplaceAll(d.name, "'", `\'`))
	resp, err := d.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{"q": q, "fields": "files(id,name)", "spaces": "drive"}).
		SetResult(&list).
		SetError(&apiErr).
		Get("/drive/v3/files")
	if err != nil {
		return "", fmt.Errorf("drive lookup: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("drive lookup: %d %s", resp.StatusCode(), apiErr.Error.Message)
	}
	if len(list.Files) == 0 {
		return "", nil
	}
	d.mu.Lock()
	d.fileID = list.Files[0].ID
	d.mu.Unlock()
	return list.Files[0].ID, nil
}

func (d *Drive) Download(ctx context.Context, localPath string) error {
	id, err := d.id(ctx)
	if err != nil {
		return err
	}
	if id == "" {
		return types.ErrNoRemoteCopy
	}
	var apiErr driveError
	resp, err := d.client.R().
		SetContext(ctx).
		SetQueryParam("alt", "media").
		SetError(&apiErr).
		Get("/drive/v3/files/" + id)
	if err != nil {
		return fmt.Errorf("drive download: %w", err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return types.ErrNoRemoteCopy
	}
	if resp.IsError() {
		return fmt.Errorf("drive download: %d %s", resp.StatusCode(), apiErr.Error.Message)
	}
	return replaceFile(localPath, resp.Body())
}

func (d *Drive) Upload(ctx context.Context, localPath string) error {
	b, err := os.ReadFile(localPath)
	if err != nil {
		return fmt.Errorf("read %s: %w", localPath, err)
	}
	id, err := d.id(ctx)
	if err != nil {
		return err
	}
	if id == "" {
		if id, err = d.create(ctx); err != nil {
			return err
		}
	}

	var apiErr driveError
	resp, err := d.client.R().
		SetContext(ctx).
		SetQueryParam("uploadType", "media").
		SetHeader("Content-Type", "application/json").
		SetBody(b).
		SetError(&apiErr).
		Patch("/upload/drive/v3/files/" + id)
	if err != nil {
		return fmt.Errorf("drive upload: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("drive upload: %d %s", resp.StatusCode(), apiErr.Error.Message)
	}
	return nil
}

func (d *Drive) create(ctx context.Context) (string, error) {
	var f driveFile
	var apiErr driveError
	resp, err := d.client.R().
		SetContext(ctx).
		SetBody(map[string]string{"name": d.name, "mimeType": "application/json"}).
		SetResult(&f).
		SetError(&apiErr).
		Post("/drive/v3/files")
	if err != nil {
		return "", fmt.Errorf("drive create: %w", err)
	}
	if resp.IsError() || f.ID == "" {
		return "", fmt.Errorf("drive create: %d %s", resp.StatusCode(), apiErr.Error.Message)
	}
	d.mu.Lock()
	d.fileID = f.ID
	d.mu.Unlock()
	return f.ID, nil
}
