package uploader

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const defaultGofileAPI = "https://api.gofile.io"

// Gofile uploads to the GoFile anonymous file host. It needs no
// credentials, which makes it the fallback when rclone isn't set up.
type Gofile struct {
	Enabled bool

	apiBase    string
	uploadBase string // overrides the per-server upload host in tests
	httpClient *http.Client
}

// NewGofile returns a Gofile uploader.
func NewGofile(enabled bool) *Gofile {
	return &Gofile{
		Enabled: enabled,
		apiBase: defaultGofileAPI,
		httpClient: &http.Client{
			Timeout: 10 * time.Minute,
		},
	}
}

func (g *Gofile) Name() string { return "gofile" }

type serversResponse struct {
	Status string `json:"status"`
	Data   struct {
		Servers []struct {
			Name string `json:"name"`
		} `json:"servers"`
	} `json:"data"`
}

type uploadResponse struct {
	Status string `json:"status"`
	Data   struct {
		DownloadPage string `json:"downloadPage"`
	} `json:"data"`
}

// Upload asks the API for an upload server and posts the file to it.
func (g *Gofile) Upload(ctx context.Context, path string) (string, error) {
	if !g.Enabled {
		return "", ErrNotConfigured
	}

	server, err := g.pickServer(ctx)
	if err != nil {
		return "", err
	}

	uploadURL := fmt.Sprintf("https://%s.gofile.io/contents/uploadfile", server)
	if g.uploadBase != "" {
		uploadURL = g.uploadBase + "/contents/uploadfile"
	}
	return g.uploadTo(ctx, uploadURL, path)
}

func (g *Gofile) pickServer(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.apiBase+"/servers", nil)
	if err != nil {
		return "", err
	}
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("requesting upload server: %w", err)
	}
	defer resp.Body.Close()

	var sr serversResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return "", fmt.Errorf("decoding servers response: %w", err)
	}
	if sr.Status != "ok" || len(sr.Data.Servers) == 0 {
		return "", fmt.Errorf("no upload server available (status %q)", sr.Status)
	}
	return sr.Data.Servers[0].Name, nil
}

func (g *Gofile) uploadTo(ctx context.Context, url, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}

	// ROM zips run to gigabytes, so the multipart body is streamed
	// through a pipe instead of being buffered in memory.
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		defer f.Close()
		part, err := mw.CreateFormFile("file", filepath.Base(path))
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, f); err != nil {
			pw.CloseWithError(fmt.Errorf("reading %s: %w", path, err))
			return
		}
		pw.CloseWithError(mw.Close())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, pr)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("uploading to gofile: %w", err)
	}
	defer resp.Body.Close()

	var ur uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&ur); err != nil {
		return "", fmt.Errorf("decoding upload response: %w", err)
	}
	if ur.Status != "ok" || strings.TrimSpace(ur.Data.DownloadPage) == "" {
		return "", fmt.Errorf("gofile upload rejected (status %q)", ur.Status)
	}
	return ur.Data.DownloadPage, nil
}
