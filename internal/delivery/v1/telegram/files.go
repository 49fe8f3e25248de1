package telegram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/DRSN-tech/cryptoshop-bot/pkg/e"
	"github.com/jimlawless/whereami"
)

const downloadTimeout = 30 * time.Second

// FileURLResolver — часть *tgbotapi.BotAPI, выдающая ссылку на файл по его file_id.
type FileURLResolver interface {
	GetFileDirectURL(fileID string) (string, error)
}

// FileLoader скачивает присланные в бот файлы. Размер ограничен maxSize.
type FileLoader struct {
	resolver FileURLResolver
	client   *http.Client
	maxSize  int64
}

func NewFileLoader(resolver FileURLResolver, maxSize int64) *FileLoader {
	return &FileLoader{
		resolver: resolver,
		client:   &http.Client{Timeout: downloadTimeout},
		maxSize:  maxSize,
	}
}

func (f *FileLoader) Download(ctx context.Context, fileID string) ([]byte, error) {
	url, err := f.resolver.GetFileDirectURL(fileID)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download file %s: unexpected status %d", fileID, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxSize+1))
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	if int64(len(data)) > f.maxSize {
		return nil, e.ErrImageTooLarge
	}

	return data, nil
}
