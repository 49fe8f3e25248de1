package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DRSN-tech/cryptoshop-bot/pkg/e"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticResolver string

func (s staticResolver) GetFileDirectURL(fileID string) (string, error) {
	return string(s) + "/" + fileID, nil
}

func TestFileLoader_Download(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/small":
			w.Write([]byte("image-bytes"))
		case "/big":
			w.Write([]byte(strings.Repeat("x", 64)))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	loader := NewFileLoader(staticResolver(srv.URL), 32)

	data, err := loader.Download(context.Background(), "small")
	require.NoError(t, err)
	assert.Equal(t, []byte("image-bytes"), data)

	_, err = loader.Download(context.Background(), "big")
	assert.ErrorIs(t, err, e.ErrImageTooLarge)

	_, err = loader.Download(context.Background(), "missing")
	assert.Error(t, err)
}
