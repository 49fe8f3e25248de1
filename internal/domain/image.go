package domain

// ImageRef — непрозрачная ссылка на изображение в объектном хранилище (ключ объекта).
type ImageRef string

// Image описывает изображение, которое хранится в S3
type Image struct {
	ObjectKey string
	Data      []byte
	Size      int64
	MimeType  string
}

func NewImage(objectKey string, data []byte, mimeType string) *Image {
	return &Image{
		ObjectKey: objectKey,
		Data:      data,
		Size:      int64(len(data)),
		MimeType:  mimeType,
	}
}
