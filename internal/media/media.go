// media описывает контракт внешнего медиа-хранилища: непрозрачная операция
// «загрузить файл — получить публичный URL». Таймауты и отмена — забота
// реализации через переданный контекст.
package media

import "context"

// File — содержимое загружаемого файла вместе с метаданными.
type File struct {
	Name        string
	ContentType string
	Content     []byte
}

// Uploader загружает файл и возвращает публичный URL.
type Uploader interface {
	Upload(ctx context.Context, file File) (string, error)
}
