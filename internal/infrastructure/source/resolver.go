package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/ledongthuc/pdf"

	"github.com/vbelyaev/docgate/internal/core/domain"
	"github.com/vbelyaev/docgate/internal/core/ports"
)

// Resolver turns a source descriptor into raw bytes plus a format detected
// from magic bytes. Extensions and declared content types are ignored.
type Resolver struct {
	storage  ports.ObjectStorage
	maxBytes int
}

func NewResolver(storage ports.ObjectStorage, maxBytes int) *Resolver {
	if maxBytes <= 0 {
		maxBytes = 50 << 20
	}
	return &Resolver{storage: storage, maxBytes: maxBytes}
}

func (r *Resolver) Resolve(ctx context.Context, source domain.SourceDescriptor) (*domain.ResolvedSource, error) {
	data, err := r.loadBytes(ctx, source)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidSource, "resolve source", errors.New("empty document"))
	}
	if len(data) > r.maxBytes {
		return nil, domain.WrapError(domain.ErrInvalidSource, "resolve source",
			fmt.Errorf("document size %d exceeds limit %d", len(data), r.maxBytes))
	}

	format, ok := DetectFormat(data)
	if !ok {
		return nil, domain.WrapError(domain.ErrFormatNotSupported, "resolve source",
			errors.New("unrecognized magic bytes"))
	}

	resolved := &domain.ResolvedSource{
		Data:      data,
		Format:    format,
		SizeBytes: len(data),
	}
	if format == domain.FormatPDF {
		pages, err := pdfPageCount(data)
		if err != nil {
			return nil, domain.WrapError(domain.ErrInvalidSource, "resolve source",
				fmt.Errorf("undecodable pdf: %w", err))
		}
		resolved.PageCount = pages
	}
	return resolved, nil
}

func (r *Resolver) loadBytes(ctx context.Context, source domain.SourceDescriptor) ([]byte, error) {
	if len(source.InlineData) > 0 {
		return source.InlineData, nil
	}
	if source.StorageKey == "" {
		return nil, domain.WrapError(domain.ErrInvalidSource, "resolve source", errors.New("empty source descriptor"))
	}

	reader, err := r.storage.Open(ctx, source.StorageKey)
	if err != nil {
		return nil, fmt.Errorf("open stored document: %w", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(io.LimitReader(reader, int64(r.maxBytes)+1))
	if err != nil {
		return nil, fmt.Errorf("read stored document: %w", err)
	}
	return data, nil
}

var magicSignatures = []struct {
	prefix []byte
	format domain.FileFormat
}{
	{[]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}, domain.FormatPNG},
	{[]byte{0xFF, 0xD8, 0xFF}, domain.FormatJPG},
	{[]byte("BM"), domain.FormatBMP},
	{[]byte("GIF87a"), domain.FormatGIF},
	{[]byte("GIF89a"), domain.FormatGIF},
	{[]byte{'I', 'I', 0x2A, 0x00}, domain.FormatTIFF},
	{[]byte{'M', 'M', 0x00, 0x2A}, domain.FormatTIFF},
	{[]byte("%PDF"), domain.FormatPDF},
}

// DetectFormat identifies the document format from its leading bytes.
func DetectFormat(data []byte) (domain.FileFormat, bool) {
	for _, sig := range magicSignatures {
		if bytes.HasPrefix(data, sig.prefix) {
			return sig.format, true
		}
	}
	// RIFF container: bytes 8-11 name the payload.
	if len(data) >= 12 && bytes.HasPrefix(data, []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WEBP")) {
		return domain.FormatWebP, true
	}
	return "", false
}

func pdfPageCount(data []byte) (int, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, err
	}
	return reader.NumPage(), nil
}
