package domain

import "errors"

// FileFormat is the detected document format, derived from magic bytes.
type FileFormat string

const (
	FormatPNG  FileFormat = "png"
	FormatJPG  FileFormat = "jpg"
	FormatBMP  FileFormat = "bmp"
	FormatGIF  FileFormat = "gif"
	FormatTIFF FileFormat = "tiff"
	FormatWebP FileFormat = "webp"
	FormatPDF  FileFormat = "pdf"
)

// ReturnFormat selects the projection of the processing result.
type ReturnFormat string

const (
	ReturnFull    ReturnFormat = "full"
	ReturnMinimal ReturnFormat = "minimal"
	ReturnOCROnly ReturnFormat = "ocr_only"
)

func (f ReturnFormat) Valid() bool {
	switch f {
	case ReturnFull, ReturnMinimal, ReturnOCROnly:
		return true
	}
	return false
}

// SourceDescriptor points at the document payload: either inline bytes or
// a key in object storage. Exactly one must be set.
type SourceDescriptor struct {
	InlineData []byte `json:"inline_data,omitempty"`
	StorageKey string `json:"storage_key,omitempty"`
}

func (s SourceDescriptor) Empty() bool {
	return len(s.InlineData) == 0 && s.StorageKey == ""
}

// Submission is the immutable processing request.
type Submission struct {
	DocumentID string           `json:"document_id"`
	Filename   string           `json:"filename,omitempty"`
	Source     SourceDescriptor `json:"source"`

	EnableOCR           bool `json:"enable_ocr"`
	EnableEnhancement   bool `json:"enable_enhancement"`
	EnablePreprocessing bool `json:"enable_preprocessing"`

	ReturnFormat        ReturnFormat `json:"return_format"`
	QualityThreshold    float64      `json:"quality_threshold"`
	ConfidenceThreshold float64      `json:"confidence_threshold"`

	Async bool `json:"async"`
}

// Validate rejects submissions before any pipeline stage runs.
func (s Submission) Validate() error {
	if s.Source.Empty() {
		return WrapError(ErrInvalidSource, "validate submission", errors.New("no inline data or storage key"))
	}
	if len(s.Source.InlineData) > 0 && s.Source.StorageKey != "" {
		return WrapError(ErrInvalidSource, "validate submission", errors.New("inline data and storage key are mutually exclusive"))
	}
	if !s.ReturnFormat.Valid() {
		return WrapError(ErrInvalidSource, "validate submission", errors.New("unknown return_format"))
	}
	if s.QualityThreshold < 0 || s.QualityThreshold > 100 {
		return WrapError(ErrInvalidSource, "validate submission", errors.New("quality_threshold out of [0,100]"))
	}
	if s.ConfidenceThreshold < 0 || s.ConfidenceThreshold > 100 {
		return WrapError(ErrInvalidSource, "validate submission", errors.New("confidence_threshold out of [0,100]"))
	}
	return nil
}

// ResolvedSource is the outcome of source resolution: raw bytes plus the
// detected format. PageCount is set for PDF sources only.
type ResolvedSource struct {
	Data      []byte
	Format    FileFormat
	SizeBytes int
	PageCount int
}
