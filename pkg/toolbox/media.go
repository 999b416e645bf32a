package toolbox

import (
	"bytes"
	"context"
	"mime"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pkg/errors"

	"github.com/go-go-golems/gaia/pkg/inference/tools"
)

// VisionService answers a question about an image or a document.
type VisionService interface {
	DescribeImage(ctx context.Context, query, mimeType string, data []byte) (string, error)
	AnswerFromDocument(ctx context.Context, query, name, text string) (string, error)
}

// SpeechToText transcribes an audio file.
type SpeechToText interface {
	TranscribeFile(ctx context.Context, path string) (string, error)
}

var imageMIMETypes = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"webp": "image/webp",
	"bmp":  "image/bmp",
}

// ImageMIMEType guesses the media type of an image from its extension and
// defaults to image/jpeg.
func ImageMIMEType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if t := mime.TypeByExtension(ext); strings.HasPrefix(t, "image/") {
		if i := strings.Index(t, ";"); i >= 0 {
			t = t[:i]
		}
		return t
	}
	if t, ok := imageMIMETypes[strings.TrimPrefix(ext, ".")]; ok {
		return t
	}
	return "image/jpeg"
}

type ImageInterpreter struct {
	vision VisionService
}

var _ tools.Tool = (*ImageInterpreter)(nil)

func NewImageInterpreter(vision VisionService) *ImageInterpreter {
	return &ImageInterpreter{vision: vision}
}

func (i *ImageInterpreter) Spec() tools.ToolSpec {
	return tools.ToolSpec{
		Name:        "image_input_response",
		Description: "Sends a query together with an image file to a vision model and returns its answer.",
		Parameters: []tools.Parameter{
			{Name: "query", Type: tools.TypeString, Description: "The question about the image.", Required: true},
			{Name: "image_path", Type: tools.TypeString, Description: "The path of the image file.", Required: true},
		},
	}
}

func (i *ImageInterpreter) Execute(ctx context.Context, args tools.Arguments) (string, error) {
	query, _ := args.String("query")
	path, _ := args.String("image_path")

	data, err := os.ReadFile(path)
	if err == nil {
		var out string
		out, err = i.vision.DescribeImage(ctx, query, ImageMIMEType(path), data)
		if err == nil {
			return out, nil
		}
	}
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	return "", tools.NewProviderError("vision", errors.Errorf("Error fetching response: %v. Try file_input_response instead.", err))
}

// PDFTextExtractor returns the plain text of a PDF document.
type PDFTextExtractor func(data []byte) (string, error)

// ExtractPDFText extracts the text of every page, each prefixed with its
// page number. Pages without text are skipped.
func ExtractPDFText(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", errors.Wrap(err, "could not open pdf")
	}
	pages := []string{}
	for n := 1; n <= r.NumPage(); n++ {
		p := r.Page(n)
		if p.V.IsNull() {
			continue
		}
		txt, err := p.GetPlainText(nil)
		if err != nil {
			continue
		}
		if s := strings.TrimSpace(txt); s != "" {
			pages = append(pages, "Page "+strconv.Itoa(n)+"\n"+s)
		}
	}
	if len(pages) == 0 {
		return "", errors.New("pdf contains no extractable text")
	}
	return strings.Join(pages, "\n\n"), nil
}

type FileInterpreter struct {
	vision  VisionService
	extract PDFTextExtractor
}

var _ tools.Tool = (*FileInterpreter)(nil)

func NewFileInterpreter(vision VisionService, extract PDFTextExtractor) *FileInterpreter {
	if extract == nil {
		extract = ExtractPDFText
	}
	return &FileInterpreter{vision: vision, extract: extract}
}

func (f *FileInterpreter) Spec() tools.ToolSpec {
	return tools.ToolSpec{
		Name:        "file_input_response",
		Description: "Sends a query together with a PDF file to the model and returns its answer.",
		Parameters: []tools.Parameter{
			{Name: "query", Type: tools.TypeString, Description: "The question about the document.", Required: true},
			{Name: "file_path", Type: tools.TypeString, Description: "The path of the PDF file.", Required: true},
		},
	}
}

func (f *FileInterpreter) Execute(ctx context.Context, args tools.Arguments) (string, error) {
	query, _ := args.String("query")
	path, _ := args.String("file_path")

	out, err := f.answer(ctx, query, path)
	if err == nil {
		return out, nil
	}
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	return "", tools.NewProviderError("vision", errors.Errorf("Error fetching response: %v. Try image_input_response instead.", err))
}

func (f *FileInterpreter) answer(ctx context.Context, query, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	text, err := f.extract(data)
	if err != nil {
		return "", err
	}
	return f.vision.AnswerFromDocument(ctx, query, filepath.Base(path), text)
}

type AudioTranscriber struct {
	stt SpeechToText
}

var _ tools.Tool = (*AudioTranscriber)(nil)

func NewAudioTranscriber(stt SpeechToText) *AudioTranscriber {
	return &AudioTranscriber{stt: stt}
}

func (a *AudioTranscriber) Spec() tools.ToolSpec {
	return tools.ToolSpec{
		Name:        "transcribe_audio",
		Description: "Transcribes the speech of an audio file.",
		Parameters: []tools.Parameter{
			{Name: "file_path", Type: tools.TypeString, Description: "Path to the audio file.", Required: true},
		},
	}
}

func (a *AudioTranscriber) Execute(ctx context.Context, args tools.Arguments) (string, error) {
	path, _ := args.String("file_path")
	if _, err := os.Stat(path); err != nil {
		return "", errors.Wrap(err, "Error transcribing audio")
	}
	text, err := a.stt.TranscribeFile(ctx, path)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", tools.NewProviderError("transcription", errors.Wrap(err, "Error transcribing audio"))
	}
	return text, nil
}
