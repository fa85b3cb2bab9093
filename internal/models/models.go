package models

// Status is the terminal state of a recognizer invocation.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

// Kind distinguishes structured vision-LLM backends from raw-text OCR backends.
type Kind string

const (
	KindLLM Kind = "llm"
	KindOCR Kind = "ocr"
)

// InputKind is the media type class of an uploaded file.
type InputKind string

const (
	InputImage InputKind = "image"
	InputVideo InputKind = "video"
)

// ProductRecord is a single product label extracted from an image.
// Price stays a free-form string so currency symbols survive untouched.
type ProductRecord struct {
	Name  string `json:"product_name"`
	Price string `json:"price"`
}

// RecognizerSummary is the aggregated per-recognizer state across all frames
// of one request. RawText concatenates successful frames in frame order,
// separated by "\n---\n".
type RecognizerSummary struct {
	Name       string `json:"name"`
	Kind       Kind   `json:"type"`
	Status     Status `json:"status"`
	DurationMs int64  `json:"durationMs"`
	RawText    string `json:"rawText,omitempty"`
	Error      string `json:"error,omitempty"`
}

// AggregatedResult holds the deduplicated union of every successful
// recognizer's records, first occurrence winning.
type AggregatedResult struct {
	Items     []ProductRecord `json:"items"`
	DedupedBy string          `json:"dedupedBy"`
}

// ProcessInput describes the uploaded media a result was produced from.
type ProcessInput struct {
	Kind            InputKind `json:"type"`
	Filename        string    `json:"filename"`
	FramesProcessed int       `json:"framesProcessed,omitempty"`
}

// ProcessResult is the top-level response for one request. It holds no
// cross-request state; it is built once, serialized, and discarded.
type ProcessResult struct {
	Input       ProcessInput                 `json:"input"`
	Recognizers map[string]RecognizerSummary `json:"recognizers"`
	Aggregated  AggregatedResult             `json:"aggregated"`
}
