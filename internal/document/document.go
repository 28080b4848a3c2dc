package document

// Document is a normalized markdown document ready for chunking.
type Document struct {
	ID   string
	Text string
}

// Section is a contiguous slice of a document under one heading path.
type Section struct {
	Path []string // Heading hierarchy, at most 3 levels.
	Body string   // Verbatim text up to the next heading (may be empty).
}

// ChunkType classifies the dominant structure of a chunk's content.
type ChunkType string

const (
	TypeText     ChunkType = "text"
	TypeTable    ChunkType = "table"
	TypeEquation ChunkType = "equation"
	TypeMixed    ChunkType = "mixed"
)

// ContentFeatures counts structural patterns inside a chunk.
type ContentFeatures struct {
	HeadingCount  int `json:"heading_count"`
	ListCount     int `json:"list_count"`
	TableCount    int `json:"table_count"`
	EquationCount int `json:"equation_count"`
}

// Chunk is a bounded, ordered text segment produced for embedding.
// There is exactly one Chunk type and one serialization path; every
// component that hands chunks around uses this record as-is.
type Chunk struct {
	ID                 string          `json:"chunk_id"`
	DocumentID         string          `json:"document_id"`
	Index              int             `json:"index"`
	TotalChunks        int             `json:"total_chunks"`
	Content            string          `json:"content"`
	TokenCount         int             `json:"token_count"`
	CharacterCount     int             `json:"character_count"`
	Type               ChunkType       `json:"chunk_type"`
	SectionPath        []string        `json:"section_path"`
	HasOverlapPrevious bool            `json:"has_overlap_previous"`
	HasOverlapNext     bool            `json:"has_overlap_next"`
	Features           ContentFeatures `json:"content_features"`
}
