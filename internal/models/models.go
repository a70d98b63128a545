// Package models defines the investigation state and every record the
// pipeline stages read and write. The state is a single mutable value owned
// by the orchestrator; each stage is the sole writer of its output fields.
package models

import (
	"sort"
	"time"
)

// ExtractionStatus describes the outcome of text extraction for a document.
type ExtractionStatus string

const (
	ExtractionSuccess     ExtractionStatus = "success"
	ExtractionPartial     ExtractionStatus = "partial"
	ExtractionEncrypted   ExtractionStatus = "encrypted"
	ExtractionUnsupported ExtractionStatus = "unsupported"
	ExtractionFailed      ExtractionStatus = "failed"
)

// Document is a processed file, identified by the first 16 hex characters of
// its SHA-256 content hash.
type Document struct {
	ID               string           `json:"id"`
	Filename         string           `json:"filename"`
	FileType         string           `json:"file_type"`
	ContentHash      string           `json:"content_hash"`
	SizeBytes        int64            `json:"size_bytes"`
	IngestedAt       time.Time        `json:"ingested_at"`
	SourceDir        string           `json:"source_dir"`
	Language         string           `json:"language"`
	PageCount        int              `json:"page_count,omitempty"`
	Author           string           `json:"author,omitempty"`
	CreatedAt        *time.Time       `json:"created_at,omitempty"`
	ModifiedAt       *time.Time       `json:"modified_at,omitempty"`
	FilePath         string           `json:"file_path"`
	Status           ExtractionStatus `json:"status"`
	ExtractionMethod string           `json:"extraction_method"`
	OCRConfidence    float64          `json:"ocr_confidence"`
	ProcessingTime   float64          `json:"processing_time"`
	Error            string           `json:"error,omitempty"`
	PriorityScore    float64          `json:"priority_score"`
	Metadata         map[string]any   `json:"metadata,omitempty"`
}

// Relevance bands derived from the classification priority score.
const (
	RelevanceCritical = "critical"
	RelevanceHigh     = "high"
	RelevanceMedium   = "medium"
	RelevanceLow      = "low"
)

// RelevanceFor maps a priority score to its relevance band.
func RelevanceFor(priority float64) string {
	switch {
	case priority >= 0.8:
		return RelevanceCritical
	case priority >= 0.6:
		return RelevanceHigh
	case priority >= 0.4:
		return RelevanceMedium
	default:
		return RelevanceLow
	}
}

// Classification is the per-document output of the classification stage.
type Classification struct {
	DocumentID         string             `json:"document_id"`
	Domain             string             `json:"domain"`
	DocumentType       string             `json:"document_type"`
	Language           string             `json:"language"`
	PriorityScore      float64            `json:"priority_score"`
	Confidence         map[string]float64 `json:"confidence"`
	PriorityReasons    []string           `json:"priority_reasons"`
	SuspiciousPatterns []string           `json:"suspicious_patterns,omitempty"`
	Keywords           []string           `json:"keywords_detected"`
	Relevance          string             `json:"estimated_relevance"`
	ProcessingOrder    int                `json:"processing_order"`
}

// EntityType tags an extracted entity.
type EntityType string

const (
	EntityPerson  EntityType = "PERSON"
	EntityOrg     EntityType = "ORG"
	EntityGPE     EntityType = "GPE"
	EntityLoc     EntityType = "LOC"
	EntityDate    EntityType = "DATE"
	EntityMoney   EntityType = "MONEY"
	EntityPercent EntityType = "PERCENT"
	EntityEmail   EntityType = "EMAIL"
	EntityPhone   EntityType = "PHONE"
	EntityCPF     EntityType = "CPF"
	EntityCNPJ    EntityType = "CNPJ"
	EntityOther   EntityType = "OTHER"
)

// Entity is a merged mention group. Two mentions merge iff their
// (normalized_text, type) keys are equal.
type Entity struct {
	ID             string     `json:"id"`
	Text           string     `json:"text"`
	NormalizedText string     `json:"normalized_text"`
	Type           EntityType `json:"type"`
	Confidence     float64    `json:"confidence"`
	Documents      []string   `json:"documents"`
	Frequency      int        `json:"frequency"`
	Contexts       []string   `json:"contexts,omitempty"`
	Variations     []string   `json:"variations,omitempty"`
}

// Relationship is a co-occurrence edge between two entities. Endpoints are
// sorted so the pair is canonical before any equality check.
type Relationship struct {
	SourceEntityID string   `json:"source_entity_id"`
	TargetEntityID string   `json:"target_entity_id"`
	Type           string   `json:"relationship_type"`
	Evidence       []string `json:"evidence"`
	EvidenceCount  int      `json:"evidence_count"`
	Weight         float64  `json:"weight"`
	Confidence     float64  `json:"confidence"`
}

const (
	RelationAssociatedWith = "ASSOCIATED_WITH"
	RelationCoOccurrence   = "CO_OCCURRENCE"
)

// CryptoSegment is a contiguous encoded span found inside a document.
type CryptoSegment struct {
	ID             string  `json:"id"`
	DocumentID     string  `json:"document_id"`
	StartOffset    int     `json:"start_offset"`
	EndOffset      int     `json:"end_offset"`
	Content        string  `json:"content"`
	CryptoType     string  `json:"crypto_type"`
	DecodedContent string  `json:"decoded_content,omitempty"`
	Confidence     float64 `json:"confidence"`
}

// CryptoFinding is the reportable record for a crypto segment or an
// encrypted input file.
type CryptoFinding struct {
	DocumentID       string  `json:"document_id"`
	FindingType      string  `json:"finding_type"`
	EncodedExcerpt   string  `json:"encoded_excerpt,omitempty"`
	DecodedPreview   string  `json:"decoded_preview,omitempty"`
	RequiresPassword bool    `json:"requires_password,omitempty"`
	Confidence       float64 `json:"confidence"`
}

// SemanticLink joins two documents above the similarity threshold.
// DocID1 < DocID2 lexicographically; at most one link per unordered pair.
type SemanticLink struct {
	DocID1         string   `json:"doc_id_1"`
	DocID2         string   `json:"doc_id_2"`
	Similarity     float64  `json:"similarity_score"`
	LinkType       string   `json:"link_type"`
	Rationale      string   `json:"rationale"`
	SharedEntities []string `json:"shared_entities,omitempty"`
	SharedConcepts []string `json:"shared_concepts,omitempty"`
}

// Contradiction is a rule-based disagreement found on a linked pair.
type Contradiction struct {
	DocID1      string `json:"doc_id_1"`
	DocID2      string `json:"doc_id_2"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

// NarrativeThread is a connected component of the document-link graph.
type NarrativeThread struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Documents  []string `json:"documents"`
	CentralDoc string   `json:"central_doc"`
}

// TimelineEvent is one dated event extracted from a document.
type TimelineEvent struct {
	ID               string     `json:"id"`
	Timestamp        *time.Time `json:"timestamp"`
	Confidence       float64    `json:"confidence"`
	Description      string     `json:"description"`
	EntitiesInvolved []string   `json:"entities_involved,omitempty"`
	SourceDocuments  []string   `json:"source_documents"`
	DateString       string     `json:"date_string"`
	EventType        string     `json:"event_type"`
}

// Pattern is a recurring structure surfaced by pattern recognition.
type Pattern struct {
	ID          string   `json:"id"`
	Category    string   `json:"pattern_type"`
	Description string   `json:"description"`
	Entities    []string `json:"entities_involved,omitempty"`
	Severity    string   `json:"severity"`
	Occurrences int      `json:"occurrences"`
	Confidence  float64  `json:"confidence"`
	Evidence    []string `json:"evidence,omitempty"`
}

// Anomaly is a statistical outlier surfaced by pattern recognition.
type Anomaly struct {
	Category    string   `json:"anomaly_type"`
	Description string   `json:"description"`
	Severity    string   `json:"severity"`
	Entity      string   `json:"entity,omitempty"`
	Events      []string `json:"events,omitempty"`
	ZScore      float64  `json:"z_score"`
}

// Hypothesis review states.
const (
	HypothesisUnderReview = "under_review"
	HypothesisAccepted    = "accepted"
	HypothesisRejected    = "rejected"
)

// Hypothesis is a candidate explanation ranked by confidence.
type Hypothesis struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Confidence  float64  `json:"confidence"`
	Evidence    []string `json:"supporting_evidence,omitempty"`
	Entities    []string `json:"entities_involved,omitempty"`
	Documents   []string `json:"supporting_documents,omitempty"`
	NextSteps   []string `json:"next_steps,omitempty"`
	Status      string   `json:"status"`
}

// Lead is an actionable follow-up for the investigator.
type Lead struct {
	ID            string `json:"id"`
	Action        string `json:"action"`
	Priority      string `json:"priority"`
	Justification string `json:"justification"`
}

// Compliance verdicts.
const (
	ComplianceValid       = "VALID"
	ComplianceNeedsReview = "NEEDS_REVIEW"
	ComplianceBlocked     = "BLOCKED"
)

// Violation is an ODOS rule violation.
type Violation struct {
	Rule     string `json:"rule"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
	Entity   string `json:"entity,omitempty"`
}

// BiasAlert flags an entity that dominates hypotheses without document
// support.
type BiasAlert struct {
	Entity      string `json:"entity"`
	Occurrences int    `json:"occurrences"`
	Message     string `json:"message"`
}

// ComplianceReport is the output of the compliance gate.
type ComplianceReport struct {
	OverallStatus   string      `json:"overall_status"`
	Fidelity        float64     `json:"fidelity"`
	RCF             float64     `json:"rcf"`
	DeltaE          float64     `json:"delta_e"`
	Violations      []Violation `json:"violations,omitempty"`
	BiasAlerts      []BiasAlert `json:"bias_alerts,omitempty"`
	Recommendations []string    `json:"recommendations,omitempty"`
	Narrative       string      `json:"narrative,omitempty"`
}

// GraphMetadata is what graph construction reads back from the graph store.
type GraphMetadata struct {
	NodeCount     int                 `json:"node_count"`
	EdgeCount     int                 `json:"edge_count"`
	TypeHistogram map[string]int      `json:"type_histogram,omitempty"`
	Centrality    map[string]float64  `json:"centrality,omitempty"`
	Communities   map[string][]string `json:"communities,omitempty"`
	Betweenness   map[string]float64  `json:"betweenness,omitempty"`
	TopEntities   []TopEntity         `json:"top_entities,omitempty"`
	Bridges       []Bridge            `json:"bridges,omitempty"`
	Warnings      []string            `json:"warnings,omitempty"`
}

// TopEntity is an entity ranked by centrality, tagged with its community.
type TopEntity struct {
	EntityID   string  `json:"entity_id"`
	Score      float64 `json:"score"`
	Community  string  `json:"community,omitempty"`
	EntityText string  `json:"entity_text,omitempty"`
}

// Bridge is an entity ranked by betweenness.
type Bridge struct {
	EntityID string  `json:"entity_id"`
	Score    float64 `json:"score"`
}

// RunConfig is the per-run slice of configuration stamped into the state.
type RunConfig struct {
	InvestigationID string `json:"investigation_id"`
	UploadsPath     string `json:"uploads_path"`
	ThreadID        string `json:"thread_id,omitempty"`
}

// InvestigationState is the shared record threaded through the pipeline.
type InvestigationState struct {
	Config RunConfig `json:"config"`

	Documents       []Document                `json:"documents"`
	ExtractedText   map[string]string         `json:"extracted_text"`
	Classifications map[string]Classification `json:"classifications"`

	Entities      []Entity       `json:"entities"`
	Relationships []Relationship `json:"relationships"`

	CryptoSegments       []CryptoSegment `json:"crypto_segments"`
	CryptographyFindings []CryptoFinding `json:"cryptography_findings"`

	SemanticLinks    []SemanticLink    `json:"semantic_links"`
	Contradictions   []Contradiction   `json:"contradictions"`
	NarrativeThreads []NarrativeThread `json:"narrative_threads"`

	Timeline          []TimelineEvent `json:"timeline"`
	TimelineAnomalies []Anomaly       `json:"timeline_anomalies"`

	Patterns  []Pattern `json:"patterns"`
	Anomalies []Anomaly `json:"anomalies"`

	GraphMetadata *GraphMetadata `json:"graph_metadata,omitempty"`

	Hypotheses    []Hypothesis `json:"hypotheses"`
	Leads         []Lead       `json:"leads"`
	ReportSummary string       `json:"report_summary,omitempty"`
	ReportPath    string       `json:"report_path,omitempty"`

	ComplianceReport *ComplianceReport `json:"compliance_report,omitempty"`

	CurrentStep string    `json:"current_step"`
	ErrorLog    []string  `json:"error_log"`
	Version     int       `json:"version"`
	LastUpdated time.Time `json:"last_updated"`
}

// NewInvestigationState returns an empty state for one run.
func NewInvestigationState(investigationID, uploadsPath string) *InvestigationState {
	return &InvestigationState{
		Config: RunConfig{
			InvestigationID: investigationID,
			UploadsPath:     uploadsPath,
		},
		ExtractedText:   make(map[string]string),
		Classifications: make(map[string]Classification),
	}
}

// HasDocument reports whether a content hash is already present in the state.
func (s *InvestigationState) HasDocument(contentHash string) bool {
	for i := range s.Documents {
		if s.Documents[i].ContentHash == contentHash {
			return true
		}
	}
	return false
}

// DocumentByID returns the document with the given id, if present.
func (s *InvestigationState) DocumentByID(id string) (*Document, bool) {
	for i := range s.Documents {
		if s.Documents[i].ID == id {
			return &s.Documents[i], true
		}
	}
	return nil, false
}

// AppendError records a stage error without interrupting the run.
func (s *InvestigationState) AppendError(stage string, err error) {
	if err == nil {
		return
	}
	s.ErrorLog = append(s.ErrorLog, stage+": "+err.Error())
}

// CanonicalPair sorts two identifiers so relationship and link endpoints are
// canonical before equality checks.
func CanonicalPair(a, b string) (string, string) {
	if a > b {
		return b, a
	}
	return a, b
}

// SortTimeline orders events chronologically with null timestamps last.
func SortTimeline(events []TimelineEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		ti, tj := events[i].Timestamp, events[j].Timestamp
		switch {
		case ti == nil:
			return false
		case tj == nil:
			return true
		default:
			return ti.Before(*tj)
		}
	})
}
