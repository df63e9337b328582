// Package classify assigns a document type and education level to an
// uploaded file based on its filename, and synthesizes a standardized
// replacement name with a heuristic confidence score. Classification looks
// only at the name, never at file content, so it is cheap enough to run on
// every upload before any conversion work starts.
package classify

import "strings"

// Document type labels, in rule declaration order.
const (
	DocTypeMarksheet   = "marksheet"
	DocTypeCertificate = "certificate"
	DocTypePhoto       = "photo"
	DocTypeSignature   = "signature"
	DocTypeIdentity    = "identity"
	DocTypeCategory    = "category"
	DocTypeExperience  = "experience"

	// Unknown is returned for both dimensions when no pattern matches.
	Unknown = "unknown"
)

// Education level labels.
const (
	Level10th           = "10th"
	Level12th           = "12th"
	LevelGraduation     = "graduation"
	LevelPostGraduation = "post_graduation"
)

// Confidence increments. Document type is the stronger signal; matching more
// than one pattern overall adds a small bonus. The sum is clamped to [0, 1].
const (
	typeConfidence       = 0.5
	levelConfidence      = 0.3
	multiMatchConfidence = 0.2
)

// FallbackName is suggested when neither dimension could be classified.
const FallbackName = "Document"

// Result is the outcome of classifying a single filename. It is produced
// fresh per call and never mutated afterwards.
type Result struct {
	OriginalName     string   `json:"originalName"`
	SuggestedName    string   `json:"suggestedName"`
	DocumentType     string   `json:"documentType"`
	EducationLevel   string   `json:"educationLevel"`
	Confidence       float64  `json:"confidence"`
	DetectedPatterns []string `json:"detectedPatterns,omitempty"`
	Standardized     bool     `json:"standardized"`
}

// Classifier evaluates a fixed, ordered rule set. The zero value is not
// usable; construct one with New or NewWithRules. A Classifier is immutable
// after construction and safe for concurrent use.
type Classifier struct {
	documentRules []Rule
	levelRules    []Rule
}

// New returns a Classifier with the built-in exam document rule set.
func New() *Classifier {
	return &Classifier{
		documentRules: defaultDocumentRules,
		levelRules:    defaultLevelRules,
	}
}

// NewWithRules returns a Classifier over caller-supplied rule tables.
// The caller must not modify the slices afterwards.
func NewWithRules(documentRules, levelRules []Rule) *Classifier {
	return &Classifier{
		documentRules: documentRules,
		levelRules:    levelRules,
	}
}

// Classify analyzes a filename and returns a suggested standardized name
// together with the detected document type, education level, and a
// confidence score in [0, 1]. It is a pure function of the input: no I/O,
// no shared mutable state, and it never fails. Unmatched input simply
// yields "unknown" classifications and the fallback suggested name.
func (c *Classifier) Classify(filename string) Result {
	stem, ext := splitName(strings.ToLower(filename))

	docType := firstMatch(c.documentRules, stem)
	level := firstMatch(c.levelRules, stem)
	suggested := buildSuggestedName(docType, level, ext)

	return Result{
		OriginalName:     filename,
		SuggestedName:    suggested,
		DocumentType:     docType,
		EducationLevel:   level,
		Confidence:       c.confidence(stem, docType, level),
		DetectedPatterns: c.detectedPatterns(stem),
		Standardized:     suggested != filename,
	}
}

// splitName separates a lower-cased filename into stem and extension at the
// last dot. A name that is only an extension (".pdf") yields an empty stem;
// a name without a dot yields an empty extension.
func splitName(name string) (stem, ext string) {
	idx := strings.LastIndex(name, ".")
	if idx < 0 {
		return name, ""
	}
	return name[:idx], name[idx+1:]
}

// firstMatch returns the first category whose pattern list contains any
// pattern matching text, or Unknown. Regexp search semantics: a substring
// match anywhere in the stem counts.
func firstMatch(rules []Rule, text string) string {
	for _, rule := range rules {
		for _, pattern := range rule.Patterns {
			if pattern.MatchString(text) {
				return rule.Category
			}
		}
	}
	return Unknown
}

// buildSuggestedName concatenates the education-level label and the
// document-type label, in that order, with no separator. The original
// extension is re-appended only if the input had one.
func buildSuggestedName(docType, level, ext string) string {
	var parts []string
	if label, ok := levelLabels[level]; ok {
		parts = append(parts, label)
	}
	if label, ok := documentLabels[docType]; ok {
		parts = append(parts, label)
	}
	if len(parts) == 0 {
		parts = append(parts, FallbackName)
	}

	name := strings.Join(parts, "")
	if ext != "" {
		return name + "." + ext
	}
	return name
}

// confidence is a deterministic function of which categories matched, not of
// file content. Not a calibrated probability.
func (c *Classifier) confidence(stem, docType, level string) float64 {
	score := 0.0
	if docType != Unknown {
		score += typeConfidence
	}
	if level != Unknown {
		score += levelConfidence
	}
	if c.countMatches(stem) > 1 {
		score += multiMatchConfidence
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}

// countMatches counts matching patterns across both rule tables. Used only
// for the multi-match confidence bonus.
func (c *Classifier) countMatches(stem string) int {
	total := 0
	for _, rules := range [][]Rule{c.documentRules, c.levelRules} {
		for _, rule := range rules {
			for _, pattern := range rule.Patterns {
				if pattern.MatchString(stem) {
					total++
				}
			}
		}
	}
	return total
}

// detectedPatterns lists every matching pattern as "category:pattern" for
// diagnostics. The classification itself only ever uses the first match.
func (c *Classifier) detectedPatterns(stem string) []string {
	var detected []string
	for _, rules := range [][]Rule{c.documentRules, c.levelRules} {
		for _, rule := range rules {
			for _, pattern := range rule.Patterns {
				if pattern.MatchString(stem) {
					detected = append(detected, rule.Category+":"+trimCaseFlag(pattern.String()))
				}
			}
		}
	}
	return detected
}

func trimCaseFlag(pattern string) string {
	return strings.TrimPrefix(pattern, "(?i)")
}
