package classify

import "regexp"

// Rule maps a category label to an ordered list of patterns. Rules are
// evaluated in slice order and the first category with any matching pattern
// wins, so more specific categories must be declared before broader ones.
type Rule struct {
	Category string
	Patterns []*regexp.Regexp
}

func mustRule(category string, patterns ...string) Rule {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		compiled = append(compiled, regexp.MustCompile("(?i)"+p))
	}
	return Rule{Category: category, Patterns: compiled}
}

// Default document-type rules. Order matters: "category" certificates would
// otherwise be swallowed by the generic "certificate" patterns, which is why
// every pattern set that mentions "certificate" lists the qualified phrase.
var defaultDocumentRules = []Rule{
	mustRule(DocTypeMarksheet,
		`marksheet|mark\s*sheet`,
		`grade\s*report`,
		`academic\s*record`,
		`transcript`,
		`result`,
	),
	mustRule(DocTypeCertificate,
		`certificate`,
		`diploma`,
		`degree`,
		`qualification`,
	),
	mustRule(DocTypePhoto,
		`photo`,
		`photograph`,
		`image`,
		`picture`,
		`passport\s*size`,
	),
	mustRule(DocTypeSignature,
		`signature`,
		`sign`,
		`autograph`,
	),
	mustRule(DocTypeIdentity,
		`aadhar|aadhaar`,
		`pan\s*card`,
		`voter\s*id`,
		`passport`,
		`driving\s*license`,
		`identity\s*proof`,
	),
	mustRule(DocTypeCategory,
		`caste\s*certificate`,
		`category\s*certificate`,
		`reservation\s*certificate`,
		`obc|sc|st|ews`,
		`income\s*certificate`,
	),
	mustRule(DocTypeExperience,
		`experience\s*certificate`,
		`work\s*experience`,
		`employment\s*certificate`,
		`service\s*certificate`,
	),
}

// Default education-level rules.
var defaultLevelRules = []Rule{
	mustRule(Level10th, `10th|tenth|class\s*10|x\s*class|sslc`),
	mustRule(Level12th, `12th|twelfth|class\s*12|xii\s*class|hsc|intermediate`),
	mustRule(LevelGraduation, `graduation|bachelor|b\.?tech|b\.?sc|b\.?com|b\.?a|degree`),
	mustRule(LevelPostGraduation, `post\s*graduation|master|m\.?tech|m\.?sc|m\.?com|m\.?a|phd`),
}

// Display labels used when synthesizing a standardized filename.
var documentLabels = map[string]string{
	DocTypeMarksheet:   "Marksheet",
	DocTypeCertificate: "Certificate",
	DocTypePhoto:       "Photo",
	DocTypeSignature:   "Signature",
	DocTypeIdentity:    "IdentityProof",
	DocTypeCategory:    "CategoryCertificate",
	DocTypeExperience:  "ExperienceCertificate",
}

var levelLabels = map[string]string{
	Level10th:           "10th",
	Level12th:           "12th",
	LevelGraduation:     "Graduation",
	LevelPostGraduation: "PostGraduation",
}
