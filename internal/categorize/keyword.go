package categorize

import (
	"context"
	"strings"
)

type keywordRule struct {
	category string
	phrases  []string
}

// keywordRules are checked in order; the first rule with a matching phrase wins.
var keywordRules = []keywordRule{
	{"Information Technology", []string{
		"software", "developer", "programmer", "ict", "network", "networks", "database", "systems administrator",
		"data analyst", "data scientist", "web", "devops", "cyber", "computer", "python", "java", "frontend",
		"backend", "fullstack", "information technology",
	}},
	{"Healthcare", []string{
		"nurse", "nursing", "doctor", "clinical", "clinician", "medical", "health", "pharmacist", "pharmacy",
		"laboratory", "midwife", "physiotherapist", "nutrition", "nutritionist", "hiv", "dental", "radiographer",
	}},
	{"Finance & Accounting", []string{
		"accountant", "accountants", "accounts", "accounting", "finance", "financial", "audit", "auditor",
		"tax", "treasury", "credit", "loan", "loans", "bank", "banking", "teller", "cashier", "economist", "investment",
	}},
	{"Education", []string{
		"teacher", "teachers", "lecturer", "tutor", "school", "education", "teaching", "instructor", "academic",
	}},
	{"Engineering", []string{
		"engineer", "engineering", "civil", "mechanical", "electrical", "electrician", "surveyor", "architect",
		"construction", "plumber", "artisan", "technician",
	}},
	{"Legal", []string{
		"lawyer", "legal", "advocate", "paralegal", "compliance", "magistrate", "attorney",
	}},
	{"Human Resources", []string{
		"human resources", "human resource", "hr", "recruitment", "recruiter", "talent", "payroll",
	}},
	{"Agriculture", []string{
		"agriculture", "agricultural", "agronomist", "farm", "farming", "veterinary", "livestock", "crop",
		"crops", "forestry", "irrigation", "agribusiness",
	}},
	{"Logistics & Procurement", []string{
		"logistics", "procurement", "supply chain", "driver", "drivers", "warehouse", "stores", "fleet",
		"transport", "purchasing",
	}},
	{"Sales & Marketing", []string{
		"sales", "marketing", "brand", "business development", "customer", "retail", "merchandiser",
		"communications", "public relations",
	}},
	{"Hospitality", []string{
		"chef", "cook", "waiter", "waitress", "hotel", "housekeeping", "housekeeper", "hospitality", "lodge",
		"barista", "restaurant",
	}},
	{"Administration", []string{
		"administrator", "administrative", "administration", "secretary", "receptionist", "clerk",
		"office assistant", "records", "personal assistant", "executive assistant",
	}},
	{"Development & NGO", []string{
		"programme", "programmes", "program", "project", "projects", "monitoring", "evaluation", "community",
		"humanitarian", "development", "gender", "protection", "advocacy",
	}},
	{"Management", []string{
		"manager", "director", "chief", "head", "ceo", "supervisor", "coordinator", "lead",
	}},
}

// KeywordClassifier labels titles with deterministic keyword rules.
// It needs no network access and never fails.
type KeywordClassifier struct{}

// NewKeywordClassifier creates a KeywordClassifier.
func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{}
}

// Categorize labels every input; titles are preprocessed first.
func (k *KeywordClassifier) Categorize(_ context.Context, inputs []Input) ([]string, error) {
	labels := make([]string, len(inputs))
	for i, in := range inputs {
		labels[i] = Classify(in.Title)
	}
	return labels, nil
}

// Classify returns the category for a single title.
func Classify(title string) string {
	padded := " " + Preprocess(title) + " "
	for _, rule := range keywordRules {
		for _, phrase := range rule.phrases {
			if strings.Contains(padded, " "+phrase+" ") {
				return rule.category
			}
		}
	}
	return Other
}
