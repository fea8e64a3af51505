package domain

import "sort"

type InputType string

const (
	InputText     InputType = "text"
	InputDate     InputType = "date"
	InputURL      InputType = "url"
	InputTextarea InputType = "textarea"
)

const (
	KeyTitle       = "dc.title"
	KeyAuthor      = "dc.contributor.author"
	KeyDateIssued  = "dc.date.issued"
	KeySubject     = "dc.subject"
	KeyType        = "dc.type"
	KeyAbstract    = "dc.description.abstract"
	KeyDescription = "dc.description"
)

// FieldDescriptor drives how a metadata key is labelled and edited.
type FieldDescriptor struct {
	Key         string    `json:"key"`
	Label       string    `json:"label"`
	InputType   InputType `json:"input_type"`
	Placeholder string    `json:"placeholder"`
	Known       bool      `json:"known"`
}

var fieldOrder = []string{
	KeyTitle,
	KeyAuthor,
	KeyDateIssued,
	"dc.publisher",
	KeySubject,
	KeyType,
	"dc.language.iso",
	"dc.identifier.citation",
	"dc.relation.ispartofseries",
	"dc.identifier.uri",
	"dc.title.alternative",
	KeyDescription,
	KeyAbstract,
	"dc.description.sponsorship",
}

var registry = map[string]FieldDescriptor{
	KeyTitle:                     {Label: "Title", InputType: InputText, Placeholder: "The main title of the item"},
	KeyAuthor:                    {Label: "Author(s)", InputType: InputText, Placeholder: "e.g., Smith, John; Doe, Jane"},
	"dc.title.alternative":       {Label: "Alternative Title(s)", InputType: InputText, Placeholder: "e.g., An Alternate Title"},
	KeyDateIssued:                {Label: "Date Issued", InputType: InputDate, Placeholder: "YYYY-MM-DD"},
	"dc.publisher":               {Label: "Publisher", InputType: InputText, Placeholder: "e.g., University of Knowledge"},
	"dc.identifier.citation":     {Label: "Citation", InputType: InputText, Placeholder: "e.g., Journal of Important Results, 2(1), 2025."},
	"dc.relation.ispartofseries": {Label: "Series", InputType: InputText, Placeholder: "e.g., Technical Reports Series"},
	"dc.identifier.uri":          {Label: "Identifier (URI)", InputType: InputURL, Placeholder: "e.g., https://doi.org/10.123/456"},
	KeyType:                      {Label: "Type", InputType: InputText, Placeholder: "e.g., Article, Book, Dataset"},
	"dc.language.iso":            {Label: "Language (ISO)", InputType: InputText, Placeholder: "e.g., en_US, es, fr"},
	KeySubject:                   {Label: "Subject Keywords", InputType: InputTextarea, Placeholder: "Keywords separated by semicolons"},
	KeyAbstract:                  {Label: "Abstract", InputType: InputTextarea, Placeholder: "A short summary of the item..."},
	"dc.description.sponsorship": {Label: "Sponsors", InputType: InputText, Placeholder: "e.g., National Science Foundation"},
	KeyDescription:               {Label: "Description", InputType: InputTextarea, Placeholder: "A general description of the item"},
}

// LookupField never fails: unknown keys are labelled with the raw key and
// edited as plain text.
func LookupField(key string) FieldDescriptor {
	d, ok := registry[key]
	if !ok {
		return FieldDescriptor{Key: key, Label: key, InputType: InputText}
	}
	d.Key = key
	d.Known = true
	return d
}

// RegisteredFields lists the known keys in canonical order.
func RegisteredFields() []FieldDescriptor {
	out := make([]FieldDescriptor, 0, len(fieldOrder))
	for _, key := range fieldOrder {
		out = append(out, LookupField(key))
	}
	return out
}

// OrderFields arranges fields for display: known keys in canonical order,
// then unknown keys sorted by key. Keys the item does not carry are skipped.
// Fields sharing a key keep their relative order.
func OrderFields(fields []MetadataField) []MetadataField {
	byKey := make(map[string][]MetadataField, len(fields))
	unknown := make([]string, 0)
	for _, f := range fields {
		if _, ok := byKey[f.Key]; !ok {
			if _, known := registry[f.Key]; !known {
				unknown = append(unknown, f.Key)
			}
		}
		byKey[f.Key] = append(byKey[f.Key], f)
	}
	sort.Strings(unknown)

	out := make([]MetadataField, 0, len(fields))
	for _, key := range fieldOrder {
		out = append(out, byKey[key]...)
	}
	for _, key := range unknown {
		out = append(out, byKey[key]...)
	}
	return out
}

type DescribedField struct {
	MetadataField
	Descriptor FieldDescriptor `json:"descriptor"`
}

func DescribeFields(fields []MetadataField) []DescribedField {
	ordered := OrderFields(fields)
	out := make([]DescribedField, 0, len(ordered))
	for _, f := range ordered {
		out = append(out, DescribedField{MetadataField: f, Descriptor: LookupField(f.Key)})
	}
	return out
}
