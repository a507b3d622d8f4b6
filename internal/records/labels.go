package records

import "strings"

// Label names a bibliographic field. The set mirrors the NER tag set.
type Label string

const (
	LabelAuthor        Label = "Author"
	LabelTitle         Label = "Title"
	LabelOriginalTitle Label = "Original_title"
	LabelPublisher     Label = "Publisher"
	LabelPages         Label = "Pages"
	LabelSeries        Label = "Series"
	LabelEdition       Label = "Edition"
	LabelReferences    Label = "References"
	LabelID            Label = "ID"
	LabelISBN          Label = "ISBN"
	LabelISSN          Label = "ISSN"
	LabelTopic         Label = "Topic"
	LabelSubtitle      Label = "Subtitle"
	LabelDate          Label = "Date"
	LabelInstitute     Label = "Institute"
	LabelVolume        Label = "Volume"
)

// AllLabels lists every known label in tag-set order.
var AllLabels = []Label{
	LabelAuthor, LabelTitle, LabelOriginalTitle, LabelPublisher, LabelPages,
	LabelSeries, LabelEdition, LabelReferences, LabelID, LabelISBN, LabelISSN,
	LabelTopic, LabelSubtitle, LabelDate, LabelInstitute, LabelVolume,
}

var labelsByKey = func() map[string]Label {
	out := make(map[string]Label, len(AllLabels))
	for _, label := range AllLabels {
		out[strings.ToLower(string(label))] = label
	}
	return out
}()

// ParseLabel resolves a label name case-insensitively.
func ParseLabel(value string) (Label, bool) {
	label, ok := labelsByKey[strings.ToLower(strings.TrimSpace(value))]
	return label, ok
}

// labelForRawField maps a stored field name such as "author2" or "Title" to
// its label. Trailing ordinals distinguish repeated fields in the store and
// are ignored.
func labelForRawField(name string) (Label, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	key = strings.TrimRight(key, "0123456789")
	key = strings.TrimRight(key, "_-")
	return ParseLabel(key)
}
